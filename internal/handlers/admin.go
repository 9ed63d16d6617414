// internal/handlers/admin.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/i18n"
	"github.com/ludora/ludora-backend/internal/models"
	"github.com/ludora/ludora-backend/internal/services"
	"github.com/ludora/ludora-backend/internal/utils"
)

type AdminHandler struct {
	adminService    *services.AdminService
	purchaseService *services.PurchaseService
}

func NewAdminHandler(adminService *services.AdminService, purchaseService *services.PurchaseService) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		purchaseService: purchaseService,
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	result, err := h.adminService.ListUsers(params, c.Query("user_type"), c.Query("status"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list users")
		return
	}

	utils.PaginatedResponse(c, *result)
}

type updateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended banned"`
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	adminID := mustUserID(c)
	if adminID == uuid.Nil {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user id", nil)
		return
	}

	var req updateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	user, err := h.adminService.UpdateUserStatus(adminID, userID, models.UserStatus(req.Status))
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "user")
		case strings.Contains(err.Error(), "admin accounts"):
			utils.ForbiddenResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to update user status")
		}
		return
	}

	h.adminService.RecordAudit(&adminID, "user.status_update", "user", &userID,
		nil, models.JSONB{"status": req.Status}, c.ClientIP(), c.Request.UserAgent())

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, user, gin.H{"message": i18n.T(lang, i18n.KeyAdminActionSuccess)})
}

type suspendProductRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

func (h *AdminHandler) SuspendProduct(c *gin.Context) {
	adminID := mustUserID(c)
	if adminID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	var req suspendProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	product, err := h.adminService.SuspendProduct(adminID, productID, req.Reason)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "product")
			return
		}
		utils.InternalErrorResponse(c, "Failed to suspend product")
		return
	}

	h.adminService.RecordAudit(&adminID, "product.suspend", "product", &productID,
		nil, models.JSONB{"reason": req.Reason}, c.ClientIP(), c.Request.UserAgent())

	utils.SuccessResponse(c, product)
}

func (h *AdminHandler) RefundPurchase(c *gin.Context) {
	adminID := mustUserID(c)
	if adminID == uuid.Nil {
		return
	}

	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid purchase id", nil)
		return
	}

	purchase, err := h.purchaseService.RefundPurchase(purchaseID)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "purchase")
		case strings.Contains(err.Error(), "only paid"):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, "Refund failed")
		}
		return
	}

	h.adminService.RecordAudit(&adminID, "purchase.refund", "purchase", &purchaseID,
		nil, nil, c.ClientIP(), c.Request.UserAgent())

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, purchase, gin.H{"message": i18n.T(lang, i18n.KeyPaymentRefunded)})
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.adminService.GetSettings(c.Query("category"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load settings")
		return
	}

	utils.SuccessResponse(c, settings)
}

func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	adminID := mustUserID(c)
	if adminID == uuid.Nil {
		return
	}

	var req services.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	setting, err := h.adminService.UpdateSetting(adminID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.ErrorResponse(c, 404, "NOT_FOUND", "Setting not found", nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to update setting")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, setting, gin.H{"message": i18n.T(lang, i18n.KeyAdminSettingsUpdated)})
}

func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	result, err := h.adminService.ListAuditLogs(params, c.Query("action"), c.Query("resource_type"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list audit logs")
		return
	}

	utils.PaginatedResponse(c, *result)
}

func (h *AdminHandler) GetPlatformStats(c *gin.Context) {
	stats, err := h.adminService.GetPlatformStats()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load platform stats")
		return
	}

	utils.SuccessResponse(c, stats)
}
