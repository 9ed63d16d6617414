// internal/handlers/purchase.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/i18n"
	"github.com/ludora/ludora-backend/internal/services"
	"github.com/ludora/ludora-backend/internal/utils"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

func (h *PurchaseHandler) AddToCart(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req services.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	purchase, err := h.purchaseService.AddToCart(userID, &req)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		switch {
		case strings.Contains(err.Error(), "already in cart"):
			utils.ConflictResponse(c, "ALREADY_IN_CART", i18n.T(lang, i18n.KeyPurchaseAlreadyInCart))
		case strings.Contains(err.Error(), "already purchased"),
			strings.Contains(err.Error(), "already pending"):
			utils.ConflictResponse(c, "ALREADY_PURCHASED", err.Error())
		case strings.Contains(err.Error(), "free products"):
			utils.BadRequestResponse(c, err.Error(), nil)
		case strings.Contains(err.Error(), "not found"),
			strings.Contains(err.Error(), "not available"):
			utils.NotFoundResponse(c, "product")
		default:
			utils.InternalErrorResponse(c, "Failed to add to cart")
		}
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, purchase, gin.H{"message": i18n.T(lang, i18n.KeyPurchaseAddedToCart)})
}

func (h *PurchaseHandler) RemoveFromCart(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid purchase id", nil)
		return
	}

	if err := h.purchaseService.RemoveFromCart(userID, purchaseID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "purchase")
			return
		}
		utils.InternalErrorResponse(c, "Failed to remove from cart")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, gin.H{"removed": true}, gin.H{"message": i18n.T(lang, i18n.KeyPurchaseRemovedFromCart)})
}

func (h *PurchaseHandler) GetCart(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	items, total, err := h.purchaseService.GetCart(userID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load cart")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"items": items,
		"total": total,
		"count": len(items),
	})
}

// ClaimFree records ownership of a free product without a payment flow.
func (h *PurchaseHandler) ClaimFree(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	purchase, err := h.purchaseService.ClaimFree(userID, productID)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not free"):
			utils.BadRequestResponse(c, err.Error(), nil)
		case strings.Contains(err.Error(), "not found"),
			strings.Contains(err.Error(), "not available"):
			utils.NotFoundResponse(c, "product")
		default:
			utils.InternalErrorResponse(c, "Failed to claim product")
		}
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, purchase, gin.H{"message": i18n.T(lang, i18n.KeyPurchaseFreeClaimed)})
}

func (h *PurchaseHandler) Checkout(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	response, err := h.purchaseService.Checkout(userID)
	if err != nil {
		if strings.Contains(err.Error(), "cart is empty") {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, "Checkout failed")
		return
	}

	utils.SuccessResponse(c, response)
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

func (h *PurchaseHandler) ConfirmPayment(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	purchases, err := h.purchaseService.ConfirmPayment(req.PaymentIntentID)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		if strings.Contains(err.Error(), "not completed") {
			utils.ErrorResponse(c, 402, "PAYMENT_INCOMPLETE", i18n.T(lang, i18n.KeyPaymentFailed), nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to confirm payment")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, purchases, gin.H{"message": i18n.T(lang, i18n.KeyPaymentSuccess)})
}

func (h *PurchaseHandler) GetLibrary(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.purchaseService.GetLibrary(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load library")
		return
	}

	utils.PaginatedResponse(c, *result)
}

func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid purchase id", nil)
		return
	}

	purchase, err := h.purchaseService.GetPurchase(userID, purchaseID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "purchase")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load purchase")
		return
	}

	utils.SuccessResponse(c, purchase)
}
