// internal/handlers/consent.go
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

type ConsentHandler struct {
	consentService *services.ConsentService
}

func NewConsentHandler(consentService *services.ConsentService) *ConsentHandler {
	return &ConsentHandler{consentService: consentService}
}

// GetStatus reports the caller's enforcement status. Non-student callers
// always read complete.
func (h *ConsentHandler) GetStatus(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	userTypeStr, _ := utils.GetUserTypeFromContext(c)

	status, err := h.consentService.GetConsentStatus(c.Request.Context(), userID, models.UserType(userTypeStr))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to resolve consent status")
		return
	}

	utils.SuccessResponse(c, status)
}

func (h *ConsentHandler) LinkTeacher(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req services.LinkTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	req.InvitationCode = strings.ToUpper(strings.TrimSpace(req.InvitationCode))
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	link, err := h.consentService.LinkTeacher(c.Request.Context(), userID, &req)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		switch {
		case strings.Contains(err.Error(), "already linked"):
			utils.ConflictResponse(c, "ALREADY_LINKED", i18n.T(lang, i18n.KeyConsentAlreadyLinked))
		case strings.Contains(err.Error(), "invitation code not found"):
			utils.ErrorResponse(c, 404, "INVALID_CODE", i18n.T(lang, i18n.KeyConsentInvalidCode), nil)
		case strings.Contains(err.Error(), "only student accounts"):
			utils.ForbiddenResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to link teacher")
		}
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, link, gin.H{"message": i18n.T(lang, i18n.KeyConsentTeacherLinked)})
}

type grantConsentRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

func (h *ConsentHandler) GrantConsent(c *gin.Context) {
	parentID := mustUserID(c)
	if parentID == uuid.Nil {
		return
	}

	var req grantConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	consent, err := h.consentService.GrantConsent(c.Request.Context(), parentID, req.StudentID)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			utils.NotFoundResponse(c, "user")
		case strings.Contains(err.Error(), "only parent accounts"),
			strings.Contains(err.Error(), "student accounts"):
			utils.ForbiddenResponse(c, err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to grant consent")
		}
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, consent, gin.H{"message": i18n.T(lang, i18n.KeyConsentGranted)})
}

func (h *ConsentHandler) RevokeConsent(c *gin.Context) {
	parentID := mustUserID(c)
	if parentID == uuid.Nil {
		return
	}

	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid student id", nil)
		return
	}

	if err := h.consentService.RevokeConsent(c.Request.Context(), parentID, studentID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.ErrorResponse(c, 404, "NOT_FOUND", "Consent not found", nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to revoke consent")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, gin.H{"revoked": true}, gin.H{"message": i18n.T(lang, i18n.KeyConsentRevoked)})
}

// ListLinkedStudents returns the students linked to the calling teacher.
func (h *ConsentHandler) ListLinkedStudents(c *gin.Context) {
	teacherID := mustUserID(c)
	if teacherID == uuid.Nil {
		return
	}

	links, err := h.consentService.GetLinkedStudents(c.Request.Context(), teacherID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list linked students")
		return
	}

	utils.SuccessResponse(c, links)
}
