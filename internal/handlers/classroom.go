// internal/handlers/classroom.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/i18n"
	"github.com/ludora/ludora-backend/internal/services"
	"github.com/ludora/ludora-backend/internal/utils"
)

type ClassroomHandler struct {
	classroomService *services.ClassroomService
}

func NewClassroomHandler(classroomService *services.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{classroomService: classroomService}
}

func (h *ClassroomHandler) CreateClassroom(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req services.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	classroom, err := h.classroomService.CreateClassroom(c.Request.Context(), userID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "only teachers") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Failed to create classroom")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, classroom, gin.H{"message": i18n.T(lang, i18n.KeyClassroomCreated)})
}

func (h *ClassroomHandler) UpdateClassroom(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	classroomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid classroom id", nil)
		return
	}

	var req services.UpdateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	classroom, err := h.classroomService.UpdateClassroom(c.Request.Context(), classroomID, userID, &req)
	if err != nil {
		h.respondClassroomError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, classroom, gin.H{"message": i18n.T(lang, i18n.KeyClassroomUpdated)})
}

func (h *ClassroomHandler) RegenerateInvitationCode(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	classroomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid classroom id", nil)
		return
	}

	classroom, err := h.classroomService.RegenerateInvitationCode(c.Request.Context(), classroomID, userID)
	if err != nil {
		h.respondClassroomError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"invitation_code": classroom.InvitationCode})
}

func (h *ClassroomHandler) GetClassroom(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	classroomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid classroom id", nil)
		return
	}

	classroom, err := h.classroomService.GetClassroom(c.Request.Context(), classroomID, userID)
	if err != nil {
		h.respondClassroomError(c, err)
		return
	}

	utils.SuccessResponse(c, classroom)
}

func (h *ClassroomHandler) ListMyClassrooms(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	userType, _ := utils.GetUserTypeFromContext(c)
	if userType == "student" {
		memberships, err := h.classroomService.ListStudentClassrooms(c.Request.Context(), userID)
		if err != nil {
			utils.InternalErrorResponse(c, "Failed to list classrooms")
			return
		}
		utils.SuccessResponse(c, memberships)
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.classroomService.ListTeacherClassrooms(c.Request.Context(), userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list classrooms")
		return
	}

	utils.PaginatedResponse(c, *result)
}

type joinClassroomRequest struct {
	InvitationCode string `json:"invitation_code" validate:"required,invitation_code"`
}

func (h *ClassroomHandler) JoinClassroom(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req joinClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	req.InvitationCode = strings.ToUpper(strings.TrimSpace(req.InvitationCode))
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	membership, err := h.classroomService.JoinClassroom(c.Request.Context(), userID, req.InvitationCode)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		switch {
		case strings.Contains(err.Error(), "invitation code not found"):
			utils.ErrorResponse(c, 404, "INVALID_CODE", i18n.T(lang, i18n.KeyConsentInvalidCode), nil)
		case strings.Contains(err.Error(), "already a member"):
			utils.ConflictResponse(c, "ALREADY_MEMBER", err.Error())
		default:
			utils.InternalErrorResponse(c, "Failed to join classroom")
		}
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, membership, gin.H{"message": i18n.T(lang, i18n.KeyClassroomJoined)})
}

func (h *ClassroomHandler) LeaveClassroom(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	classroomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid classroom id", nil)
		return
	}

	if err := h.classroomService.LeaveClassroom(c.Request.Context(), userID, classroomID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "classroom")
			return
		}
		utils.InternalErrorResponse(c, "Failed to leave classroom")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, gin.H{"left": true}, gin.H{"message": i18n.T(lang, i18n.KeyClassroomLeft)})
}

func (h *ClassroomHandler) respondClassroomError(c *gin.Context, err error) {
	switch {
	case strings.Contains(err.Error(), "not found"):
		utils.NotFoundResponse(c, "classroom")
	case strings.Contains(err.Error(), "access denied"):
		utils.ForbiddenResponse(c, "")
	default:
		utils.InternalErrorResponse(c, "Classroom operation failed")
	}
}
