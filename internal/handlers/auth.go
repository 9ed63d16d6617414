// internal/handlers/auth.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/i18n"
	"github.com/ludora/ludora-backend/internal/services"
	"github.com/ludora/ludora-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	response, err := h.authService.Register(&req)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		if strings.Contains(err.Error(), "already exists") {
			utils.ErrorResponse(c, 409, "USER_EXISTS", i18n.T(lang, i18n.KeyAuthUserExists), nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to create account")
		return
	}

	utils.CreatedResponse(c, response)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	response, err := h.authService.Login(&req)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		switch {
		case strings.Contains(err.Error(), "invalid credentials"):
			utils.ErrorResponse(c, 401, "INVALID_CREDENTIALS", i18n.T(lang, i18n.KeyAuthInvalidCredentials), nil)
		case strings.Contains(err.Error(), "suspended"):
			utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyUserSuspended))
		default:
			utils.InternalErrorResponse(c, "Login failed")
		}
		return
	}

	utils.SuccessResponse(c, response)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	response, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.ErrorResponse(c, 401, "INVALID_TOKEN", i18n.T(lang, i18n.KeyAuthInvalidToken), nil)
		return
	}

	utils.SuccessResponse(c, response)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		utils.NotFoundResponse(c, "user")
		return
	}

	utils.SuccessResponse(c, user)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	user, err := h.authService.UpdateProfile(userID, &req)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to update profile")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponseWithMeta(c, user, gin.H{"message": i18n.T(lang, i18n.KeyUserProfileUpdated)})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := mustUserID(c)
	if userID == uuid.Nil {
		return
	}

	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	if err := h.authService.ChangePassword(userID, &req); err != nil {
		if strings.Contains(err.Error(), "incorrect") {
			utils.BadRequestResponse(c, "Current password is incorrect", nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to change password")
		return
	}

	utils.SuccessResponse(c, gin.H{"changed": true})
}

// Logout is stateless; tokens simply age out. The endpoint exists so clients
// have a uniform call to clear their session against.
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess)})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	if err := h.authService.RequestPasswordReset(req.Email); err != nil {
		utils.InternalErrorResponse(c, "Failed to process reset request")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthPasswordReset)})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		if strings.Contains(err.Error(), "invalid or expired") {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to reset password")
		return
	}

	utils.SuccessResponse(c, gin.H{"reset": true})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.BadRequestResponse(c, "Verification token is required", nil)
		return
	}

	if err := h.authService.VerifyEmail(token); err != nil {
		if strings.Contains(err.Error(), "invalid") {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to verify email")
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthEmailVerified)})
}

// mustUserID pulls the authenticated user id from context, responding 401
// when it is missing or malformed.
func mustUserID(c *gin.Context) uuid.UUID {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil
	}
	return userID
}
