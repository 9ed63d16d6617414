// internal/services/auth_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/models"
	"github.com/ludora/ludora-backend/internal/utils"
)

type AuthService struct {
	db              *gorm.DB
	notifications   *NotificationService
	accessTokenTTL  int // hours
	refreshTokenTTL int // hours
}

func NewAuthService(db *gorm.DB, notifications *NotificationService, accessTokenTTL, refreshTokenTTL int) *AuthService {
	return &AuthService{
		db:              db,
		notifications:   notifications,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	UserType  string `json:"user_type" validate:"required,oneof=teacher student parent"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	// Check if user already exists
	var existingUser models.User
	err := s.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existingUser).Error
	if err == nil {
		return nil, errors.New("user with this email or username already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		UserType: models.UserType(req.UserType),
		Status:   models.UserStatusActive,
		ProfileData: models.JSONB{
			"first_name": req.FirstName,
			"last_name":  req.LastName,
		},
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"user_type": user.UserType,
	}).Info("User registered")

	if s.notifications != nil {
		go s.notifications.SendWelcomeEmail(user.Email, req.FirstName)
		go s.sendEmailVerification(user)
	}

	return s.generateAuthResponse(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	var user models.User
	err := s.db.Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, errors.New("invalid credentials")
	}

	if user.Status != models.UserStatusActive {
		return nil, errors.New("account is suspended")
	}

	now := time.Now()
	s.db.Model(&user).Update("last_login_at", &now)

	return s.generateAuthResponse(&user)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", subject).Error; err != nil {
		return nil, errors.New("user not found")
	}

	if user.Status != models.UserStatusActive {
		return nil, errors.New("account is suspended")
	}

	return s.generateAuthResponse(&user)
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &user, nil
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Bio       string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (s *AuthService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if user.ProfileData == nil {
		user.ProfileData = models.JSONB{}
	}
	if req.FirstName != "" {
		user.ProfileData["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		user.ProfileData["last_name"] = req.LastName
	}
	if req.Bio != "" {
		user.ProfileData["bio"] = req.Bio
	}
	if req.AvatarURL != "" {
		user.ProfileData["avatar_url"] = req.AvatarURL
	}

	if err := s.db.Model(user).Update("profile_data", user.ProfileData).Error; err != nil {
		return nil, err
	}
	return user, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (s *AuthService) ChangePassword(userID uuid.UUID, req *ChangePasswordRequest) error {
	user, err := s.GetProfile(userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return errors.New("current password is incorrect")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}

	return s.db.Model(user).Update("password_hash", user.PasswordHash).Error
}

// RequestPasswordReset stores a hashed reset token on the profile and mails
// the plain token. The response is identical whether or not the email
// exists, so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(email string) error {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := utils.GenerateVerificationCode()
	if err != nil {
		return err
	}

	if user.ProfileData == nil {
		user.ProfileData = models.JSONB{}
	}
	user.ProfileData["password_reset_token"] = utils.HashString(token)
	user.ProfileData["password_reset_expires"] = time.Now().Add(time.Hour).Unix()

	if err := s.db.Model(&user).Update("profile_data", user.ProfileData).Error; err != nil {
		return err
	}

	if s.notifications != nil {
		go s.notifications.SendPasswordResetEmail(user.Email, token)
	}
	return nil
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (s *AuthService) ResetPassword(req *ResetPasswordRequest) error {
	hashed := utils.HashString(req.Token)

	var user models.User
	err := s.db.Where("profile_data->>'password_reset_token' = ?", hashed).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("invalid or expired reset token")
		}
		return err
	}

	if expires, ok := user.ProfileData["password_reset_expires"].(float64); !ok || time.Now().Unix() > int64(expires) {
		return errors.New("invalid or expired reset token")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	delete(user.ProfileData, "password_reset_token")
	delete(user.ProfileData, "password_reset_expires")

	return s.db.Model(&user).Updates(map[string]interface{}{
		"password_hash": user.PasswordHash,
		"profile_data":  user.ProfileData,
	}).Error
}

func (s *AuthService) VerifyEmail(token string) error {
	hashed := utils.HashString(token)

	var user models.User
	err := s.db.Where("profile_data->>'email_verification_token' = ?", hashed).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("invalid verification token")
		}
		return err
	}

	now := time.Now()
	delete(user.ProfileData, "email_verification_token")

	return s.db.Model(&user).Updates(map[string]interface{}{
		"email_verified_at": &now,
		"profile_data":      user.ProfileData,
	}).Error
}

func (s *AuthService) sendEmailVerification(user *models.User) {
	token, err := utils.GenerateVerificationCode()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate verification token")
		return
	}

	profile := user.ProfileData
	if profile == nil {
		profile = models.JSONB{}
	}
	profile["email_verification_token"] = utils.HashString(token)

	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("profile_data", profile).Error; err != nil {
		logrus.WithError(err).Error("Failed to store verification token")
		return
	}

	s.notifications.SendEmailVerification(user.Email, token)
}

func (s *AuthService) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Username, string(user.UserType), s.accessTokenTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.refreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.accessTokenTTL) * 3600,
	}, nil
}
