// internal/services/admin_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/models"
	"github.com/ludora/ludora-backend/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) ListUsers(params utils.PaginationParams, userType, status string) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.User{})

	if userType != "" {
		query = query.Where("user_type = ?", userType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var users []models.User
	query = utils.ApplySort(query, params, []string{"created_at", "username", "email", "last_login_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(users, total, params)
	return &result, nil
}

func (s *AdminService) UpdateUserStatus(adminID, userID uuid.UUID, status models.UserStatus) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}

	if user.UserType == models.UserTypeAdmin {
		return nil, errors.New("admin accounts cannot be modified")
	}

	oldStatus := user.Status
	if err := s.db.Model(&user).Update("status", status).Error; err != nil {
		return nil, err
	}
	user.Status = status

	logrus.WithFields(logrus.Fields{
		"admin_id":   adminID,
		"user_id":    userID,
		"old_status": oldStatus,
		"new_status": status,
	}).Info("User status updated")

	return &user, nil
}

func (s *AdminService) SuspendProduct(adminID, productID uuid.UUID, reason string) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}

	if err := s.db.Model(&product).Update("status", models.ProductStatusSuspended).Error; err != nil {
		return nil, err
	}
	product.Status = models.ProductStatusSuspended

	logrus.WithFields(logrus.Fields{
		"admin_id":   adminID,
		"product_id": productID,
		"reason":     reason,
	}).Warn("Product suspended")

	return &product, nil
}

func (s *AdminService) GetSettings(category string) ([]models.AdminSettings, error) {
	var settings []models.AdminSettings
	query := s.db.Model(&models.AdminSettings{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("category, key").Find(&settings).Error
	return settings, err
}

type UpdateSettingRequest struct {
	Category string                 `json:"category" validate:"required,max=50"`
	Key      string                 `json:"key" validate:"required,max=100"`
	Value    map[string]interface{} `json:"value" validate:"required"`
}

func (s *AdminService) UpdateSetting(adminID uuid.UUID, req *UpdateSettingRequest) (*models.AdminSettings, error) {
	var setting models.AdminSettings
	err := s.db.Where("category = ? AND key = ?", req.Category, req.Key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("setting not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"value":      models.JSONB(req.Value),
		"updated_by": adminID,
	}
	if err := s.db.Model(&setting).Updates(updates).Error; err != nil {
		return nil, err
	}
	setting.Value = models.JSONB(req.Value)
	setting.UpdatedBy = adminID
	return &setting, nil
}

func (s *AdminService) ListAuditLogs(params utils.PaginationParams, action, resourceType string) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.AuditLog{})

	if action != "" {
		query = query.Where("action = ?", action)
	}
	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.AuditLog
	query = utils.ApplySort(query, params, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("User").Find(&logs).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(logs, total, params)
	return &result, nil
}

// RecordAudit writes an audit row. Failures are logged, never surfaced; an
// audit problem must not fail the user's request.
func (s *AdminService) RecordAudit(userID *uuid.UUID, action, resourceType string, resourceID *uuid.UUID, oldValues, newValues models.JSONB, ipAddress, userAgent string) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    oldValues,
		NewValues:    newValues,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logrus.WithError(err).WithField("action", action).Error("Failed to write audit log")
	}
}

// PlatformStats aggregates headline counts for the admin dashboard.
type PlatformStats struct {
	TotalUsers      int64 `json:"total_users"`
	TotalStudents   int64 `json:"total_students"`
	TotalTeachers   int64 `json:"total_teachers"`
	TotalProducts   int64 `json:"total_products"`
	TotalPurchases  int64 `json:"total_purchases"`
	PendingConsents int64 `json:"pending_consents"`
}

func (s *AdminService) GetPlatformStats() (*PlatformStats, error) {
	stats := &PlatformStats{}

	s.db.Model(&models.User{}).Count(&stats.TotalUsers)
	s.db.Model(&models.User{}).Where("user_type = ?", models.UserTypeStudent).Count(&stats.TotalStudents)
	s.db.Model(&models.User{}).Where("user_type = ?", models.UserTypeTeacher).Count(&stats.TotalTeachers)
	s.db.Model(&models.Product{}).Where("status = ?", models.ProductStatusPublished).Count(&stats.TotalProducts)
	s.db.Model(&models.Purchase{}).
		Where("payment_status IN ?", []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusCompleted}).
		Count(&stats.TotalPurchases)

	// Students linked to a teacher but still waiting on parent consent.
	s.db.Model(&models.TeacherLink{}).
		Where("student_id NOT IN (?)",
			s.db.Model(&models.ParentConsent{}).Select("student_id").Where("revoked_at IS NULL")).
		Count(&stats.PendingConsents)

	return stats, nil
}
