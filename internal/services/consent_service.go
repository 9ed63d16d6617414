// internal/services/consent_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/cache"
	"github.com/ludora/ludora-backend/internal/coalesce"
	"github.com/ludora/ludora-backend/internal/models"
)

// ConsentService derives the enforcement status for student sessions and
// manages teacher links and parent consents. Derived statuses are cached in
// Redis and concurrent derivations for the same student are coalesced.
type ConsentService struct {
	db            *gorm.DB
	statuses      *cache.ConsentStatusCache
	notifications *NotificationService
	group         *coalesce.Group
}

func NewConsentService(db *gorm.DB, statuses *cache.ConsentStatusCache) *ConsentService {
	return &ConsentService{
		db:       db,
		statuses: statuses,
		group:    coalesce.New(2 * time.Second),
	}
}

// WithNotifications enables consent emails; tests leave it unset.
func (s *ConsentService) WithNotifications(n *NotificationService) *ConsentService {
	s.notifications = n
	return s
}

type LinkTeacherRequest struct {
	InvitationCode string `json:"invitation_code" validate:"required,invitation_code"`
}

// GetConsentStatus returns the enforcement status for a user. Non-student
// accounts are always complete; no link or consent rows are consulted.
func (s *ConsentService) GetConsentStatus(ctx context.Context, userID uuid.UUID, userType models.UserType) (*models.ConsentStatus, error) {
	if userType != models.UserTypeStudent {
		return &models.ConsentStatus{
			Status:           models.EnforcementComplete,
			HasParentConsent: true,
		}, nil
	}

	if s.statuses != nil {
		if status, err := s.statuses.Get(ctx, userID); err == nil {
			return status, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			logrus.WithError(err).Warn("Consent status cache read failed; deriving from database")
		}
	}

	value, err := s.group.Do("consent-status:"+userID.String(), func() (interface{}, error) {
		return s.deriveStatus(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	status := value.(*models.ConsentStatus)

	if s.statuses != nil {
		if err := s.statuses.Set(ctx, userID, status); err != nil {
			logrus.WithError(err).Warn("Consent status cache write failed")
		}
	}

	return status, nil
}

// deriveStatus evaluates the gate from the database. Teacher linking is
// checked before parent consent; a student without a teacher link is
// need_teacher even if a consent row exists.
func (s *ConsentService) deriveStatus(ctx context.Context, studentID uuid.UUID) (*models.ConsentStatus, error) {
	var link models.TeacherLink
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ConsentStatus{
				Status:       models.EnforcementNeedTeacher,
				NeedsTeacher: true,
				NeedsConsent: true,
			}, nil
		}
		return nil, err
	}

	var consentCount int64
	err = s.db.WithContext(ctx).Model(&models.ParentConsent{}).
		Where("student_id = ? AND revoked_at IS NULL", studentID).
		Count(&consentCount).Error
	if err != nil {
		return nil, err
	}

	status := &models.ConsentStatus{
		LinkedTeacherID:  &link.TeacherID,
		HasParentConsent: consentCount > 0,
	}
	if consentCount == 0 {
		status.Status = models.EnforcementNeedConsent
		status.NeedsConsent = true
	} else {
		status.Status = models.EnforcementComplete
	}
	return status, nil
}

// LinkTeacher redeems a classroom invitation code for a student, creating
// the teacher link and a classroom membership in one transaction.
func (s *ConsentService) LinkTeacher(ctx context.Context, studentID uuid.UUID, req *LinkTeacherRequest) (*models.TeacherLink, error) {
	code := strings.ToUpper(strings.TrimSpace(req.InvitationCode))
	if code == "" {
		return nil, errors.New("invitation code is required")
	}

	var student models.User
	if err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	if !student.IsStudent() {
		return nil, errors.New("only student accounts can link to a teacher")
	}

	var existing models.TeacherLink
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).First(&existing).Error
	if err == nil {
		return nil, errors.New("already linked to a teacher")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var classroom models.Classroom
	err = s.db.WithContext(ctx).
		Where("invitation_code = ? AND is_active = ?", code, true).
		First(&classroom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invitation code not found")
		}
		return nil, err
	}

	link := &models.TeacherLink{
		StudentID:      studentID,
		TeacherID:      classroom.TeacherID,
		ClassroomID:    &classroom.ID,
		InvitationCode: code,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			return err
		}

		membership := &models.ClassroomMembership{
			ClassroomID: classroom.ID,
			StudentID:   studentID,
			JoinedAt:    time.Now(),
		}
		return tx.Create(membership).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, studentID)
	return link, nil
}

// GrantConsent records a parent's approval for a student account. Granting
// again while a grant is in force is a no-op returning the existing row.
func (s *ConsentService) GrantConsent(ctx context.Context, parentID, studentID uuid.UUID) (*models.ParentConsent, error) {
	var parent models.User
	if err := s.db.WithContext(ctx).First(&parent, "id = ?", parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	if parent.UserType != models.UserTypeParent && parent.UserType != models.UserTypeAdmin {
		return nil, errors.New("only parent accounts can grant consent")
	}

	var student models.User
	if err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("student not found")
		}
		return nil, err
	}
	if !student.IsStudent() {
		return nil, errors.New("consent can only be granted for student accounts")
	}

	var existing models.ParentConsent
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND revoked_at IS NULL", studentID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	consent := &models.ParentConsent{
		StudentID: studentID,
		ParentID:  parentID,
		GrantedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(consent).Error; err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, studentID)

	if s.notifications != nil {
		go s.notifications.SendConsentGrantedEmail(parent.Email, student.Username)
	}
	return consent, nil
}

// RevokeConsent marks the active grant revoked. The student drops back to
// need_consent on the next status derivation.
func (s *ConsentService) RevokeConsent(ctx context.Context, parentID, studentID uuid.UUID) error {
	var consent models.ParentConsent
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND parent_id = ? AND revoked_at IS NULL", studentID, parentID).
		First(&consent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("consent not found")
		}
		return err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&consent).Update("revoked_at", &now).Error; err != nil {
		return err
	}

	s.invalidateStatus(ctx, studentID)
	return nil
}

// GetLinkedStudents lists students linked to a teacher, for roster views.
func (s *ConsentService) GetLinkedStudents(ctx context.Context, teacherID uuid.UUID) ([]models.TeacherLink, error) {
	var links []models.TeacherLink
	err := s.db.WithContext(ctx).
		Preload("Student").
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&links).Error
	return links, err
}

func (s *ConsentService) invalidateStatus(ctx context.Context, studentID uuid.UUID) {
	s.group.Forget("consent-status:" + studentID.String())
	if s.statuses != nil {
		if err := s.statuses.Invalidate(ctx, studentID); err != nil {
			logrus.WithError(err).Warn("Consent status cache invalidation failed")
		}
	}
}
