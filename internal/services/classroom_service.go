// internal/services/classroom_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/models"
	"github.com/ludora/ludora-backend/internal/utils"
)

type ClassroomService struct {
	db *gorm.DB
}

func NewClassroomService(db *gorm.DB) *ClassroomService {
	return &ClassroomService{db: db}
}

type CreateClassroomRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
	Subjects    []string `json:"subjects"`
	GradeLevel  string   `json:"grade_level" validate:"omitempty,max=50"`
}

type UpdateClassroomRequest struct {
	Name        string   `json:"name" validate:"omitempty,max=255"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
	Subjects    []string `json:"subjects"`
	GradeLevel  string   `json:"grade_level" validate:"omitempty,max=50"`
	IsActive    *bool    `json:"is_active"`
}

func (s *ClassroomService) CreateClassroom(ctx context.Context, teacherID uuid.UUID, req *CreateClassroomRequest) (*models.Classroom, error) {
	var teacher models.User
	if err := s.db.WithContext(ctx).First(&teacher, "id = ?", teacherID).Error; err != nil {
		return nil, errors.New("user not found")
	}
	if teacher.UserType != models.UserTypeTeacher && teacher.UserType != models.UserTypeAdmin {
		return nil, errors.New("only teachers can create classrooms")
	}

	code, err := s.uniqueInvitationCode(ctx)
	if err != nil {
		return nil, err
	}

	classroom := &models.Classroom{
		TeacherID:      teacherID,
		Name:           req.Name,
		Description:    req.Description,
		Subjects:       pq.StringArray(req.Subjects),
		GradeLevel:     req.GradeLevel,
		InvitationCode: code,
		IsActive:       true,
	}

	if err := s.db.WithContext(ctx).Create(classroom).Error; err != nil {
		return nil, err
	}
	return classroom, nil
}

func (s *ClassroomService) UpdateClassroom(ctx context.Context, classroomID, teacherID uuid.UUID, req *UpdateClassroomRequest) (*models.Classroom, error) {
	classroom, err := s.getOwnedClassroom(ctx, classroomID, teacherID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Subjects != nil {
		updates["subjects"] = pq.StringArray(req.Subjects)
	}
	if req.GradeLevel != "" {
		updates["grade_level"] = req.GradeLevel
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(classroom).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return classroom, nil
}

// RegenerateInvitationCode replaces the classroom's code. Outstanding copies
// of the old code stop working immediately; existing links are untouched.
func (s *ClassroomService) RegenerateInvitationCode(ctx context.Context, classroomID, teacherID uuid.UUID) (*models.Classroom, error) {
	classroom, err := s.getOwnedClassroom(ctx, classroomID, teacherID)
	if err != nil {
		return nil, err
	}

	code, err := s.uniqueInvitationCode(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(classroom).Update("invitation_code", code).Error; err != nil {
		return nil, err
	}
	classroom.InvitationCode = code
	return classroom, nil
}

func (s *ClassroomService) GetClassroom(ctx context.Context, classroomID, teacherID uuid.UUID) (*models.Classroom, error) {
	classroom, err := s.getOwnedClassroom(ctx, classroomID, teacherID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Preload("Memberships", "left_at IS NULL").
		Preload("Memberships.Student").
		First(classroom, "id = ?", classroom.ID).Error
	if err != nil {
		return nil, err
	}
	return classroom, nil
}

func (s *ClassroomService) ListTeacherClassrooms(ctx context.Context, teacherID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Classroom{}).Where("teacher_id = ?", teacherID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var classrooms []models.Classroom
	query = utils.ApplySort(query, params, []string{"created_at", "name"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&classrooms).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(classrooms, total, params)
	return &result, nil
}

// ListStudentClassrooms lists the classrooms a student currently belongs to.
func (s *ClassroomService) ListStudentClassrooms(ctx context.Context, studentID uuid.UUID) ([]models.ClassroomMembership, error) {
	var memberships []models.ClassroomMembership
	err := s.db.WithContext(ctx).
		Preload("Classroom").
		Preload("Classroom.Teacher").
		Where("student_id = ? AND left_at IS NULL", studentID).
		Find(&memberships).Error
	return memberships, err
}

// JoinClassroom adds an already-linked student to another classroom by code.
// First-time linking goes through the consent service instead.
func (s *ClassroomService) JoinClassroom(ctx context.Context, studentID uuid.UUID, invitationCode string) (*models.ClassroomMembership, error) {
	var classroom models.Classroom
	err := s.db.WithContext(ctx).
		Where("invitation_code = ? AND is_active = ?", invitationCode, true).
		First(&classroom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invitation code not found")
		}
		return nil, err
	}

	var existing models.ClassroomMembership
	err = s.db.WithContext(ctx).
		Where("classroom_id = ? AND student_id = ?", classroom.ID, studentID).
		First(&existing).Error
	if err == nil {
		if existing.LeftAt == nil {
			return nil, errors.New("already a member of this classroom")
		}
		// Rejoin: clear the departure marker.
		if err := s.db.WithContext(ctx).Model(&existing).Update("left_at", nil).Error; err != nil {
			return nil, err
		}
		existing.LeftAt = nil
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	membership := &models.ClassroomMembership{
		ClassroomID: classroom.ID,
		StudentID:   studentID,
		JoinedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *ClassroomService) LeaveClassroom(ctx context.Context, studentID, classroomID uuid.UUID) error {
	var membership models.ClassroomMembership
	err := s.db.WithContext(ctx).
		Where("classroom_id = ? AND student_id = ? AND left_at IS NULL", classroomID, studentID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("classroom membership not found")
		}
		return err
	}

	now := time.Now()
	return s.db.WithContext(ctx).Model(&membership).Update("left_at", &now).Error
}

func (s *ClassroomService) getOwnedClassroom(ctx context.Context, classroomID, teacherID uuid.UUID) (*models.Classroom, error) {
	var classroom models.Classroom
	err := s.db.WithContext(ctx).First(&classroom, "id = ?", classroomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("classroom not found")
		}
		return nil, err
	}
	if classroom.TeacherID != teacherID {
		return nil, errors.New("access denied")
	}
	return &classroom, nil
}

func (s *ClassroomService) uniqueInvitationCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateInvitationCode()
		if err != nil {
			return "", err
		}

		var count int64
		err = s.db.WithContext(ctx).Model(&models.Classroom{}).
			Where("invitation_code = ?", code).Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique invitation code")
}
