// internal/models/classroom.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Classroom struct {
	BaseModel
	TeacherID   uuid.UUID      `json:"teacher_id" gorm:"type:uuid;not null;index"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Subjects    pq.StringArray `json:"subjects" gorm:"type:text[]"`
	GradeLevel  string         `json:"grade_level" gorm:"size:50"`
	// InvitationCode is redeemed by students to join the classroom and, as a
	// side effect, link to the owning teacher for consent enforcement.
	InvitationCode string `json:"invitation_code" gorm:"size:16;uniqueIndex"`
	IsActive       bool   `json:"is_active" gorm:"default:true"`

	// Relationships
	Teacher     User                  `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Memberships []ClassroomMembership `json:"memberships,omitempty" gorm:"foreignKey:ClassroomID"`
}

type ClassroomMembership struct {
	BaseModel
	ClassroomID uuid.UUID  `json:"classroom_id" gorm:"type:uuid;not null;index:idx_classroom_student,unique"`
	StudentID   uuid.UUID  `json:"student_id" gorm:"type:uuid;not null;index:idx_classroom_student,unique"`
	JoinedAt    time.Time  `json:"joined_at" gorm:"not null"`
	LeftAt      *time.Time `json:"left_at"`

	// Relationships
	Classroom Classroom `json:"classroom,omitempty" gorm:"foreignKey:ClassroomID"`
	Student   User      `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}
