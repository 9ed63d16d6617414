// internal/models/consent.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TeacherLink binds a student account to the teacher who supervises it.
// A student has at most one active link; it is created when the student
// redeems a classroom invitation code.
type TeacherLink struct {
	BaseModel
	StudentID      uuid.UUID  `json:"student_id" gorm:"type:uuid;not null;uniqueIndex"`
	TeacherID      uuid.UUID  `json:"teacher_id" gorm:"type:uuid;not null;index"`
	ClassroomID    *uuid.UUID `json:"classroom_id" gorm:"type:uuid;index"`
	InvitationCode string     `json:"invitation_code" gorm:"size:16"`

	// Relationships
	Student User `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Teacher User `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// ParentConsent records a parent's approval for a student account. A grant
// with a nil RevokedAt is in force.
type ParentConsent struct {
	BaseModel
	StudentID uuid.UUID  `json:"student_id" gorm:"type:uuid;not null;index"`
	ParentID  uuid.UUID  `json:"parent_id" gorm:"type:uuid;not null;index"`
	GrantedAt time.Time  `json:"granted_at" gorm:"not null"`
	RevokedAt *time.Time `json:"revoked_at"`

	// Relationships
	Student User `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Parent  User `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

// ConsentStatus is the wire shape of GET /v1/auth/consent-status. It is
// derived, never persisted.
type ConsentStatus struct {
	Status           EnforcementStatus `json:"status"`
	NeedsTeacher     bool              `json:"needs_teacher"`
	NeedsConsent     bool              `json:"needs_consent"`
	LinkedTeacherID  *uuid.UUID        `json:"linked_teacher_id"`
	HasParentConsent bool              `json:"has_parent_consent"`
}
