// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// IDs are assigned application-side so the schema works on any SQL backend.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeTeacher UserType = "teacher"
	UserTypeStudent UserType = "student"
	UserTypeParent  UserType = "parent"
	UserTypeAdmin   UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type ProductType string

const (
	ProductTypeFile       ProductType = "file"
	ProductTypeCourse     ProductType = "course"
	ProductTypeWorkshop   ProductType = "workshop"
	ProductTypeTool       ProductType = "tool"
	ProductTypeGame       ProductType = "game"
	ProductTypeLessonPlan ProductType = "lesson_plan"
)

type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
	ProductStatusArchived  ProductStatus = "archived"
	ProductStatusSuspended ProductStatus = "suspended"
)

type PaymentStatus string

const (
	PaymentStatusCart      PaymentStatus = "cart"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// EnforcementStatus is the consent gate decision for a student session.
// need_teacher takes precedence over need_consent: a student must be linked
// to a teacher before parent consent can be evaluated.
type EnforcementStatus string

const (
	EnforcementComplete    EnforcementStatus = "complete"
	EnforcementNeedTeacher EnforcementStatus = "need_teacher"
	EnforcementNeedConsent EnforcementStatus = "need_consent"
)
