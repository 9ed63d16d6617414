// internal/models/purchase.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Purchase struct {
	BaseModel
	BuyerID uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	// PurchasableID is the polymorphic entity reference. ProductID is the
	// legacy column from before the schema migration; readers must fall back
	// to it when PurchasableID is absent.
	PurchasableID   *uuid.UUID    `json:"purchasable_id" gorm:"type:uuid;index"`
	ProductID       *uuid.UUID    `json:"product_id" gorm:"type:uuid;index"`
	PurchasableType string        `json:"purchasable_type,omitempty" gorm:"size:50"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'cart';index"`
	Amount          float64       `json:"amount" gorm:"type:decimal(10,2);not null"`
	// AccessExpiresAt nil means lifetime access.
	AccessExpiresAt  *time.Time `json:"access_expires_at"`
	PaymentReference string     `json:"payment_reference,omitempty" gorm:"size:255"`
	PaidAt           *time.Time `json:"paid_at"`
	RefundedAt       *time.Time `json:"refunded_at"`
	Metadata         JSONB      `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Buyer   User     `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// EntityRef resolves the polymorphic purchasable reference, preferring the
// current column over the legacy one.
func (p *Purchase) EntityRef() *uuid.UUID {
	if p.PurchasableID != nil {
		return p.PurchasableID
	}
	return p.ProductID
}

// IsSuccessfullyPaid reports whether the purchase reached a paid state.
func (p *Purchase) IsSuccessfullyPaid() bool {
	return p.PaymentStatus == PaymentStatusPaid || p.PaymentStatus == PaymentStatusCompleted
}
