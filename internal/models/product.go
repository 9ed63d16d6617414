// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	CreatorID   uuid.UUID      `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	ProductType ProductType    `json:"product_type" gorm:"type:varchar(20);not null;index"`
	// Price is nullable; nil or zero means the product is free.
	Price *float64 `json:"price" gorm:"type:decimal(10,2)"`
	// EntityID points at the underlying content entity (game build, course
	// outline, uploaded file) when the product wraps one.
	EntityID    *uuid.UUID     `json:"entity_id" gorm:"type:uuid;index"`
	FileKey     string         `json:"file_key,omitempty" gorm:"size:512"`
	FileURL     string         `json:"file_url,omitempty" gorm:"size:1024"`
	Subjects    pq.StringArray `json:"subjects" gorm:"type:text[]"`
	GradeLevels pq.StringArray `json:"grade_levels" gorm:"type:text[]"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Attributes  JSONB          `json:"attributes" gorm:"type:jsonb"`
	Status      ProductStatus  `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	ViewCount   int64          `json:"view_count" gorm:"default:0"`
	SalesCount  int64          `json:"sales_count" gorm:"default:0"`

	// Relationships
	Creator User `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`

	// Purchase is the current buyer's purchase record, attached by
	// detail-style reads. Never persisted on the product row.
	Purchase *Purchase `json:"purchase,omitempty" gorm:"-"`
}

// IsFree reports the free classification: an absent or zero price means the
// product is free regardless of any other state.
func (p *Product) IsFree() bool {
	return p.Price == nil || *p.Price == 0
}
