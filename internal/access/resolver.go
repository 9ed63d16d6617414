// internal/access/resolver.go

// Package access derives the call-to-action decision for a product given a
// buyer's purchase history. Resolution is a pure function of its inputs so
// callers can evaluate it per render or per request without side effects.
package access

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ludora/ludora-backend/internal/models"
)

// AccessAction is the verb shown to a buyer who already owns a product.
type AccessAction string

const (
	ActionView   AccessAction = "view"
	ActionStart  AccessAction = "start"
	ActionJoin   AccessAction = "join"
	ActionUse    AccessAction = "use"
	ActionPlay   AccessAction = "play"
	ActionAccess AccessAction = "access"
)

// PurchaseAction is the verb shown to a buyer who does not yet have access.
type PurchaseAction string

const (
	ActionFree     PurchaseAction = "free"
	ActionBuy      PurchaseAction = "buy"
	ActionCheckout PurchaseAction = "checkout"
)

// Decision is the four-way classification of a (product, buyer) pair.
type Decision struct {
	HasAccess      bool             `json:"has_access"`
	IsInCart       bool             `json:"is_in_cart"`
	IsPurchased    bool             `json:"is_purchased"`
	CanAddToCart   bool             `json:"can_add_to_cart"`
	CanPurchase    bool             `json:"can_purchase"`
	IsFree         bool             `json:"is_free"`
	AccessAction   AccessAction     `json:"access_action,omitempty"`
	PurchaseAction PurchaseAction   `json:"purchase_action,omitempty"`
	Purchase       *models.Purchase `json:"purchase,omitempty"`
}

// statuses that count as an existing purchase record during lookup
var lookupStatuses = map[models.PaymentStatus]bool{
	models.PaymentStatusPaid:      true,
	models.PaymentStatusCompleted: true,
	models.PaymentStatusCart:      true,
	models.PaymentStatusPending:   true,
}

// Resolve maps a product and the buyer's purchase list to a Decision.
//
// A nil product yields the zero Decision. Purchase lookup prefers an
// embedded record on the product (detail-page reads attach one); otherwise
// the supplied list is scanned in order and the first entry whose
// polymorphic reference matches the product wins. When several entries
// match, the extra rows are ignored but a warning is logged so stale
// cart-plus-paid pairs surface in operations instead of being silently
// collapsed.
func Resolve(product *models.Product, purchases []models.Purchase, now time.Time) Decision {
	if product == nil {
		return Decision{}
	}

	purchase := lookupPurchase(product, purchases)

	isFree := product.IsFree()
	isPaid := purchase != nil && purchase.IsSuccessfullyPaid()
	hasAccess := isPaid && (purchase.AccessExpiresAt == nil || purchase.AccessExpiresAt.After(now))
	isInCart := purchase != nil && purchase.PaymentStatus == models.PaymentStatusCart

	d := Decision{
		HasAccess:    hasAccess,
		IsInCart:     isInCart,
		IsPurchased:  isPaid,
		CanAddToCart: !isFree && purchase == nil,
		CanPurchase:  !hasAccess && !isPaid,
		IsFree:       isFree,
		Purchase:     purchase,
	}

	if d.HasAccess {
		d.AccessAction = accessActionFor(product.ProductType)
	}
	if d.CanPurchase {
		switch {
		case isFree:
			d.PurchaseAction = ActionFree
		case isInCart:
			d.PurchaseAction = ActionCheckout
		default:
			d.PurchaseAction = ActionBuy
		}
	}

	return d
}

func lookupPurchase(product *models.Product, purchases []models.Purchase) *models.Purchase {
	if product.Purchase != nil {
		return product.Purchase
	}

	var found *models.Purchase
	matches := 0
	for i := range purchases {
		p := &purchases[i]
		if !lookupStatuses[p.PaymentStatus] {
			continue
		}
		ref := p.EntityRef()
		if ref == nil {
			continue
		}
		if *ref == product.ID || (product.EntityID != nil && *ref == *product.EntityID) {
			matches++
			if found == nil {
				found = p
			}
		}
	}

	if matches > 1 {
		logrus.WithFields(logrus.Fields{
			"product_id": product.ID,
			"matches":    matches,
		}).Warn("multiple purchase records match product; using first match")
	}

	return found
}

func accessActionFor(t models.ProductType) AccessAction {
	switch t {
	case models.ProductTypeFile:
		return ActionView
	case models.ProductTypeCourse:
		return ActionStart
	case models.ProductTypeWorkshop:
		return ActionJoin
	case models.ProductTypeTool:
		return ActionUse
	case models.ProductTypeGame:
		return ActionPlay
	default:
		return ActionAccess
	}
}
