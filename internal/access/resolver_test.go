// internal/access/resolver_test.go
package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ludora/ludora-backend/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func newProduct(t models.ProductType, price *float64) *models.Product {
	p := &models.Product{ProductType: t, Price: price}
	p.ID = uuid.New()
	return p
}

func purchaseFor(productID uuid.UUID, status models.PaymentStatus, expires *time.Time) models.Purchase {
	id := productID
	return models.Purchase{
		PurchasableID:   &id,
		PaymentStatus:   status,
		AccessExpiresAt: expires,
	}
}

func TestResolveNilProduct(t *testing.T) {
	d := Resolve(nil, nil, time.Now())

	assert.Equal(t, Decision{}, d)
}

func TestResolveFreeClassification(t *testing.T) {
	now := time.Now()

	for name, price := range map[string]*float64{
		"nil price":  nil,
		"zero price": floatPtr(0),
	} {
		t.Run(name, func(t *testing.T) {
			d := Resolve(newProduct(models.ProductTypeFile, price), nil, now)

			assert.True(t, d.IsFree)
			assert.False(t, d.CanAddToCart)
			assert.True(t, d.CanPurchase)
			assert.Equal(t, ActionFree, d.PurchaseAction)
			assert.Empty(t, d.AccessAction)
		})
	}
}

func TestResolveLifetimeAccess(t *testing.T) {
	now := time.Now()

	for _, status := range []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusCompleted} {
		product := newProduct(models.ProductTypeCourse, floatPtr(50))
		purchases := []models.Purchase{purchaseFor(product.ID, status, nil)}

		d := Resolve(product, purchases, now)

		assert.True(t, d.HasAccess, "status %s with nil expiry grants lifetime access", status)
		assert.True(t, d.IsPurchased)
		assert.False(t, d.CanPurchase)
		assert.Equal(t, ActionStart, d.AccessAction)
	}
}

func TestResolveExpiredPurchase(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	product := newProduct(models.ProductTypeCourse, floatPtr(50))
	purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusPaid, &past)}

	d := Resolve(product, purchases, now)

	assert.False(t, d.HasAccess, "expired paid purchase must not grant access")
	assert.True(t, d.IsPurchased)
	assert.False(t, d.CanPurchase, "paid-but-expired still suppresses repurchase")
	assert.Empty(t, d.AccessAction)
}

func TestResolveFutureExpiry(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	product := newProduct(models.ProductTypeGame, floatPtr(30))
	purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusCompleted, &future)}

	d := Resolve(product, purchases, now)

	assert.True(t, d.HasAccess)
	assert.Equal(t, ActionPlay, d.AccessAction)
}

func TestResolveCartItem(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeFile, floatPtr(20))
	purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusCart, nil)}

	d := Resolve(product, purchases, now)

	assert.True(t, d.IsInCart)
	assert.False(t, d.CanAddToCart, "existing cart record suppresses add-to-cart")
	assert.True(t, d.CanPurchase)
	assert.Equal(t, ActionCheckout, d.PurchaseAction)
	assert.False(t, d.HasAccess)
}

func TestResolvePendingSuppressesAddToCart(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeWorkshop, floatPtr(15))
	purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusPending, nil)}

	d := Resolve(product, purchases, now)

	assert.False(t, d.CanAddToCart)
	assert.False(t, d.IsInCart)
	assert.True(t, d.CanPurchase)
	assert.Equal(t, ActionBuy, d.PurchaseAction)
}

func TestResolvePaidProductNoPurchases(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeLessonPlan, floatPtr(12))

	d := Resolve(product, nil, now)

	assert.False(t, d.IsFree)
	assert.True(t, d.CanAddToCart)
	assert.True(t, d.CanPurchase)
	assert.Equal(t, ActionBuy, d.PurchaseAction)
	assert.Nil(t, d.Purchase)
}

func TestResolveLegacyProductRef(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeTool, floatPtr(5))
	legacyID := product.ID
	purchases := []models.Purchase{{
		ProductID:     &legacyID,
		PaymentStatus: models.PaymentStatusPaid,
	}}

	d := Resolve(product, purchases, now)

	assert.True(t, d.HasAccess, "legacy product_id reference must resolve")
	assert.Equal(t, ActionUse, d.AccessAction)
}

func TestResolveEntityIDMatch(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeGame, floatPtr(10))
	entityID := uuid.New()
	product.EntityID = &entityID
	purchases := []models.Purchase{purchaseFor(entityID, models.PaymentStatusPaid, nil)}

	d := Resolve(product, purchases, now)

	assert.True(t, d.HasAccess)
}

func TestResolveEmbeddedPurchasePreferred(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeCourse, floatPtr(40))
	embedded := purchaseFor(product.ID, models.PaymentStatusPaid, nil)
	product.Purchase = &embedded

	// The list carries a conflicting cart row; the embedded record wins.
	purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusCart, nil)}

	d := Resolve(product, purchases, now)

	assert.True(t, d.HasAccess)
	assert.Same(t, &embedded, d.Purchase)
}

func TestResolveFirstMatchWins(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeCourse, floatPtr(40))
	stale := purchaseFor(product.ID, models.PaymentStatusCart, nil)
	newer := purchaseFor(product.ID, models.PaymentStatusPaid, nil)
	purchases := []models.Purchase{stale, newer}

	d := Resolve(product, purchases, now)

	// Stale cart row listed first wins; no recency tiebreak is applied.
	assert.True(t, d.IsInCart)
	assert.False(t, d.HasAccess)
}

func TestResolveIgnoresNonLookupStatuses(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeFile, floatPtr(8))
	purchases := []models.Purchase{
		purchaseFor(product.ID, models.PaymentStatusRefunded, nil),
		purchaseFor(product.ID, models.PaymentStatusFailed, nil),
	}

	d := Resolve(product, purchases, now)

	assert.Nil(t, d.Purchase)
	assert.True(t, d.CanAddToCart)
	assert.Equal(t, ActionBuy, d.PurchaseAction)
}

func TestResolveIdempotent(t *testing.T) {
	now := time.Now()

	product := newProduct(models.ProductTypeWorkshop, floatPtr(25))
	purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusPaid, nil)}

	first := Resolve(product, purchases, now)
	second := Resolve(product, purchases, now)

	assert.Equal(t, first, second)
}

func TestAccessActionByProductType(t *testing.T) {
	now := time.Now()

	cases := map[models.ProductType]AccessAction{
		models.ProductTypeFile:       ActionView,
		models.ProductTypeCourse:     ActionStart,
		models.ProductTypeWorkshop:   ActionJoin,
		models.ProductTypeTool:       ActionUse,
		models.ProductTypeGame:       ActionPlay,
		models.ProductTypeLessonPlan: ActionAccess,
	}

	for productType, want := range cases {
		product := newProduct(productType, floatPtr(10))
		purchases := []models.Purchase{purchaseFor(product.ID, models.PaymentStatusPaid, nil)}

		d := Resolve(product, purchases, now)

		assert.Equal(t, want, d.AccessAction, "product type %s", productType)
	}
}
