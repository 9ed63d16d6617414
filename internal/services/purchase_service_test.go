// internal/services/purchase_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/models"
)

func setupPurchaseTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Purchase{}))
	return db
}

func createTestProduct(t *testing.T, db *gorm.DB, creatorID uuid.UUID, price *float64) *models.Product {
	t.Helper()

	product := &models.Product{
		CreatorID:   creatorID,
		Title:       "Fractions Worksheet",
		Description: "Printable fractions practice",
		ProductType: models.ProductTypeFile,
		Price:       price,
		Status:      models.ProductStatusPublished,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func floatPtr(v float64) *float64 { return &v }

func TestAddToCart_PaidProduct(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, floatPtr(29.90))

	purchase, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCart, purchase.PaymentStatus)
	assert.Equal(t, 29.90, purchase.Amount)
	require.NotNil(t, purchase.PurchasableID)
	assert.Equal(t, product.ID, *purchase.PurchasableID)
}

func TestAddToCart_FreeProductRejected(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)

	for _, price := range []*float64{nil, floatPtr(0)} {
		product := createTestProduct(t, db, teacher.ID, price)
		_, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "free products")
	}
}

func TestAddToCart_DuplicateRejected(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, floatPtr(10))

	_, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
	require.NoError(t, err)

	_, err = svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in cart")
}

func TestAddToCart_AlreadyPurchasedViaLegacyColumn(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, floatPtr(10))

	// Pre-migration row referencing the product through product_id only.
	require.NoError(t, db.Create(&models.Purchase{
		BuyerID:       buyer.ID,
		ProductID:     &product.ID,
		PaymentStatus: models.PaymentStatusPaid,
		Amount:        10,
	}).Error)

	_, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already purchased")
}

func TestAddToCart_UnpublishedProductRejected(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, floatPtr(10))
	require.NoError(t, db.Model(product).Update("status", models.ProductStatusDraft).Error)

	_, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestClaimFree(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, nil)

	purchase, err := svc.ClaimFree(buyer.ID, product.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, purchase.PaymentStatus)
	assert.Zero(t, purchase.Amount)
	assert.NotNil(t, purchase.PaidAt)

	// Claiming again returns the existing record.
	again, err := svc.ClaimFree(buyer.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, again.ID)

	var count int64
	db.Model(&models.Purchase{}).Where("buyer_id = ?", buyer.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestClaimFree_PaidProductRejected(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, floatPtr(49))

	_, err := svc.ClaimFree(buyer.ID, product.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not free")
}

func TestCartRoundTrip(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	first := createTestProduct(t, db, teacher.ID, floatPtr(10))
	second := createTestProduct(t, db, teacher.ID, floatPtr(15.5))

	p1, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: first.ID})
	require.NoError(t, err)
	_, err = svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: second.ID})
	require.NoError(t, err)

	items, total, err := svc.GetCart(buyer.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.InDelta(t, 25.5, total, 0.001)

	require.NoError(t, svc.RemoveFromCart(buyer.ID, p1.ID))

	items, total, err = svc.GetCart(buyer.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.InDelta(t, 15.5, total, 0.001)
}

func TestRemoveFromCart_OnlyOwnCartItems(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := NewPurchaseService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	buyer := createTestUser(t, db, models.UserTypeTeacher)
	other := createTestUser(t, db, models.UserTypeTeacher)
	product := createTestProduct(t, db, teacher.ID, floatPtr(10))

	purchase, err := svc.AddToCart(buyer.ID, &AddToCartRequest{ProductID: product.ID})
	require.NoError(t, err)

	err = svc.RemoveFromCart(other.ID, purchase.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
