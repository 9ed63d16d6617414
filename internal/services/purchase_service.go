// internal/services/purchase_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/models"
	"github.com/ludora/ludora-backend/internal/utils"
)

type PurchaseService struct {
	db             *gorm.DB
	paymentService *PaymentService
}

func NewPurchaseService(db *gorm.DB, paymentService *PaymentService) *PurchaseService {
	return &PurchaseService{
		db:             db,
		paymentService: paymentService,
	}
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// AddToCart creates a cart-status purchase row. Free products never enter
// the cart; they are claimed directly.
func (s *PurchaseService) AddToCart(buyerID uuid.UUID, req *AddToCartRequest) (*models.Purchase, error) {
	product, err := s.getPublishedProduct(req.ProductID)
	if err != nil {
		return nil, err
	}

	if product.IsFree() {
		return nil, errors.New("free products cannot be added to cart")
	}

	existing, err := s.findPurchaseRecord(buyerID, product)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.PaymentStatus {
		case models.PaymentStatusCart:
			return nil, errors.New("already in cart")
		case models.PaymentStatusPaid, models.PaymentStatusCompleted:
			return nil, errors.New("product already purchased")
		case models.PaymentStatusPending:
			return nil, errors.New("a payment for this product is already pending")
		}
	}

	purchase := &models.Purchase{
		BuyerID:         buyerID,
		PurchasableID:   &product.ID,
		PurchasableType: string(product.ProductType),
		PaymentStatus:   models.PaymentStatusCart,
		Amount:          *product.Price,
	}

	if err := s.db.Create(purchase).Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *PurchaseService) RemoveFromCart(buyerID, purchaseID uuid.UUID) error {
	var purchase models.Purchase
	err := s.db.Where("id = ? AND buyer_id = ? AND payment_status = ?",
		purchaseID, buyerID, models.PaymentStatusCart).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("cart item not found")
		}
		return err
	}

	return s.db.Unscoped().Delete(&purchase).Error
}

func (s *PurchaseService) GetCart(buyerID uuid.UUID) ([]models.Purchase, float64, error) {
	var items []models.Purchase
	err := s.db.Preload("Product").
		Where("buyer_id = ? AND payment_status = ?", buyerID, models.PaymentStatusCart).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return items, total, nil
}

// ClaimFree records a zero-amount completed purchase for a free product so
// it shows up in the buyer's library.
func (s *PurchaseService) ClaimFree(buyerID, productID uuid.UUID) (*models.Purchase, error) {
	product, err := s.getPublishedProduct(productID)
	if err != nil {
		return nil, err
	}

	if !product.IsFree() {
		return nil, errors.New("product is not free")
	}

	existing, err := s.findPurchaseRecord(buyerID, product)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	purchase := &models.Purchase{
		BuyerID:         buyerID,
		PurchasableID:   &product.ID,
		PurchasableType: string(product.ProductType),
		PaymentStatus:   models.PaymentStatusCompleted,
		Amount:          0,
		PaidAt:          &now,
	}

	if err := s.db.Create(purchase).Error; err != nil {
		return nil, err
	}

	s.db.Model(product).UpdateColumn("sales_count", gorm.Expr("sales_count + 1"))
	return purchase, nil
}

type CheckoutResponse struct {
	Purchases       []models.Purchase `json:"purchases"`
	PaymentIntentID string            `json:"payment_intent_id"`
	ClientSecret    string            `json:"client_secret"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
}

// Checkout moves every cart item to pending behind a single Stripe
// PaymentIntent. Items stay pending until ConfirmPayment or the intent
// fails.
func (s *PurchaseService) Checkout(buyerID uuid.UUID) (*CheckoutResponse, error) {
	items, total, err := s.GetCart(buyerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("cart is empty")
	}

	intent, err := s.paymentService.CreatePaymentIntent(buyerID, total)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	err = s.db.Model(&models.Purchase{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentStatusPending,
			"payment_reference": intent.ID,
		}).Error
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"buyer_id":          buyerID,
		"payment_intent_id": intent.ID,
		"amount":            total,
		"item_count":        len(items),
	}).Info("Checkout started")

	return &CheckoutResponse{
		Purchases:       items,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          total,
		Currency:        s.paymentService.Currency(),
	}, nil
}

// ConfirmPayment marks every pending purchase behind a payment intent paid.
// Called from the client confirmation endpoint and the Stripe webhook; both
// paths are idempotent.
func (s *PurchaseService) ConfirmPayment(paymentIntentID string) ([]models.Purchase, error) {
	if err := s.paymentService.VerifyPaymentSucceeded(paymentIntentID); err != nil {
		return nil, err
	}

	var purchases []models.Purchase
	err := s.db.Where("payment_reference = ? AND payment_status = ?",
		paymentIntentID, models.PaymentStatusPending).Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		// Already confirmed or unknown intent; return what exists.
		err := s.db.Where("payment_reference = ?", paymentIntentID).Find(&purchases).Error
		return purchases, err
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range purchases {
			updates := map[string]interface{}{
				"payment_status": models.PaymentStatusPaid,
				"paid_at":        &now,
			}
			if err := tx.Model(&purchases[i]).Updates(updates).Error; err != nil {
				return err
			}
			purchases[i].PaymentStatus = models.PaymentStatusPaid
			purchases[i].PaidAt = &now

			if ref := purchases[i].EntityRef(); ref != nil {
				tx.Model(&models.Product{}).Where("id = ?", *ref).
					UpdateColumn("sales_count", gorm.Expr("sales_count + 1"))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_intent_id": paymentIntentID,
		"purchase_count":    len(purchases),
	}).Info("Payment confirmed")

	return purchases, nil
}

// FailPayment marks pending purchases behind an intent failed, from the
// webhook path.
func (s *PurchaseService) FailPayment(paymentIntentID string) error {
	return s.db.Model(&models.Purchase{}).
		Where("payment_reference = ? AND payment_status = ?",
			paymentIntentID, models.PaymentStatusPending).
		Update("payment_status", models.PaymentStatusFailed).Error
}

// GetLibrary lists the buyer's successfully paid purchases.
func (s *PurchaseService) GetLibrary(buyerID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Purchase{}).
		Where("buyer_id = ? AND payment_status IN ?", buyerID,
			[]models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusCompleted})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var purchases []models.Purchase
	query = utils.ApplySort(query, params, []string{"created_at", "paid_at", "amount"})
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Product").Find(&purchases).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	return &result, nil
}

func (s *PurchaseService) GetPurchase(buyerID, purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.Preload("Product").
		Where("id = ? AND buyer_id = ?", purchaseID, buyerID).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase not found")
		}
		return nil, err
	}
	return &purchase, nil
}

// RefundPurchase refunds a paid purchase through Stripe and marks the row.
func (s *PurchaseService) RefundPurchase(purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.db.First(&purchase, "id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase not found")
		}
		return nil, err
	}

	if !purchase.IsSuccessfullyPaid() {
		return nil, errors.New("only paid purchases can be refunded")
	}
	if purchase.Amount > 0 {
		if err := s.paymentService.RefundPayment(purchase.PaymentReference, purchase.Amount); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	err := s.db.Model(&purchase).Updates(map[string]interface{}{
		"payment_status": models.PaymentStatusRefunded,
		"refunded_at":    &now,
	}).Error
	if err != nil {
		return nil, err
	}
	purchase.PaymentStatus = models.PaymentStatusRefunded
	purchase.RefundedAt = &now
	return &purchase, nil
}

func (s *PurchaseService) getPublishedProduct(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}
	if product.Status != models.ProductStatusPublished {
		return nil, errors.New("product is not available for purchase")
	}
	return &product, nil
}

// findPurchaseRecord looks for any non-terminal purchase of the product,
// matching the polymorphic reference against both the product row and its
// wrapped entity.
func (s *PurchaseService) findPurchaseRecord(buyerID uuid.UUID, product *models.Product) (*models.Purchase, error) {
	refs := []uuid.UUID{product.ID}
	if product.EntityID != nil {
		refs = append(refs, *product.EntityID)
	}

	var purchase models.Purchase
	err := s.db.Where("buyer_id = ? AND (purchasable_id IN ? OR product_id IN ?) AND payment_status IN ?",
		buyerID, refs, refs,
		[]models.PaymentStatus{
			models.PaymentStatusCart,
			models.PaymentStatusPending,
			models.PaymentStatusPaid,
			models.PaymentStatusCompleted,
		}).
		Order("created_at ASC").
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}
