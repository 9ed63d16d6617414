// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/google/uuid"

	"github.com/ludora/ludora-backend/internal/config"
)

// PaymentService wraps the Stripe API. Amounts are handled in the platform
// currency's major unit and converted to minor units at the Stripe boundary.
type PaymentService struct {
	currency string
}

func NewPaymentService(cfg config.PaymentConfig) *PaymentService {
	stripe.Key = cfg.StripeSecretKey
	return &PaymentService{currency: cfg.Currency}
}

func (s *PaymentService) Currency() string {
	return s.currency
}

func (s *PaymentService) CreatePaymentIntent(buyerID uuid.UUID, amount float64) (*stripe.PaymentIntent, error) {
	if amount <= 0 {
		return nil, errors.New("payment amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("buyer_id", buyerID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		logrus.WithError(err).Error("Failed to create payment intent")
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent, nil
}

// VerifyPaymentSucceeded checks the intent's status with Stripe before any
// purchase row is marked paid. Never trust the client's word for it.
func (s *PaymentService) VerifyPaymentSucceeded(paymentIntentID string) error {
	if paymentIntentID == "" {
		return errors.New("payment intent id is required")
	}

	intent, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("payment not completed, status: %s", intent.Status)
	}
	return nil
}

func (s *PaymentService) RefundPayment(paymentIntentID string, amount float64) error {
	if paymentIntentID == "" {
		return errors.New("purchase has no payment reference")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}

	if _, err := refund.New(params); err != nil {
		logrus.WithError(err).WithField("payment_intent_id", paymentIntentID).Error("Refund failed")
		return fmt.Errorf("failed to refund payment: %w", err)
	}
	return nil
}

func toMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
