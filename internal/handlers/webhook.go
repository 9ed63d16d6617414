// internal/handlers/webhook.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/ludora/ludora-backend/internal/services"
)

// WebhookHandler settles purchases from Stripe's server-to-server events so
// a closed browser tab cannot leave a payment stuck in pending.
type WebhookHandler struct {
	purchaseService *services.PurchaseService
	webhookSecret   string
}

func NewWebhookHandler(purchaseService *services.PurchaseService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		purchaseService: purchaseService,
		webhookSecret:   webhookSecret,
	}
}

func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 65536))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		logrus.WithError(err).Warn("Stripe webhook signature verification failed")
		c.Status(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if _, err := h.purchaseService.ConfirmPayment(intent.ID); err != nil {
			logrus.WithError(err).WithField("payment_intent_id", intent.ID).Error("Webhook confirmation failed")
			c.Status(http.StatusInternalServerError)
			return
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if err := h.purchaseService.FailPayment(intent.ID); err != nil {
			logrus.WithError(err).WithField("payment_intent_id", intent.ID).Error("Webhook failure handling failed")
			c.Status(http.StatusInternalServerError)
			return
		}

	default:
		// Unhandled event types are acknowledged so Stripe stops retrying.
	}

	c.Status(http.StatusOK)
}
