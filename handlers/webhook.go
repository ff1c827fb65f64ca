package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lingodoc/services/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// WebhookHandler is the single authoritative consumer of payment-completed
// events. Deliveries are at-least-once and may overlap; all downstream work is
// idempotent.
type WebhookHandler struct {
	Reconciler *reconcile.Reconciler
	Secrets    []string
	Logger     *zap.Logger
}

// NewWebhookHandler constructs a WebhookHandler verifying against the given
// signing secrets (test and live may be configured simultaneously).
func NewWebhookHandler(rec *reconcile.Reconciler, secrets []string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Reconciler: rec, Secrets: secrets, Logger: logger}
}

// HandleStripeWebhook verifies the signature and processes completion events.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	var event stripe.Event
	verified := false
	for _, secret := range h.Secrets {
		event, err = webhook.ConstructEventWithOptions(payload, sigHeader, secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err == nil {
			verified = true
			break
		}
	}
	if !verified {
		h.Logger.Warn("Webhook signature verification failed for all configured secrets")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.Logger.Error("Failed to decode checkout session from event", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		if err := h.Reconciler.ProcessCompletedSession(c.Request.Context(), session.ID, session.Metadata); err != nil {
			if errors.Is(err, reconcile.ErrBadMetadata) {
				// Redelivery cannot fix a malformed metadata bag; acknowledge.
				h.Logger.Error("Dropping event with unrecoverable metadata",
					zap.String("sessionId", session.ID), zap.Error(err))
				break
			}
			h.Logger.Error("Failed to process completed session",
				zap.String("sessionId", session.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}
	default:
		h.Logger.Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
