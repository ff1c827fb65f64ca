package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lingodoc/services/reconcile"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a Stripe-Signature header value for the payload.
func signPayload(payload, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func setupWebhookRouter(secrets ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	// Signature rejection and metadata validation never reach the stores, so a
	// dependency-free reconciler is enough here.
	rec := reconcile.NewReconciler(nil, nil, nil, nil, nil, nil, zap.NewNop())
	h := NewWebhookHandler(rec, secrets, zap.NewNop())
	r := gin.New()
	r.POST("/api/stripe/webhook", h.HandleStripeWebhook)
	return r
}

func postWebhook(r *gin.Engine, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	r := setupWebhookRouter(testWebhookSecret)
	rec := postWebhook(r, `{"type":"checkout.session.completed"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r := setupWebhookRouter(testWebhookSecret)
	payload := `{"type":"checkout.session.completed"}`
	sig := signPayload(payload, "whsec_wrong_secret", time.Now())
	rec := postWebhook(r, payload, sig)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
}

func TestWebhookAcceptsSecondarySecret(t *testing.T) {
	r := setupWebhookRouter("whsec_live", testWebhookSecret)
	payload := `{"type":"payment_intent.created","data":{"object":{}}}`
	sig := signPayload(payload, testWebhookSecret, time.Now())
	rec := postWebhook(r, payload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with secondary secret, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("expected acknowledgement body, got %s", rec.Body.String())
	}
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	r := setupWebhookRouter(testWebhookSecret)
	payload := `{"type":"invoice.paid","data":{"object":{}}}`
	sig := signPayload(payload, testWebhookSecret, time.Now())
	rec := postWebhook(r, payload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unrelated event, got %d", rec.Code)
	}
}

func TestWebhookAcknowledgesUnrecoverableMetadata(t *testing.T) {
	r := setupWebhookRouter(testWebhookSecret)
	// A completed session whose metadata names no documents cannot be fixed by
	// redelivery, so the handler must acknowledge rather than ask for a retry.
	payload := `{"type":"checkout.session.completed","data":{"object":{"id":"cs_bad","metadata":{"userId":"user-1"}}}}`
	sig := signPayload(payload, testWebhookSecret, time.Now())
	rec := postWebhook(r, payload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unrecoverable metadata, got %d: %s", rec.Code, rec.Body.String())
	}
}
