package handlers

import (
	"net/http"

	"lingodoc/services/checkout"
	"lingodoc/services/reconcile"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FinalizeHandler completes document finalization when the customer returns
// from the hosted payment page. It races the payment webhook for the same
// session; both sides are idempotent.
type FinalizeHandler struct {
	Checkout   checkout.CheckoutService
	Reconciler *reconcile.Reconciler
	Logger     *zap.Logger
}

// NewFinalizeHandler constructs a FinalizeHandler.
func NewFinalizeHandler(svc checkout.CheckoutService, rec *reconcile.Reconciler, logger *zap.Logger) *FinalizeHandler {
	return &FinalizeHandler{Checkout: svc, Reconciler: rec, Logger: logger}
}

// FinalizeSessionHandler reads the session's purchase context back from the
// provider and drives each document to its final state.
func (h *FinalizeHandler) FinalizeSessionHandler(c *gin.Context) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session ID"})
		return
	}

	info, err := h.Checkout.SessionInfo(c.Request.Context(), body.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if info.PaymentStatus != "paid" {
		c.JSON(http.StatusConflict, gin.H{"error": "payment not completed for this session"})
		return
	}

	result, err := h.Reconciler.FinalizeSession(c.Request.Context(), body.SessionID, info.Metadata)
	if err != nil {
		h.Logger.Error("Failed to finalize session",
			zap.String("sessionId", body.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to finalize session"})
		return
	}
	c.JSON(http.StatusOK, result)
}
