package handlers

import (
	"errors"
	"net/http"

	"lingodoc/services/checkout"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckoutHandler exposes the checkout session factory over HTTP.
type CheckoutHandler struct {
	Svc    checkout.CheckoutService
	Logger *zap.Logger
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(svc checkout.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{Svc: svc, Logger: logger}
}

// createSessionBody accepts both the cart shape (documents array) and the
// legacy flat single-document shape.
type createSessionBody struct {
	UserID    string                   `json:"userId"`
	UserEmail string                   `json:"userEmail"`
	Platform  string                   `json:"platform"`
	Documents []checkout.DocumentInput `json:"documents"`

	// Legacy single-document fields.
	DocumentID      string `json:"documentId"`
	Pages           int    `json:"pages"`
	TranslationType string `json:"translationType"`
	Notarization    bool   `json:"notarization"`
	BankStatement   bool   `json:"bankStatement"`
	SourceLanguage  string `json:"sourceLanguage"`
	TargetLanguage  string `json:"targetLanguage"`
	SourceCurrency  string `json:"sourceCurrency"`
	TargetCurrency  string `json:"targetCurrency"`
	FileID          string `json:"fileId"`
	FilePath        string `json:"filePath"`
	Filename        string `json:"filename"`
}

// CreateSessionHandler creates a hosted checkout session for one document or
// a multi-document cart.
func (h *CheckoutHandler) CreateSessionHandler(c *gin.Context) {
	var body createSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	req := checkout.CreateSessionRequest{
		UserID:    body.UserID,
		UserEmail: body.UserEmail,
		Platform:  body.Platform,
		Documents: body.Documents,
	}
	if len(req.Documents) == 0 && body.DocumentID != "" {
		req.Documents = []checkout.DocumentInput{{
			DocumentID:      body.DocumentID,
			Pages:           body.Pages,
			TranslationType: body.TranslationType,
			Notarization:    body.Notarization,
			BankStatement:   body.BankStatement,
			SourceLanguage:  body.SourceLanguage,
			TargetLanguage:  body.TargetLanguage,
			SourceCurrency:  body.SourceCurrency,
			TargetCurrency:  body.TargetCurrency,
			FileID:          body.FileID,
			FilePath:        body.FilePath,
			Filename:        body.Filename,
		}}
	}
	// The authenticated user owns the purchase regardless of what the body says.
	if userID := c.GetString("userID"); userID != "" {
		req.UserID = userID
	}

	result, err := h.Svc.CreateSession(c.Request.Context(), req)
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
			return
		}
		h.Logger.Error("Failed to create checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SessionInfoHandler returns the purchase context for a session, used by the
// client on return from the payment page.
func (h *CheckoutHandler) SessionInfoHandler(c *gin.Context) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session ID"})
		return
	}

	info, err := h.Svc.SessionInfo(c.Request.Context(), body.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ConfirmZelleHandler records a manual bank-transfer confirmation.
func (h *CheckoutHandler) ConfirmZelleHandler(c *gin.Context) {
	var req checkout.ZelleConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if userID := c.GetString("userID"); userID != "" {
		req.UserID = userID
	}

	payment, err := h.Svc.ConfirmZelle(c.Request.Context(), req)
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
			return
		}
		h.Logger.Error("Failed to confirm zelle payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paymentId": payment.ID,
		"status":    payment.Status,
	})
}
