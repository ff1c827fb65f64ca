package handlers

import (
	"net/http"

	documentRepo "lingodoc/database/repository/document"
	paymentRepo "lingodoc/database/repository/payment"
	"lingodoc/models"
	"lingodoc/services/notify"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AdminHandler hosts the staff-only surface: verifying manual transfers and
// cleaning up abandoned drafts.
type AdminHandler struct {
	Payments paymentRepo.PaymentRepository
	Docs     documentRepo.DocumentRepository
	Queue    *asynq.Client
	Logger   *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(payments paymentRepo.PaymentRepository, docs documentRepo.DocumentRepository, queue *asynq.Client, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Payments: payments, Docs: docs, Queue: queue, Logger: logger}
}

// VerifyPaymentHandler advances a pending Zelle ledger entry to verified and
// moves its documents to processing.
func (h *AdminHandler) VerifyPaymentHandler(c *gin.Context) {
	var body struct {
		PaymentID   string   `json:"paymentId"`
		DocumentIDs []string `json:"documentIds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PaymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment ID"})
		return
	}

	payment, err := h.Payments.GetByID(body.PaymentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	if payment.Status != models.PaymentPendingVerification {
		c.JSON(http.StatusConflict, gin.H{"error": "payment is not pending verification"})
		return
	}

	if err := h.Payments.UpdateStatus(body.PaymentID, models.PaymentVerified); err != nil {
		h.Logger.Error("Failed to verify payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify payment"})
		return
	}

	docIDs := body.DocumentIDs
	if len(docIDs) == 0 {
		docIDs = []string{payment.DocumentID}
	}
	if err := h.Docs.UpdateStatusMany(docIDs, models.DocStatusProcessing); err != nil {
		h.Logger.Error("Failed to advance documents after verification", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"paymentId": body.PaymentID, "status": models.PaymentVerified})
}

// CleanupDraftsHandler enqueues the abandoned-draft cleanup task.
func (h *AdminHandler) CleanupDraftsHandler(c *gin.Context) {
	task := asynq.NewTask(notify.TaskTypeDraftCleanup, nil)
	if _, err := h.Queue.Enqueue(task); err != nil {
		h.Logger.Error("Failed to enqueue draft cleanup", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue cleanup"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"enqueued": true})
}
