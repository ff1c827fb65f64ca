package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentRepo "lingodoc/database/repository/document"
	paymentRepo "lingodoc/database/repository/payment"
	"lingodoc/models"
	"lingodoc/services/notify"
	"lingodoc/services/storage"
	"lingodoc/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error codes surfaced in RetryUploadResult.
const (
	CodeInvalidFile         = "invalid_file"
	CodePaymentNotConfirmed = "payment_not_confirmed"
	CodePageCountMismatch   = "page_count_mismatch"
	CodeUploadFailed        = "upload_failed"
	CodeFinalizeFailed      = "finalize_failed"
)

const maxUploadAttempts = 3

// RetryUploadInput carries a replacement file for a paid document whose
// original upload failed.
type RetryUploadInput struct {
	DocumentID  string
	UserID      string
	Data        []byte
	Filename    string
	ContentType string

	// Caller-supplied fast path: a payment status the caller already holds,
	// accepted so access-control restrictions on the ledger cannot strand a
	// paid customer.
	PaymentStatus string
	PaymentID     string
}

// RetryUploadResult is the structured outcome of a retry-upload attempt.
// Failures are values, never panics; the handler returns this shape verbatim.
type RetryUploadResult struct {
	Success       bool   `json:"success"`
	DocumentID    string `json:"documentId"`
	FileURL       string `json:"fileUrl,omitempty"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"`
	ExpectedPages int    `json:"expectedPages,omitempty"`
	ActualPages   int    `json:"actualPages,omitempty"`
	Transient     bool   `json:"transient,omitempty"`
}

// RetryService runs the replacement-upload validation pipeline.
type RetryService struct {
	Documents documentRepo.DocumentRepository
	Payments  paymentRepo.PaymentRepository
	Storage   storage.StorageService
	Notifier  notify.IntakeNotifier
	Logger    *zap.Logger

	// BaseDelay is the unit for the linear retry backoff (1x, 2x, 3x).
	BaseDelay time.Duration
}

// RetryUpload validates and uploads a replacement file. Each step
// short-circuits on failure; truly unexpected panics are converted into the
// same structured shape.
func (s *RetryService) RetryUpload(ctx context.Context, input RetryUploadInput) (result RetryUploadResult) {
	result.DocumentID = input.DocumentID
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Retry upload panicked", zap.Any("error", r),
				zap.String("documentId", input.DocumentID))
			result = RetryUploadResult{
				DocumentID: input.DocumentID,
				Error:      fmt.Sprintf("unexpected error: %v", r),
				Code:       CodeUploadFailed,
			}
		}
	}()

	// 1. File shape.
	if msg := validateFile(input); msg != "" {
		result.Error = msg
		result.Code = CodeInvalidFile
		return result
	}

	// 2. Payment confirmation.
	if !s.paymentConfirmed(input) {
		result.Error = "Payment not confirmed for this document"
		result.Code = CodePaymentNotConfirmed
		return result
	}

	// 3. Exact page-count match.
	doc, err := s.Documents.GetByID(input.DocumentID)
	if err != nil {
		result.Error = fmt.Sprintf("document not found: %v", err)
		result.Code = CodeInvalidFile
		return result
	}
	pages, err := ValidatePageCount(input.Data, doc.Pages)
	if err != nil {
		result.Error = fmt.Sprintf("could not read PDF: %v", err)
		result.Code = CodeInvalidFile
		return result
	}
	if !pages.Valid {
		result.Error = fmt.Sprintf("Page count does not match. Expected: %d, Found: %d", doc.Pages, pages.ActualPages)
		result.Code = CodePageCountMismatch
		result.ExpectedPages = doc.Pages
		result.ActualPages = pages.ActualPages
		return result
	}

	// 4. Upload with bounded retry.
	publicID := uuid.New().String() + "_" + sanitizeFilename(input.Filename)
	fileURL, err := s.uploadFileWithRetry(ctx, input.Data, publicID)
	if err != nil {
		result.Error = fmt.Sprintf("upload failed: %v", err)
		result.Code = CodeUploadFailed
		result.Transient = storage.IsTransient(err)
		return result
	}

	// 5. Privileged finalize: succeeds even where row-level access control
	// would block the customer's own write.
	if err := s.Documents.FinalizeRetryUpload(input.DocumentID, fileURL); err != nil {
		result.Error = fmt.Sprintf("failed to finalize document: %v", err)
		result.Code = CodeFinalizeFailed
		return result
	}

	// 6. Best-effort downstream notification.
	s.notifyIntake(ctx, doc, fileURL)

	result.Success = true
	result.FileURL = fileURL
	return result
}

// uploadFileWithRetry attempts the storage write up to three times with
// linearly increasing backoff. Only transient errors are retried; permanent
// errors fail immediately.
func (s *RetryService) uploadFileWithRetry(ctx context.Context, data []byte, publicID string) (string, error) {
	baseDelay := s.BaseDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		url, err := s.Storage.UploadDocument(ctx, data, publicID)
		if err == nil {
			return url, nil
		}
		lastErr = err
		if !storage.IsTransient(err) {
			return "", err
		}
		s.Logger.Warn("Transient upload failure",
			zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxUploadAttempts {
			select {
			case <-time.After(time.Duration(attempt) * baseDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("upload failed after %d attempts: %w", maxUploadAttempts, lastErr)
}

// paymentConfirmed checks the caller-supplied fast path first, then the
// ledger. A denied or failed ledger query counts as unconfirmed.
func (s *RetryService) paymentConfirmed(input RetryUploadInput) bool {
	if input.PaymentStatus == models.PaymentCompleted || input.PaymentStatus == models.PaymentVerified {
		s.Logger.Info("Accepting caller-supplied payment status",
			zap.String("documentId", input.DocumentID),
			zap.String("paymentId", input.PaymentID))
		return true
	}
	payment, err := s.Payments.GetConfirmedByDocumentID(input.DocumentID)
	if err != nil {
		s.Logger.Warn("Ledger query failed during retry upload",
			zap.String("documentId", input.DocumentID), zap.Error(err))
		return false
	}
	return payment != nil
}

func (s *RetryService) notifyIntake(ctx context.Context, doc *models.Document, fileURL string) {
	n := models.IntakeNotification{
		DocumentID:       doc.ID,
		Filename:         doc.OriginalFilename,
		FileURL:          fileURL,
		Pages:            doc.Pages,
		TranslationType:  doc.TranslationType,
		Notarization:     doc.Notarization,
		BankStatement:    doc.BankStatement,
		SourceLanguage:   doc.SourceLanguage,
		TargetLanguage:   doc.TargetLanguage,
		SourceCurrency:   doc.SourceCurrency,
		TargetCurrency:   doc.TargetCurrency,
		VerificationCode: doc.VerificationCode,
	}
	if err := s.Notifier.NotifyIntake(ctx, n); err != nil {
		s.Logger.Warn("Failed to send intake notification after retry upload",
			zap.String("documentId", doc.ID), zap.Error(err))
	}
}

func validateFile(input RetryUploadInput) string {
	if len(input.Data) == 0 {
		return "Invalid file: file is empty"
	}
	if len(input.Data) > utils.MaxUploadBytes {
		return "Invalid file: file exceeds the 10 MB limit"
	}
	isPDF := input.ContentType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(input.Filename), ".pdf")
	if !isPDF {
		return "Invalid file: only PDF files are accepted"
	}
	return ""
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "#", "_", "?", "_", "&", "_")
	return replacer.Replace(name)
}
