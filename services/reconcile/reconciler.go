package reconcile

import (
	"context"
	"strings"
	"sync"

	documentRepo "lingodoc/database/repository/document"
	paymentRepo "lingodoc/database/repository/payment"
	sessionRepo "lingodoc/database/repository/session"
	"lingodoc/models"
	"lingodoc/services/notify"
	"lingodoc/services/staging"
	"lingodoc/services/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Document outcome statuses reported by the webhook and finalizer paths.
const (
	OutcomeFinalized    = "finalized"
	OutcomeAlreadyDone  = "already_done"
	OutcomeClaimLost    = "claim_lost"
	OutcomeUploadFailed = "upload_failed"
	OutcomeError        = "error"
)

// DocumentOutcome describes what happened to one document during
// reconciliation of a completed session.
type DocumentOutcome struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	FileURL    string `json:"fileUrl,omitempty"`
	RetryPath  string `json:"retryPath,omitempty"`
}

// SessionResult is the aggregate outcome of reconciling one session.
type SessionResult struct {
	SessionID        string            `json:"sessionId"`
	AlreadyProcessed bool              `json:"alreadyProcessed"`
	Documents        []DocumentOutcome `json:"documents"`
}

// Reconciler drives a completed checkout session to its final state: each
// document claimed, its file durably stored, exactly one ledger entry written
// and the back office notified. The webhook and the finalizer both run it for
// the same session; correctness comes from the document-row CAS guards in the
// repository, not from any coordination between the two.
type Reconciler struct {
	Documents documentRepo.DocumentRepository
	Sessions  sessionRepo.SessionRepository
	Payments  paymentRepo.PaymentRepository
	Staging   staging.Store
	Storage   storage.StorageService
	Notifier  notify.IntakeNotifier
	Logger    *zap.Logger

	mu        sync.Mutex
	processed map[string]struct{}
}

// NewReconciler constructs a Reconciler.
func NewReconciler(
	documents documentRepo.DocumentRepository,
	sessions sessionRepo.SessionRepository,
	payments paymentRepo.PaymentRepository,
	stagingStore staging.Store,
	storageSvc storage.StorageService,
	notifier notify.IntakeNotifier,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		Documents: documents,
		Sessions:  sessions,
		Payments:  payments,
		Staging:   stagingStore,
		Storage:   storageSvc,
		Notifier:  notifier,
		Logger:    logger,
		processed: make(map[string]struct{}),
	}
}

// processDocument performs the per-document reconciliation steps. It is
// idempotent: every state-changing write is conditional, and a lost write
// means another actor already did the work.
func (r *Reconciler) processDocument(ctx context.Context, sessionID string, pd PurchaseDocument, purchase *Purchase, skipPayment *bool) DocumentOutcome {
	log := r.Logger.With(zap.String("sessionId", sessionID), zap.String("documentId", pd.ID))

	doc, err := r.Documents.GetByID(pd.ID)
	if err != nil {
		log.Error("Failed to fetch document during reconciliation", zap.Error(err))
		return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeError}
	}

	if doc.FileURL != nil && *doc.FileURL != "" {
		log.Info("Document already has a file reference, skipping")
		return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeAlreadyDone, FileURL: *doc.FileURL}
	}

	claimed, err := r.Documents.ClaimForFinalize(pd.ID)
	if err != nil {
		log.Error("Failed to claim document", zap.Error(err))
		return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeError}
	}
	if !claimed {
		log.Info("Another actor already claimed this document")
		return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeClaimLost}
	}

	fileURL, outcome := r.resolveFile(ctx, pd, doc, log)
	if outcome != "" {
		return DocumentOutcome{
			DocumentID: pd.ID,
			Status:     outcome,
			RetryPath:  retryPath(pd.ID),
		}
	}

	won, err := r.Documents.AssignFileReference(pd.ID, fileURL)
	if err != nil {
		log.Error("Failed to assign file reference", zap.Error(err))
		return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeError}
	}
	if !won {
		// A concurrent actor interleaved between our claim and our upload and
		// finished first. Their reference stands; ours is a duplicate object
		// under the same key, which storage already collapsed.
		log.Info("Lost the file reference race, treating as already handled")
		return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeClaimLost}
	}

	// Only the assignment winner creates the ledger entry and notifies the
	// back office. One ledger row covers the whole purchase.
	if !*skipPayment {
		r.createLedgerEntry(sessionID, purchase)
		*skipPayment = true
	}
	r.notifyIntake(ctx, doc, pd, fileURL, log)

	if pd.FileID != "" {
		if err := r.Staging.Discard(ctx, pd.FileID); err != nil {
			log.Warn("Failed to discard staged file", zap.Error(err))
		}
	}

	return DocumentOutcome{DocumentID: pd.ID, Status: OutcomeFinalized, FileURL: fileURL}
}

// resolveFile produces the durable URL for a document: either the path it was
// already uploaded to (mobile flow), or the staged bytes uploaded now. A
// non-empty second return is a terminal outcome status.
func (r *Reconciler) resolveFile(ctx context.Context, pd PurchaseDocument, doc *models.Document, log *zap.Logger) (string, string) {
	if pd.FilePath != "" {
		return pd.FilePath, ""
	}

	data, err := r.Staging.Resolve(ctx, pd.FileID)
	if err != nil {
		log.Error("Failed to resolve staged file", zap.Error(err))
		r.markUploadFailed(pd.ID, log)
		return "", OutcomeUploadFailed
	}

	publicID := doc.Filename
	if publicID == "" {
		publicID = uuid.New().String() + "_" + sanitizeFilename(doc.OriginalFilename)
	}

	url, err := r.Storage.UploadDocument(ctx, data, publicID)
	if err != nil {
		log.Error("Failed to upload document to storage", zap.Error(err),
			zap.Bool("transient", storage.IsTransient(err)))
		r.markUploadFailed(pd.ID, log)
		return "", OutcomeUploadFailed
	}
	return url, ""
}

func (r *Reconciler) markUploadFailed(documentID string, log *zap.Logger) {
	if err := r.Documents.MarkUploadFailed(documentID); err != nil {
		log.Error("Failed to mark upload failed", zap.Error(err))
	}
}

// createLedgerEntry writes the single Payment row for the purchase. Failures
// are logged, never propagated: the status transition stands and the ledger is
// reconciled out of band.
func (r *Reconciler) createLedgerEntry(sessionID string, purchase *Purchase) {
	primaryDoc := ""
	if len(purchase.Documents) > 0 {
		primaryDoc = purchase.Documents[0].ID
	}
	payment := &models.Payment{
		ID:          uuid.New().String(),
		DocumentID:  primaryDoc,
		UserID:      purchase.UserID,
		SessionID:   sessionID,
		NetAmount:   purchase.NetAmount,
		GrossAmount: purchase.GrossAmount,
		FeeAmount:   purchase.FeeAmount,
		Currency:    purchase.Currency,
		Status:      models.PaymentCompleted,
		Method:      models.MethodCard,
	}
	created, err := r.Payments.CreateOnce(payment)
	if err != nil {
		r.Logger.Error("Failed to create payment ledger entry",
			zap.String("sessionId", sessionID), zap.Error(err))
		return
	}
	if !created {
		r.Logger.Info("Ledger entry already exists for session",
			zap.String("sessionId", sessionID))
		return
	}
	r.Logger.Info("Created payment ledger entry",
		zap.String("sessionId", sessionID), zap.String("paymentId", payment.ID))
}

func (r *Reconciler) notifyIntake(ctx context.Context, doc *models.Document, pd PurchaseDocument, fileURL string, log *zap.Logger) {
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
	if n.Pages == 0 {
		n.Pages = pd.Pages
	}
	if err := r.Notifier.NotifyIntake(ctx, n); err != nil {
		log.Warn("Failed to send intake notification", zap.Error(err))
	}
}

func retryPath(documentID string) string {
	return "/retry-upload?documentId=" + documentID + "&from=payment"
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "#", "_", "?", "_", "&", "_")
	return replacer.Replace(name)
}
