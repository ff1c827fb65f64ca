package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lingodoc/models"
	"lingodoc/services/staging"
	"lingodoc/services/storage"

	"go.uber.org/zap"
)

// fakeDocumentRepo mirrors the conditional-write semantics of the Mongo
// repository: claims and assignments are filtered updates, and a lost filter
// match reports false rather than erroring.
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newFakeDocumentRepo(docs ...*models.Document) *fakeDocumentRepo {
	r := &fakeDocumentRepo{docs: make(map[string]*models.Document)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocumentRepo) Create(doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocumentRepo) GetByID(id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeDocumentRepo) GetByIDForUser(id, userID string) (*models.Document, error) {
	doc, err := r.GetByID(id)
	if err != nil || doc.UserID != userID {
		return nil, errors.New("document not found")
	}
	return doc, nil
}

func (r *fakeDocumentRepo) GetAllForUser(userID string) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) UpdateStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[id]; ok {
		d.Status = status
	}
	return nil
}

func (r *fakeDocumentRepo) UpdateStatusMany(ids []string, status string) error {
	for _, id := range ids {
		if err := r.UpdateStatus(id, status); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeDocumentRepo) ClaimForFinalize(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, errors.New("document not found")
	}
	if d.FileURL != nil && *d.FileURL != "" {
		return false, nil
	}
	switch d.Status {
	case models.DocStatusPending, models.DocStatusStripePending, models.DocStatusProcessing:
	default:
		return false, nil
	}
	now := time.Now()
	d.Status = models.DocStatusProcessing
	d.ClaimedAt = &now
	return true, nil
}

func (r *fakeDocumentRepo) AssignFileReference(id, fileURL string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, errors.New("document not found")
	}
	if d.Status != models.DocStatusProcessing {
		return false, nil
	}
	if d.FileURL != nil && *d.FileURL != "" {
		return false, nil
	}
	d.FileURL = &fileURL
	return true, nil
}

func (r *fakeDocumentRepo) MarkUploadFailed(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[id]; ok {
		now := time.Now()
		d.UploadFailedAt = &now
	}
	return nil
}

func (r *fakeDocumentRepo) FinalizeRetryUpload(id, fileURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return errors.New("document not found")
	}
	d.FileURL = &fileURL
	d.UploadFailedAt = nil
	d.RetryCount++
	return nil
}

func (r *fakeDocumentRepo) PrivilegedUpdate(id string, fileURL *string, markUploadFailed, clearUploadFailed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return errors.New("document not found")
	}
	if fileURL != nil {
		d.FileURL = fileURL
	}
	if markUploadFailed {
		now := time.Now()
		d.UploadFailedAt = &now
	}
	if clearUploadFailed {
		d.UploadFailedAt = nil
	}
	return nil
}

func (r *fakeDocumentRepo) DeleteAbandonedDrafts(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, d := range r.docs {
		if d.Status == models.DocStatusPending && d.FileURL == nil && d.CreatedAt.Before(cutoff) {
			delete(r.docs, id)
			removed++
		}
	}
	return removed, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.CheckoutSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.CheckoutSession)}
}

func (r *fakeSessionRepo) Create(s *models.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SessionID] = s
	return nil
}

func (r *fakeSessionRepo) GetBySessionID(sessionID string) (*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) MarkCompleted(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.PaymentStatus = models.SessionPaymentCompleted
	}
	return nil
}

// fakePaymentRepo enforces the one-row-per-session backstop the Mongo unique
// index provides.
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func (r *fakePaymentRepo) CreateOnce(p *models.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.SessionID == p.SessionID {
			return false, nil
		}
	}
	cp := *p
	r.payments = append(r.payments, &cp)
	return true, nil
}

func (r *fakePaymentRepo) GetByID(id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.New("payment not found")
}

func (r *fakePaymentRepo) GetBySessionID(sessionID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.SessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.New("payment not found")
}

func (r *fakePaymentRepo) GetConfirmedByDocumentID(documentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.DocumentID == documentID &&
			(p.Status == models.PaymentCompleted || p.Status == models.PaymentVerified) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) UpdateStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			p.Status = status
		}
	}
	return nil
}

func (r *fakePaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

type fakeStagingStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStagingStore() *fakeStagingStore {
	return &fakeStagingStore{files: make(map[string][]byte)}
}

func (s *fakeStagingStore) Stage(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "staged-fake"
	s.files[id] = data
	return id, nil
}

func (s *fakeStagingStore) Resolve(ctx context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[fileID]
	if !ok {
		return nil, staging.ErrNotStaged
	}
	return data, nil
}

func (s *fakeStagingStore) Discard(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	return nil
}

func (s *fakeStagingStore) has(fileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[fileID]
	return ok
}

type fakeStorageService struct {
	mu      sync.Mutex
	uploads int
	err     error
}

func (s *fakeStorageService) UploadDocument(ctx context.Context, data []byte, publicID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.test/" + publicID, nil
}

func (s *fakeStorageService) DeleteDocument(ctx context.Context, publicID string) error {
	return nil
}

func (s *fakeStorageService) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []models.IntakeNotification
}

func (n *fakeNotifier) NotifyIntake(ctx context.Context, notification models.IntakeNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, notification)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

type fixture struct {
	docs     *fakeDocumentRepo
	sessions *fakeSessionRepo
	payments *fakePaymentRepo
	staging  *fakeStagingStore
	storage  *fakeStorageService
	notifier *fakeNotifier
	rec      *Reconciler
}

func newFixture(docs ...*models.Document) *fixture {
	f := &fixture{
		docs:     newFakeDocumentRepo(docs...),
		sessions: newFakeSessionRepo(),
		payments: &fakePaymentRepo{},
		staging:  newFakeStagingStore(),
		storage:  &fakeStorageService{},
		notifier: &fakeNotifier{},
	}
	f.rec = NewReconciler(f.docs, f.sessions, f.payments, f.staging, f.storage, f.notifier, zap.NewNop())
	return f
}

func pendingDocument(id string) *models.Document {
	return &models.Document{
		ID:               id,
		UserID:           "user-1",
		Filename:         id + ".pdf",
		OriginalFilename: "passport.pdf",
		Pages:            2,
		TranslationType:  models.TierCertified,
		Status:           models.DocStatusStripePending,
		CreatedAt:        time.Now(),
	}
}

func stagedMetadata(t *testing.T, f *fixture, docIDs ...string) map[string]string {
	t.Helper()
	p := Purchase{
		UserID:      "user-1",
		UserEmail:   "user@example.com",
		NetAmount:   55.80,
		GrossAmount: 58,
		FeeAmount:   2.20,
		Currency:    "usd",
	}
	for _, id := range docIDs {
		f.staging.files["staged-"+id] = []byte("%PDF-1.4 fake")
		p.Documents = append(p.Documents, PurchaseDocument{
			ID:       id,
			Pages:    2,
			FileID:   "staged-" + id,
			Filename: id + ".pdf",
			Price:    29,
		})
	}
	p.TotalPrice = float64(len(docIDs)) * 29
	meta, err := BuildMetadata(p)
	if err != nil {
		t.Fatalf("build metadata: %v", err)
	}
	return meta
}

func TestWebhookReplaysAreIdempotent(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	meta := stagedMetadata(t, f, "doc-1")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := f.rec.ProcessCompletedSession(ctx, "cs_test_1", meta); err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
	}

	doc, err := f.docs.GetByID("doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.FileURL == nil || *doc.FileURL != "https://cdn.test/doc-1.pdf" {
		t.Fatalf("expected file reference, got %v", doc.FileURL)
	}
	if doc.Status != models.DocStatusProcessing {
		t.Fatalf("expected processing status, got %q", doc.Status)
	}
	if got := f.payments.count(); got != 1 {
		t.Fatalf("expected exactly 1 ledger entry, got %d", got)
	}
	if got := f.notifier.count(); got != 1 {
		t.Fatalf("expected exactly 1 intake notification, got %d", got)
	}
	if got := f.storage.uploadCount(); got != 1 {
		t.Fatalf("expected exactly 1 storage upload, got %d", got)
	}
	if f.staging.has("staged-doc-1") {
		t.Fatalf("expected staged file to be discarded after finalization")
	}
}

func TestLedgerEntryRecordsPurchaseAmounts(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	meta := stagedMetadata(t, f, "doc-1")

	if err := f.rec.ProcessCompletedSession(context.Background(), "cs_test_2", meta); err != nil {
		t.Fatalf("process session: %v", err)
	}

	payment, err := f.payments.GetBySessionID("cs_test_2")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if payment.NetAmount != 55.80 || payment.GrossAmount != 58 || payment.FeeAmount != 2.20 {
		t.Fatalf("amounts not preserved: net=%v gross=%v fee=%v",
			payment.NetAmount, payment.GrossAmount, payment.FeeAmount)
	}
	if payment.DocumentID != "doc-1" || payment.UserID != "user-1" {
		t.Fatalf("unexpected payment attribution: %+v", payment)
	}
	if payment.Status != models.PaymentCompleted || payment.Method != models.MethodCard {
		t.Fatalf("unexpected payment state: status=%q method=%q", payment.Status, payment.Method)
	}
}

func TestMultiDocumentSessionWritesOneLedgerRow(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"), pendingDocument("doc-2"))
	meta := stagedMetadata(t, f, "doc-1", "doc-2")

	if err := f.rec.ProcessCompletedSession(context.Background(), "cs_test_3", meta); err != nil {
		t.Fatalf("process session: %v", err)
	}

	if got := f.payments.count(); got != 1 {
		t.Fatalf("expected 1 ledger entry for the whole cart, got %d", got)
	}
	if got := f.notifier.count(); got != 2 {
		t.Fatalf("expected one intake notification per document, got %d", got)
	}
	for _, id := range []string{"doc-1", "doc-2"} {
		doc, err := f.docs.GetByID(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if doc.FileURL == nil {
			t.Fatalf("expected %s to have a file reference", id)
		}
	}
}

func TestConcurrentWebhookAndFinalizer(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	meta := stagedMetadata(t, f, "doc-1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		webhook := i%2 == 0
		go func() {
			defer wg.Done()
			if webhook {
				_ = f.rec.ProcessCompletedSession(ctx, "cs_race", meta)
			} else {
				_, _ = f.rec.FinalizeSession(ctx, "cs_race", meta)
			}
		}()
	}
	wg.Wait()

	doc, err := f.docs.GetByID("doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.FileURL == nil || *doc.FileURL != "https://cdn.test/doc-1.pdf" {
		t.Fatalf("expected file reference, got %v", doc.FileURL)
	}
	if got := f.payments.count(); got != 1 {
		t.Fatalf("expected exactly 1 ledger entry after race, got %d", got)
	}
	if got := f.notifier.count(); got != 1 {
		t.Fatalf("expected exactly 1 intake notification after race, got %d", got)
	}
}

func TestExistingFileReferenceIsNeverOverwritten(t *testing.T) {
	doc := pendingDocument("doc-1")
	existing := "https://cdn.test/original.pdf"
	doc.FileURL = &existing
	f := newFixture(doc)
	meta := stagedMetadata(t, f, "doc-1")

	if err := f.rec.ProcessCompletedSession(context.Background(), "cs_test_4", meta); err != nil {
		t.Fatalf("process session: %v", err)
	}

	after, err := f.docs.GetByID("doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if *after.FileURL != existing {
		t.Fatalf("file reference was overwritten: %q", *after.FileURL)
	}
	if got := f.storage.uploadCount(); got != 0 {
		t.Fatalf("expected no uploads for an already-finalized document, got %d", got)
	}
	if got := f.payments.count(); got != 0 {
		t.Fatalf("expected no new ledger entry on replay, got %d", got)
	}
}

func TestUploadFailureMarksDocumentAndReportsRetryPath(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	f.storage.err = errors.New("provider rejected the object")
	meta := stagedMetadata(t, f, "doc-1")

	result, err := f.rec.FinalizeSession(context.Background(), "cs_test_5", meta)
	if err != nil {
		t.Fatalf("finalize session: %v", err)
	}
	if len(result.Documents) != 1 {
		t.Fatalf("expected 1 document outcome, got %d", len(result.Documents))
	}
	outcome := result.Documents[0]
	if outcome.Status != OutcomeUploadFailed {
		t.Fatalf("expected upload_failed outcome, got %q", outcome.Status)
	}
	if outcome.RetryPath != "/retry-upload?documentId=doc-1&from=payment" {
		t.Fatalf("unexpected retry path: %q", outcome.RetryPath)
	}

	doc, err := f.docs.GetByID("doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.UploadFailedAt == nil {
		t.Fatalf("expected upload-failed marker on document")
	}
	if doc.FileURL != nil {
		t.Fatalf("expected no file reference after failed upload, got %v", *doc.FileURL)
	}
	if got := f.payments.count(); got != 0 {
		t.Fatalf("expected no ledger entry when no document finalized, got %d", got)
	}
}

func TestMissingStagedFileIsUploadFailure(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	meta := stagedMetadata(t, f, "doc-1")
	f.staging.files = map[string][]byte{} // expired before finalization

	result, err := f.rec.FinalizeSession(context.Background(), "cs_test_6", meta)
	if err != nil {
		t.Fatalf("finalize session: %v", err)
	}
	if result.Documents[0].Status != OutcomeUploadFailed {
		t.Fatalf("expected upload_failed for expired staged file, got %q", result.Documents[0].Status)
	}
	if got := f.storage.uploadCount(); got != 0 {
		t.Fatalf("expected no upload attempt without staged bytes, got %d", got)
	}
}

func TestFinalizeSessionDeduplicatesWithinInstance(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	meta := stagedMetadata(t, f, "doc-1")
	ctx := context.Background()

	first, err := f.rec.FinalizeSession(ctx, "cs_test_7", meta)
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if first.AlreadyProcessed {
		t.Fatalf("first finalize should not report already processed")
	}

	second, err := f.rec.FinalizeSession(ctx, "cs_test_7", meta)
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatalf("second finalize should report already processed")
	}
	if len(second.Documents) != 0 {
		t.Fatalf("deduplicated finalize should do no work, got %d outcomes", len(second.Documents))
	}
}

func TestMobileFilePathSkipsStorage(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	p := Purchase{
		UserID:      "user-1",
		GrossAmount: 30,
		NetAmount:   29,
		FeeAmount:   1,
		Currency:    "usd",
		Documents: []PurchaseDocument{{
			ID:       "doc-1",
			Pages:    2,
			FilePath: "https://files.example.com/pre-uploaded.pdf",
			Filename: "doc-1.pdf",
			Price:    30,
		}},
	}
	meta, err := BuildMetadata(p)
	if err != nil {
		t.Fatalf("build metadata: %v", err)
	}

	if err := f.rec.ProcessCompletedSession(context.Background(), "cs_test_8", meta); err != nil {
		t.Fatalf("process session: %v", err)
	}

	doc, err := f.docs.GetByID("doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.FileURL == nil || *doc.FileURL != "https://files.example.com/pre-uploaded.pdf" {
		t.Fatalf("expected pre-uploaded path as file reference, got %v", doc.FileURL)
	}
	if got := f.storage.uploadCount(); got != 0 {
		t.Fatalf("expected no storage upload for pre-uploaded file, got %d", got)
	}
}

func TestWebhookRejectsUnrecoverableMetadata(t *testing.T) {
	f := newFixture()
	err := f.rec.ProcessCompletedSession(context.Background(), "cs_test_9", map[string]string{"userId": "user-1"})
	if !errors.Is(err, ErrBadMetadata) {
		t.Fatalf("expected ErrBadMetadata, got %v", err)
	}
}

func TestTransientStorageErrorSurfacesAsUploadFailure(t *testing.T) {
	f := newFixture(pendingDocument("doc-1"))
	f.storage.err = &storage.TransientError{Err: errors.New("timeout")}
	meta := stagedMetadata(t, f, "doc-1")

	result, err := f.rec.FinalizeSession(context.Background(), "cs_test_10", meta)
	if err != nil {
		t.Fatalf("finalize session: %v", err)
	}
	if result.Documents[0].Status != OutcomeUploadFailed {
		t.Fatalf("expected upload_failed, got %q", result.Documents[0].Status)
	}
}
