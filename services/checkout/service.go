package checkout

import (
	"context"
	"fmt"
	"math"

	documentRepo "lingodoc/database/repository/document"
	paymentRepo "lingodoc/database/repository/payment"
	sessionRepo "lingodoc/database/repository/session"
	"lingodoc/models"
	"lingodoc/services/pricing"
	"lingodoc/services/reconcile"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// DefaultCheckoutService implements CheckoutService on Stripe Checkout.
type DefaultCheckoutService struct {
	Sessions  sessionRepo.SessionRepository
	Documents documentRepo.DocumentRepository
	Payments  paymentRepo.PaymentRepository
	Logger    *zap.Logger
	BaseURL   string
	Currency  string
}

// CreateSession prices the cart, creates the hosted checkout session with the
// full purchase context embedded as metadata, and records the session locally
// best-effort. The provider session is authoritative; a failed local insert is
// logged, not fatal.
func (s *DefaultCheckoutService) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var total float64
	docIDs := make([]string, 0, len(req.Documents))
	purchaseDocs := make([]reconcile.PurchaseDocument, 0, len(req.Documents))
	for i := range req.Documents {
		d := &req.Documents[i]
		d.Price = pricing.DocumentPrice(d.Pages, d.TranslationType, d.BankStatement)
		total += d.Price
		docIDs = append(docIDs, d.DocumentID)
		purchaseDocs = append(purchaseDocs, reconcile.PurchaseDocument{
			ID:              d.DocumentID,
			Pages:           d.Pages,
			FileID:          d.FileID,
			FilePath:        d.FilePath,
			Filename:        d.Filename,
			TranslationType: d.TranslationType,
			Notarization:    d.Notarization,
			BankStatement:   d.BankStatement,
			SourceLanguage:  d.SourceLanguage,
			TargetLanguage:  d.TargetLanguage,
			SourceCurrency:  d.SourceCurrency,
			TargetCurrency:  d.TargetCurrency,
			Price:           d.Price,
		})
	}

	purchase := reconcile.Purchase{
		UserID:      req.UserID,
		UserEmail:   req.UserEmail,
		Documents:   purchaseDocs,
		TotalPrice:  total,
		NetAmount:   total,
		GrossAmount: total,
		Currency:    s.Currency,
	}
	meta, err := reconcile.BuildMetadata(purchase)
	if err != nil {
		return nil, fmt.Errorf("failed to build session metadata: %w", err)
	}

	primaryDoc := docIDs[0]
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.UserEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.Currency),
					UnitAmount: stripe.Int64(toCents(total)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(lineItemName(len(req.Documents))),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.BaseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}&documentId=" + primaryDoc),
		CancelURL:  stripe.String(s.BaseURL + "/payment-cancelled?documentId=" + primaryDoc),
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	stripeSession, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.Documents.UpdateStatusMany(docIDs, models.DocStatusStripePending); err != nil {
		s.Logger.Warn("Failed to move documents to stripe_pending", zap.Error(err))
	}

	record := &models.CheckoutSession{
		SessionID:   stripeSession.ID,
		DocumentID:  primaryDoc,
		DocumentIDs: docIDs,
		UserID:      req.UserID,
		Metadata:    meta,
		Amount:      total,
		Currency:    s.Currency,
	}
	if err := s.Sessions.Create(record); err != nil {
		// The local record is a convenience cache only.
		s.Logger.Warn("Failed to persist checkout session record",
			zap.String("sessionId", stripeSession.ID), zap.Error(err))
	}

	s.Logger.Info("Created checkout session",
		zap.String("sessionId", stripeSession.ID),
		zap.Int("documents", len(docIDs)),
		zap.Float64("total", total))

	return &CreateSessionResult{
		SessionID:  stripeSession.ID,
		URL:        stripeSession.URL,
		TotalPrice: total,
	}, nil
}

// SessionInfo reads the purchase context back from the provider, falling back
// to the local record when the provider is unreachable.
func (s *DefaultCheckoutService) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	stripeSession, err := session.Get(sessionID, nil)
	if err == nil {
		return &SessionInfo{
			SessionID:     stripeSession.ID,
			Metadata:      stripeSession.Metadata,
			PaymentStatus: string(stripeSession.PaymentStatus),
			Status:        string(stripeSession.Status),
		}, nil
	}
	s.Logger.Warn("Failed to fetch session from provider, trying local record",
		zap.String("sessionId", sessionID), zap.Error(err))

	record, repoErr := s.Sessions.GetBySessionID(sessionID)
	if repoErr != nil {
		return nil, fmt.Errorf("failed to look up session %s: %w", sessionID, err)
	}
	paymentStatus := "unpaid"
	if record.PaymentStatus == models.SessionPaymentCompleted {
		paymentStatus = "paid"
	}
	return &SessionInfo{
		SessionID:     record.SessionID,
		Metadata:      record.Metadata,
		PaymentStatus: paymentStatus,
		Status:        record.PaymentStatus,
	}, nil
}

func validateRequest(req CreateSessionRequest) error {
	if req.UserID == "" {
		return &ValidationError{Msg: "missing user ID"}
	}
	if len(req.Documents) == 0 {
		return &ValidationError{Msg: "no documents in request"}
	}
	for _, d := range req.Documents {
		if d.DocumentID == "" {
			return &ValidationError{Msg: "missing document ID"}
		}
		if d.Pages < 1 {
			return &ValidationError{Msg: fmt.Sprintf("invalid page count %d for document %s", d.Pages, d.DocumentID)}
		}
		if req.Platform == "mobile" {
			if d.FilePath == "" {
				return &ValidationError{Msg: fmt.Sprintf("missing file path for document %s", d.DocumentID)}
			}
		} else if d.FileID == "" {
			return &ValidationError{Msg: fmt.Sprintf("missing staged file ID for document %s", d.DocumentID)}
		}
	}
	return nil
}

func lineItemName(count int) string {
	if count == 1 {
		return "Document translation"
	}
	return fmt.Sprintf("Document translation (%d documents)", count)
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
