package checkout

import (
	"context"
	"fmt"

	"lingodoc/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmZelle moves the documents to zelle_pending and writes the pending
// ledger entry. The entry starts at pending_verification and is advanced only
// by staff review. Manual transfers have no provider session, so a synthetic
// session ID keeps the one-row-per-session invariant enforceable.
func (s *DefaultCheckoutService) ConfirmZelle(ctx context.Context, req ZelleConfirmRequest) (*models.Payment, error) {
	if req.UserID == "" {
		return nil, &ValidationError{Msg: "missing user ID"}
	}
	if len(req.DocumentIDs) == 0 {
		return nil, &ValidationError{Msg: "no documents in request"}
	}
	if req.Amount <= 0 {
		return nil, &ValidationError{Msg: "invalid payment amount"}
	}
	currency := req.Currency
	if currency == "" {
		currency = s.Currency
	}

	if err := s.Documents.UpdateStatusMany(req.DocumentIDs, models.DocStatusZellePending); err != nil {
		return nil, fmt.Errorf("failed to move documents to zelle_pending: %w", err)
	}

	payment := &models.Payment{
		ID:          uuid.New().String(),
		DocumentID:  req.DocumentIDs[0],
		UserID:      req.UserID,
		SessionID:   "zelle-" + uuid.New().String(),
		NetAmount:   req.Amount,
		GrossAmount: req.Amount,
		FeeAmount:   0,
		Currency:    currency,
		Status:      models.PaymentPendingVerification,
		Method:      models.MethodZelle,
	}
	if _, err := s.Payments.CreateOnce(payment); err != nil {
		return nil, fmt.Errorf("failed to record zelle payment: %w", err)
	}

	s.Logger.Info("Recorded zelle payment pending verification",
		zap.String("paymentId", payment.ID),
		zap.Strings("documentIds", req.DocumentIDs))
	return payment, nil
}
