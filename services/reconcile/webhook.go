package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ProcessCompletedSession is the webhook-side entry point. The payment
// provider delivers completion events at least once and deliveries may
// overlap; every step below is safe to replay.
func (r *Reconciler) ProcessCompletedSession(ctx context.Context, sessionID string, meta map[string]string) error {
	purchase, err := ParseMetadata(meta)
	if err != nil {
		return fmt.Errorf("failed to recover purchase from session %s metadata: %w", sessionID, err)
	}

	// Best-effort local record update; the provider session is authoritative.
	if err := r.Sessions.MarkCompleted(sessionID); err != nil {
		r.Logger.Warn("Failed to mark local session record completed",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	skipPayment := false
	failed := 0
	for _, pd := range purchase.Documents {
		outcome := r.processDocument(ctx, sessionID, pd, purchase, &skipPayment)
		if outcome.Status == OutcomeError {
			failed++
		}
		r.Logger.Info("Webhook processed document",
			zap.String("sessionId", sessionID),
			zap.String("documentId", pd.ID),
			zap.String("outcome", outcome.Status))
	}
	if failed > 0 {
		// Surface a retryable error so the provider redelivers; replays are safe.
		return fmt.Errorf("%d of %d documents failed processing for session %s",
			failed, len(purchase.Documents), sessionID)
	}
	return nil
}
