package reconcile

import (
	"context"
	"fmt"
)

// FinalizeSession is the customer-facing entry point, run when the browser
// returns from the hosted payment page. It races ProcessCompletedSession for
// the same session; either side may win any individual step.
//
// The processed-session marker below is process-local and deliberately not
// durable. It only suppresses duplicate work within one server instance; the
// real safety net is the document-row CAS in the repository.
func (r *Reconciler) FinalizeSession(ctx context.Context, sessionID string, meta map[string]string) (*SessionResult, error) {
	r.mu.Lock()
	if _, done := r.processed[sessionID]; done {
		r.mu.Unlock()
		r.Logger.Info("Session already finalized by this instance, skipping")
		return &SessionResult{SessionID: sessionID, AlreadyProcessed: true}, nil
	}
	r.processed[sessionID] = struct{}{}
	r.mu.Unlock()

	purchase, err := ParseMetadata(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to recover purchase from session %s metadata: %w", sessionID, err)
	}

	result := &SessionResult{SessionID: sessionID}
	skipPayment := false
	for _, pd := range purchase.Documents {
		outcome := r.processDocument(ctx, sessionID, pd, purchase, &skipPayment)
		result.Documents = append(result.Documents, outcome)
	}
	return result, nil
}
