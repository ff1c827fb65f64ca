package notify

import (
	"context"

	"lingodoc/models"
)

// IntakeNotifier hands a finalized document off to the translation back
// office. Delivery is best-effort: callers log failures and move on.
type IntakeNotifier interface {
	NotifyIntake(ctx context.Context, n models.IntakeNotification) error
}
