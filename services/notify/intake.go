package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lingodoc/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types handled by the background worker.
const (
	TaskTypeIntakeNotify = "intake:notify"
	TaskTypeDraftCleanup = "drafts:cleanup"
)

// QueueIntakeNotifier enqueues intake notifications onto asynq so webhook and
// finalizer requests never block on the back office.
type QueueIntakeNotifier struct {
	Client *asynq.Client
	Logger *zap.Logger
}

// NewQueueIntakeNotifier constructs a notifier backed by the given asynq client.
func NewQueueIntakeNotifier(client *asynq.Client, logger *zap.Logger) *QueueIntakeNotifier {
	return &QueueIntakeNotifier{Client: client, Logger: logger}
}

// NotifyIntake enqueues the notification for delivery by the worker.
func (n *QueueIntakeNotifier) NotifyIntake(ctx context.Context, payload models.IntakeNotification) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal intake notification: %w", err)
	}
	task := asynq.NewTask(TaskTypeIntakeNotify, data)
	if _, err := n.Client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)); err != nil {
		return fmt.Errorf("failed to enqueue intake notification: %w", err)
	}
	n.Logger.Info("Enqueued intake notification", zap.String("documentId", payload.DocumentID))
	return nil
}

// HTTPIntakeSender posts the notification to the configured intake webhook.
// The worker uses it; it can also be wired directly when no queue is running.
type HTTPIntakeSender struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

// NewHTTPIntakeSender constructs a sender for the given webhook URL.
func NewHTTPIntakeSender(url string, logger *zap.Logger) *HTTPIntakeSender {
	return &HTTPIntakeSender{
		URL:    url,
		Client: &http.Client{Timeout: 15 * time.Second},
		Logger: logger,
	}
}

// NotifyIntake posts the payload to the intake webhook.
func (s *HTTPIntakeSender) NotifyIntake(ctx context.Context, payload models.IntakeNotification) error {
	if s.URL == "" {
		s.Logger.Warn("Intake webhook URL not configured, dropping notification",
			zap.String("documentId", payload.DocumentID))
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal intake notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build intake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post intake notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("intake webhook returned status %d", resp.StatusCode)
	}
	s.Logger.Info("Delivered intake notification", zap.String("documentId", payload.DocumentID))
	return nil
}
