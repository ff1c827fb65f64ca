package checkout

import (
	"context"

	"lingodoc/models"
)

// DocumentInput carries one document's checkout inputs.
type DocumentInput struct {
	DocumentID      string  `json:"documentId"`
	Pages           int     `json:"pages"`
	TranslationType string  `json:"translationType"`
	Notarization    bool    `json:"notarization"`
	BankStatement   bool    `json:"bankStatement"`
	SourceLanguage  string  `json:"sourceLanguage"`
	TargetLanguage  string  `json:"targetLanguage"`
	SourceCurrency  string  `json:"sourceCurrency"`
	TargetCurrency  string  `json:"targetCurrency"`
	FileID          string  `json:"fileId"`
	FilePath        string  `json:"filePath"`
	Filename        string  `json:"filename"`
	Price           float64 `json:"-"`
}

// CreateSessionRequest is the checkout factory input: one document, or a
// multi-document cart.
type CreateSessionRequest struct {
	UserID    string          `json:"userId"`
	UserEmail string          `json:"userEmail"`
	Platform  string          `json:"platform"` // "desktop" (staged file) or "mobile" (pre-uploaded path)
	Documents []DocumentInput `json:"documents"`
}

// CreateSessionResult is returned to the browser to launch the hosted page.
type CreateSessionResult struct {
	SessionID  string  `json:"sessionId"`
	URL        string  `json:"url"`
	TotalPrice float64 `json:"totalPrice"`
}

// SessionInfo is the purchase context recoverable for a session, used by the
// finalizer on return from the payment page.
type SessionInfo struct {
	SessionID     string            `json:"sessionId"`
	Metadata      map[string]string `json:"metadata"`
	PaymentStatus string            `json:"paymentStatus"`
	Status        string            `json:"status"`
}

// ZelleConfirmRequest records a manual bank-transfer confirmation.
type ZelleConfirmRequest struct {
	UserID      string   `json:"userId"`
	DocumentIDs []string `json:"documentIds"`
	Amount      float64  `json:"amount"`
	Currency    string   `json:"currency"`
}

// CheckoutService creates payment-provider sessions and records manual
// transfer confirmations.
type CheckoutService interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error)
	SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error)
	ConfirmZelle(ctx context.Context, req ZelleConfirmRequest) (*models.Payment, error)
}

// ValidationError rejects bad checkout input; handlers map it to a 4xx.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
