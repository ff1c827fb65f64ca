// models/session.go
package models

import "time"

// Checkout session payment statuses.
const (
	SessionPaymentPending   = "pending"
	SessionPaymentCompleted = "completed"
)

// CheckoutSession mirrors one payment-provider session. It is a convenience
// cache: the provider-held session is authoritative and carries the same
// metadata bag.
type CheckoutSession struct {
	SessionID     string            `bson:"session_id" json:"sessionId"`
	DocumentID    string            `bson:"document_id" json:"documentId"` // primary document
	DocumentIDs   []string          `bson:"document_ids" json:"documentIds"`
	UserID        string            `bson:"user_id" json:"userId"`
	Metadata      map[string]string `bson:"metadata" json:"metadata"`
	PaymentStatus string            `bson:"payment_status" json:"paymentStatus"`
	Amount        float64           `bson:"amount" json:"amount"`
	Currency      string            `bson:"currency" json:"currency"`
	CreatedAt     time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updatedAt"`
}
