// models/payment.go
package models

import "time"

// Payment ledger statuses.
const (
	PaymentCompleted           = "completed"
	PaymentPendingVerification = "pending_verification"
	PaymentVerified            = "verified"
)

// Payment methods.
const (
	MethodCard  = "card"
	MethodZelle = "zelle"
)

// Payment is an immutable ledger entry for money received. Exactly one row
// exists per completed checkout session, however many documents it covered.
// Net, gross and fee are independently authoritative inputs; none is derived
// from the others.
type Payment struct {
	ID          string    `bson:"id" json:"id"`
	DocumentID  string    `bson:"document_id" json:"documentId"` // primary document when multiple
	UserID      string    `bson:"user_id" json:"userId"`
	SessionID   string    `bson:"session_id" json:"sessionId"`
	NetAmount   float64   `bson:"net_amount" json:"netAmount"`
	GrossAmount float64   `bson:"gross_amount" json:"grossAmount"`
	FeeAmount   float64   `bson:"fee_amount" json:"feeAmount"`
	Currency    string    `bson:"currency" json:"currency"`
	Status      string    `bson:"status" json:"status"`
	Method      string    `bson:"method" json:"method"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}
