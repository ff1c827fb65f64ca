// models/document.go
package models

import "time"

// Document lifecycle statuses.
const (
	DocStatusPending       = "pending"
	DocStatusStripePending = "stripe_pending"
	DocStatusZellePending  = "zelle_pending"
	DocStatusProcessing    = "processing"
	DocStatusCompleted     = "completed"
)

// Translation tiers.
const (
	TierCertified = "certified"
	TierStandard  = "standard"
)

// Document represents one file to be translated.
type Document struct {
	ID               string `bson:"id" json:"id"`
	UserID           string `bson:"user_id" json:"userId"`
	Filename         string `bson:"filename" json:"filename"` // system-generated, collision-resistant
	OriginalFilename string `bson:"original_filename" json:"originalFilename"`
	Pages            int    `bson:"pages" json:"pages"`

	// Translation options.
	TranslationType string `bson:"translation_type" json:"translationType"`
	Notarization    bool   `bson:"notarization" json:"notarization"`
	BankStatement   bool   `bson:"bank_statement" json:"bankStatement"`
	SourceLanguage  string `bson:"source_language" json:"sourceLanguage"`
	TargetLanguage  string `bson:"target_language" json:"targetLanguage"`
	SourceCurrency  string `bson:"source_currency" json:"sourceCurrency"`
	TargetCurrency  string `bson:"target_currency" json:"targetCurrency"`

	Cost             float64 `bson:"cost" json:"cost"`
	VerificationCode string  `bson:"verification_code" json:"verificationCode"`
	Status           string  `bson:"status" json:"status"`

	// FileURL is set at most once per upload attempt cycle; nil means no
	// durable copy exists yet.
	FileURL        *string    `bson:"file_url" json:"fileUrl,omitempty"`
	UploadFailedAt *time.Time `bson:"upload_failed_at" json:"uploadFailedAt,omitempty"`
	RetryCount     int        `bson:"retry_count" json:"retryCount"`

	ClaimedAt *time.Time `bson:"claimed_at" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}
