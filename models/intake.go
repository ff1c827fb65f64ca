// models/intake.go
package models

// IntakeNotification is the payload posted to the translation back-office
// webhook once a document's file is durably stored.
type IntakeNotification struct {
	DocumentID       string `json:"documentId"`
	Filename         string `json:"filename"`
	FileURL          string `json:"fileUrl"`
	Pages            int    `json:"pages"`
	TranslationType  string `json:"translationType"`
	Notarization     bool   `json:"notarization"`
	BankStatement    bool   `json:"bankStatement"`
	SourceLanguage   string `json:"sourceLanguage"`
	TargetLanguage   string `json:"targetLanguage"`
	SourceCurrency   string `json:"sourceCurrency"`
	TargetCurrency   string `json:"targetCurrency"`
	VerificationCode string `json:"verificationCode"`
}
