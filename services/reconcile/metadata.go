package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrBadMetadata marks a session whose metadata bag carries no recoverable
// purchase. Redelivery cannot fix it, so webhook handlers do not ask the
// provider to retry.
var ErrBadMetadata = errors.New("unrecoverable session metadata")

// The checkout metadata bag is the only cross-request context channel: the
// webhook and the finalizer both reconstruct the purchase from the
// provider-held session metadata, never from each other. The factory writes
// schema v2 (an explicit documentIds list); the parser still accepts the
// indexed-key and legacy single-document layouts for sessions created before
// the schema change.

// Metadata keys.
const (
	keySchemaVersion = "schemaVersion"
	keyUserID        = "userId"
	keyUserEmail     = "userEmail"
	keyDocumentIDs   = "documentIds"
	keyDocumentCount = "documentCount"
	keyTotalPrice    = "totalPrice"
	keyNetAmount     = "netAmount"
	keyGrossAmount   = "grossAmount"
	keyFeeAmount     = "feeAmount"
	keyCurrency      = "currency"

	// Legacy single-document keys.
	keyLegacyDocumentID = "documentId"
)

// PurchaseDocument is one document recovered from session metadata.
type PurchaseDocument struct {
	ID              string
	Pages           int
	FileID          string
	FilePath        string
	Filename        string
	TranslationType string
	Notarization    bool
	BankStatement   bool
	SourceLanguage  string
	TargetLanguage  string
	SourceCurrency  string
	TargetCurrency  string
	Price           float64
}

// Purchase is the full context recovered from a session's metadata bag.
type Purchase struct {
	UserID      string
	UserEmail   string
	Documents   []PurchaseDocument
	TotalPrice  float64
	NetAmount   float64
	GrossAmount float64
	FeeAmount   float64
	Currency    string
}

// BuildMetadata flattens a purchase into the session metadata bag (schema v2).
// Single-document purchases also carry the legacy documentId key so older
// consumers keep working.
func BuildMetadata(p Purchase) (map[string]string, error) {
	ids := make([]string, len(p.Documents))
	for i, d := range p.Documents {
		ids[i] = d.ID
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document ids: %w", err)
	}

	meta := map[string]string{
		keySchemaVersion: "2",
		keyUserID:        p.UserID,
		keyUserEmail:     p.UserEmail,
		keyDocumentIDs:   string(idsJSON),
		keyDocumentCount: strconv.Itoa(len(p.Documents)),
		keyTotalPrice:    formatAmount(p.TotalPrice),
		keyNetAmount:     formatAmount(p.NetAmount),
		keyGrossAmount:   formatAmount(p.GrossAmount),
		keyFeeAmount:     formatAmount(p.FeeAmount),
		keyCurrency:      p.Currency,
	}

	for i, d := range p.Documents {
		prefix := fmt.Sprintf("document_%d_", i)
		meta[prefix+"id"] = d.ID
		meta[prefix+"pages"] = strconv.Itoa(d.Pages)
		meta[prefix+"fileId"] = d.FileID
		meta[prefix+"filePath"] = d.FilePath
		meta[prefix+"filename"] = d.Filename
		meta[prefix+"translationType"] = d.TranslationType
		meta[prefix+"notarization"] = strconv.FormatBool(d.Notarization)
		meta[prefix+"bankStatement"] = strconv.FormatBool(d.BankStatement)
		meta[prefix+"sourceLanguage"] = d.SourceLanguage
		meta[prefix+"targetLanguage"] = d.TargetLanguage
		meta[prefix+"sourceCurrency"] = d.SourceCurrency
		meta[prefix+"targetCurrency"] = d.TargetCurrency
		meta[prefix+"price"] = formatAmount(d.Price)
	}

	if len(p.Documents) == 1 {
		meta[keyLegacyDocumentID] = p.Documents[0].ID
	}
	return meta, nil
}

// ParseMetadata reconstructs the purchase from a session metadata bag.
// Recovery order: explicit documentIds list, then indexed document_N_id keys,
// then the legacy single documentId key.
func ParseMetadata(meta map[string]string) (*Purchase, error) {
	p := &Purchase{
		UserID:      meta[keyUserID],
		UserEmail:   meta[keyUserEmail],
		TotalPrice:  parseAmount(meta[keyTotalPrice]),
		NetAmount:   parseAmount(meta[keyNetAmount]),
		GrossAmount: parseAmount(meta[keyGrossAmount]),
		FeeAmount:   parseAmount(meta[keyFeeAmount]),
		Currency:    meta[keyCurrency],
	}

	ids := recoverDocumentIDs(meta)
	if len(ids) == 0 {
		return nil, fmt.Errorf("metadata carries no document identifiers: %w", ErrBadMetadata)
	}

	for i, id := range ids {
		p.Documents = append(p.Documents, parseDocument(meta, i, id))
	}
	return p, nil
}

func recoverDocumentIDs(meta map[string]string) []string {
	// Explicit list (schema v2).
	if raw, ok := meta[keyDocumentIDs]; ok && raw != "" {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err == nil && len(ids) > 0 {
			return ids
		}
	}

	// Indexed keys.
	var ids []string
	for i := 0; ; i++ {
		id, ok := meta[fmt.Sprintf("document_%d_id", i)]
		if !ok || id == "" {
			break
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		return ids
	}

	// Legacy single-document key.
	if id := meta[keyLegacyDocumentID]; id != "" {
		return []string{id}
	}
	return nil
}

func parseDocument(meta map[string]string, index int, id string) PurchaseDocument {
	prefix := fmt.Sprintf("document_%d_", index)
	get := func(field, legacy string) string {
		if v, ok := meta[prefix+field]; ok {
			return v
		}
		// Legacy single-document sessions carried fields at the top level.
		return meta[legacy]
	}

	pages, _ := strconv.Atoi(get("pages", "pages"))
	notarization, _ := strconv.ParseBool(get("notarization", "notarization"))
	bankStatement, _ := strconv.ParseBool(get("bankStatement", "bankStatement"))

	return PurchaseDocument{
		ID:              id,
		Pages:           pages,
		FileID:          get("fileId", "fileId"),
		FilePath:        get("filePath", "filePath"),
		Filename:        get("filename", "filename"),
		TranslationType: get("translationType", "translationType"),
		Notarization:    notarization,
		BankStatement:   bankStatement,
		SourceLanguage:  get("sourceLanguage", "sourceLanguage"),
		TargetLanguage:  get("targetLanguage", "targetLanguage"),
		SourceCurrency:  get("sourceCurrency", "sourceCurrency"),
		TargetCurrency:  get("targetCurrency", "targetCurrency"),
		Price:           parseAmount(get("price", "price")),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseAmount(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
