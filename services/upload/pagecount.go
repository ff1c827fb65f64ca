package upload

import (
	"bytes"
	"fmt"

	pdf "github.com/ledongthuc/pdf"
)

// PageCountResult reports whether a candidate PDF matches the expected page
// count, along with what was actually found.
type PageCountResult struct {
	Valid       bool `json:"valid"`
	ActualPages int  `json:"actualPages"`
}

// CountPages reads PDF bytes and returns the page count.
func CountPages(data []byte) (int, error) {
	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("new pdf reader: %w", err)
	}
	return doc.NumPage(), nil
}

// ValidatePageCount requires the candidate file's real page count to equal
// the expected count exactly.
func ValidatePageCount(data []byte, expected int) (PageCountResult, error) {
	actual, err := CountPages(data)
	if err != nil {
		return PageCountResult{}, err
	}
	return PageCountResult{Valid: actual == expected, ActualPages: actual}, nil
}
