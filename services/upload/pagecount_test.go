package upload

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// makePDF builds a minimal but well-formed PDF with the given number of empty
// pages, including a correct xref table.
func makePDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))

	for i := 0; i < pages; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", 3+i))
	}

	xrefPos := buf.Len()
	total := 3 + pages
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", total))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		total, xrefPos))
	return buf.Bytes()
}

func TestCountPages(t *testing.T) {
	for _, pages := range []int{1, 3, 7} {
		got, err := CountPages(makePDF(pages))
		if err != nil {
			t.Fatalf("count pages of %d-page file: %v", pages, err)
		}
		if got != pages {
			t.Fatalf("expected %d pages, got %d", pages, got)
		}
	}
}

func TestCountPagesRejectsGarbage(t *testing.T) {
	if _, err := CountPages([]byte("this is not a pdf")); err == nil {
		t.Fatalf("expected error for non-PDF bytes")
	}
}

func TestValidatePageCount(t *testing.T) {
	result, err := ValidatePageCount(makePDF(3), 3)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid || result.ActualPages != 3 {
		t.Fatalf("expected valid match, got %+v", result)
	}

	result, err = ValidatePageCount(makePDF(2), 3)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected mismatch to be invalid")
	}
	if result.ActualPages != 2 {
		t.Fatalf("expected actual page count 2, got %d", result.ActualPages)
	}
}
