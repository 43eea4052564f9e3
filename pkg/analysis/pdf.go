// Package analysis turns an uploaded screenplay into clearance risk flags:
// page text extraction followed by per-page model review.
package analysis

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadablePDF is returned when a file cannot be parsed as a PDF.
var ErrUnreadablePDF = errors.New("unreadable PDF")

// PageExtractor returns the trimmed text of every page, page 1 first.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}

// PDFExtractor reads text layers with ledongthuc/pdf.
type PDFExtractor struct{}

var _ PageExtractor = PDFExtractor{}

// ExtractPages opens the file at path and returns one entry per page.
// Pages without a text layer yield "".
func (PDFExtractor) ExtractPages(path string) (pages []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	total := reader.NumPage()
	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadablePDF, i, err)
		}
		pages[i-1] = strings.TrimSpace(text)
	}
	return pages, nil
}
