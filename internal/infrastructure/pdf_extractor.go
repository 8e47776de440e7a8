package infrastructure

import (
	"fmt"
	"io"
	"strings"

	"salesgenius/internal/interfaces"

	"github.com/ledongthuc/pdf"
)

type PDFTextExtractor struct{}

var _ interfaces.PDFExtractor = PDFTextExtractor{}

// ExtractText returns the plain text of the first maxPages pages.
func (PDFTextExtractor) ExtractText(r io.ReaderAt, size int64, maxPages int) (text string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf: page %d: %w", i, err)
		}
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
