// extract.go pulls text content out of a PDF for the convert tool.
//
// We use the ledongthuc/pdf library here; it's a pure Go text extractor, no
// CGO or external binaries, which keeps deployment a single binary. The
// structural tools in tools.go use pdfcpu instead; text extraction is the one
// job pdfcpu doesn't cover.
package pdfops

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction holds the text content pulled from one document.
type Extraction struct {
	Pages     []string // Per-page text, 0-indexed
	PageCount int
	WordCount int
}

// Text returns the whole document's text with page separators.
func (e *Extraction) Text() string {
	var sb strings.Builder
	for i, p := range e.Pages {
		if i > 0 {
			sb.WriteString(fmt.Sprintf("\n--- Page %d ---\n", i+1))
		}
		sb.WriteString(strings.TrimSpace(p))
	}
	return strings.TrimSpace(sb.String())
}

// ExtractText reads a PDF from memory and extracts all text content.
//
// The pdf library needs io.ReaderAt for random access to the PDF structure,
// so the upload is kept in memory, fine at our size limits.
func ExtractText(data []byte) (*Extraction, error) {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pageCount := pdfReader.NumPage()
	ex := &Extraction{PageCount: pageCount}

	for i := 1; i <= pageCount; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			ex.Pages = append(ex.Pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages carry only images; record the gap, don't fail.
			ex.Pages = append(ex.Pages, "")
			continue
		}
		ex.Pages = append(ex.Pages, text)
	}

	ex.WordCount = len(strings.Fields(ex.Text()))
	return ex, nil
}

// ValidatePDF checks the magic bytes: PDF files start with "%PDF-".
func ValidatePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
