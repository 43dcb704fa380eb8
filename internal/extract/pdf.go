package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads page text directly from PDF content streams.
// Scanned PDFs typically yield near-empty text here and are handled by
// the OCR fallback instead.
type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// PageCount returns the number of pages in the PDF.
func (e *PDFExtractor) PageCount(docPath string) (int, error) {
	f, r, err := pdf.Open(docPath)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", docPath, err)
	}
	defer func() { _ = f.Close() }()

	return r.NumPage(), nil
}

// PageText extracts the plain text of one page.
func (e *PDFExtractor) PageText(docPath string, page int) (string, error) {
	f, r, err := pdf.Open(docPath)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", docPath, err)
	}
	defer func() { _ = f.Close() }()

	if page < 1 || page > r.NumPage() {
		return "", fmt.Errorf("page %d out of range for %s", page, docPath)
	}

	p := r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	text, err := pageLines(p)
	if err != nil {
		return "", fmt.Errorf("extract page %d of %s: %w", page, docPath, err)
	}
	return text, nil
}

// Rasterizable reports that PDF pages can be rendered for OCR.
func (e *PDFExtractor) Rasterizable() bool { return true }

// pageLines reconstructs line breaks from text positions. GetPlainText
// concatenates rows without separators, which would merge every line of
// a page into one segment, so rows are grouped by their Y coordinate.
func pageLines(p pdf.Page) (string, error) {
	content := p.Content()

	var sb strings.Builder
	var lastY float64
	for i, txt := range content.Text {
		if i > 0 && txt.Y != lastY {
			sb.WriteString("\n")
		}
		sb.WriteString(txt.S)
		lastY = txt.Y
	}
	return sb.String(), nil
}

// TextExtractor treats a plain-text document as a sequence of pages
// separated by form feeds. A file without form feeds is one page.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

// NewTextExtractor creates a plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) pages(docPath string) ([]string, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", docPath, err)
	}
	return strings.Split(string(data), "\f"), nil
}

// PageCount returns the number of form-feed separated pages.
func (e *TextExtractor) PageCount(docPath string) (int, error) {
	pages, err := e.pages(docPath)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// PageText returns the raw text of a 1-based page.
func (e *TextExtractor) PageText(docPath string, page int) (string, error) {
	pages, err := e.pages(docPath)
	if err != nil {
		return "", err
	}
	if page < 1 || page > len(pages) {
		return "", fmt.Errorf("page %d out of range for %s", page, docPath)
	}
	return pages[page-1], nil
}

// Rasterizable reports that plain text has no page image to recover.
func (e *TextExtractor) Rasterizable() bool { return false }

// ForDocument selects an extractor by file extension.
func ForDocument(docPath string) Extractor {
	if strings.EqualFold(filepath.Ext(docPath), ".pdf") {
		return NewPDFExtractor()
	}
	return NewTextExtractor()
}
