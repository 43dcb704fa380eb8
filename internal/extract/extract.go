// Package extract provides the text-extraction collaborators consumed by
// the indexing pipeline: direct page text extraction and OCR fallback.
// Both are narrow interfaces; the pipeline treats them as black boxes.
package extract

import (
	"context"
)

// Extractor yields raw text for one page of a document. Implementations
// may return near-empty text for image-only pages; the pipeline decides
// per page whether to fall back to OCR, but only for formats that can be
// rasterized.
type Extractor interface {
	// PageCount returns the number of pages in the document.
	PageCount(docPath string) (int, error)

	// PageText returns the raw extracted text of a 1-based page.
	PageText(docPath string, page int) (string, error)

	// Rasterizable reports whether pages of this format can be rendered
	// to images for OCR. Plain-text formats return false: a short page
	// there is genuinely short, not an extraction miss.
	Rasterizable() bool
}

// OCR produces best-effort text from a rendered page image. There are no
// structural guarantees beyond printing readable text when present.
type OCR interface {
	// PageText rasterizes the 1-based page of the document and runs
	// character recognition over the image.
	PageText(ctx context.Context, docPath string, page int) (string, error)
}
