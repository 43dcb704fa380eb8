// Package index orchestrates the per-document indexing pipeline:
// extraction (with per-page OCR fallback), normalization, batched
// embedding, and persistence into a fresh index store.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/doclens/doclens/internal/doclock"
	"github.com/doclens/doclens/internal/embed"
	doclenserr "github.com/doclens/doclens/internal/errors"
	"github.com/doclens/doclens/internal/extract"
	"github.com/doclens/doclens/internal/normalize"
	"github.com/doclens/doclens/internal/store"
)

const (
	// OCRTriggerLength is the extracted-text length below which a page is
	// treated as image-only and sent to OCR. Decided per page, never per
	// document.
	OCRTriggerLength = 50

	// BuildingSuffix marks a store being built under a temporary
	// identity. Readers never see it; it becomes the addressable store
	// only by the final rename.
	BuildingSuffix = ".building"
)

// Config wires the pipeline's collaborators. Embedder is required; the
// rest default to the production implementations.
type Config struct {
	Embedder embed.Embedder

	// OCR handles image-only pages. Defaults to TesseractOCR.
	OCR extract.OCR

	// ExtractorFor selects the direct-text extractor per document.
	// Defaults to extract.ForDocument.
	ExtractorFor func(docPath string) extract.Extractor

	// OCRTrigger overrides OCRTriggerLength when > 0.
	OCRTrigger int
}

// Pipeline indexes documents. Safe for concurrent use across different
// documents; indexing of the same document is serialized by a
// per-document file lock shared with the integrity guardian.
type Pipeline struct {
	embedder     embed.Embedder
	ocr          extract.OCR
	extractorFor func(string) extract.Extractor
	ocrTrigger   int
}

// New creates a pipeline from the config.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		embedder:     cfg.Embedder,
		ocr:          cfg.OCR,
		extractorFor: cfg.ExtractorFor,
		ocrTrigger:   cfg.OCRTrigger,
	}
	if p.ocr == nil {
		p.ocr = extract.NewTesseractOCR()
	}
	if p.extractorFor == nil {
		p.extractorFor = extract.ForDocument
	}
	if p.ocrTrigger <= 0 {
		p.ocrTrigger = OCRTriggerLength
	}
	return p
}

// Index builds a fresh index store for the document and returns the
// number of persisted segments. Any prior store for the document is
// replaced atomically: the new store is built under a temporary identity
// and renamed into place only once complete, so readers observe either
// the old valid store or the new one, never a partial write. A document
// yielding zero segments produces a valid, empty store.
//
// Any extraction or embedding failure aborts the whole run with an
// IndexingFailed error and discards the partial store.
func (p *Pipeline) Index(ctx context.Context, docPath string) (int, error) {
	storePath := store.PathFor(docPath)

	lock := doclock.ForStore(storePath)
	if err := lock.Lock(); err != nil {
		return 0, doclenserr.IndexingError(
			fmt.Sprintf("lock document %s", docPath), err)
	}
	defer func() { _ = lock.Unlock() }()

	buildPath := storePath + BuildingSuffix
	total, err := p.build(ctx, docPath, buildPath)
	if err != nil {
		_ = os.Remove(buildPath)
		return 0, err
	}

	// The swap destroys the previous store in its entirety; no stale
	// rows can survive a re-index.
	_ = os.Remove(storePath + "-wal")
	_ = os.Remove(storePath + "-shm")
	if err := os.Rename(buildPath, storePath); err != nil {
		_ = os.Remove(buildPath)
		return 0, doclenserr.IndexingError(
			fmt.Sprintf("activate new store for %s", docPath), err)
	}

	slog.Info("document_indexed",
		slog.String("doc", docPath),
		slog.Int("segments", total))
	return total, nil
}

// build populates a fresh store at buildPath and returns the segment
// count. The caller owns cleanup of buildPath on error.
func (p *Pipeline) build(ctx context.Context, docPath, buildPath string) (int, error) {
	s, err := store.Create(buildPath)
	if err != nil {
		return 0, doclenserr.IndexingError(
			fmt.Sprintf("create store for %s", docPath), err)
	}
	defer func() { _ = s.Close() }()

	extractor := p.extractorFor(docPath)
	pageCount, err := extractor.PageCount(docPath)
	if err != nil {
		return 0, doclenserr.IndexingError(fmt.Sprintf("index %s", docPath),
			doclenserr.ExtractionError(fmt.Sprintf("page count of %s", docPath), err))
	}

	total := 0
	for page := 1; page <= pageCount; page++ {
		lines, err := p.pageSegments(ctx, extractor, docPath, page)
		if err != nil {
			return 0, doclenserr.IndexingError(fmt.Sprintf("index %s", docPath), err)
		}
		if len(lines) == 0 {
			continue
		}

		// One batched embedding call per page bounds collaborator
		// round trips.
		vecs, err := p.embedder.EmbedBatch(ctx, lines)
		if err != nil {
			return 0, doclenserr.IndexingError(fmt.Sprintf("index %s", docPath), err)
		}

		for i, text := range lines {
			seg := store.Segment{
				DocID:     docPath,
				Page:      page,
				Line:      i + 1,
				Text:      text,
				Embedding: vecs[i],
			}
			if err := s.InsertSegment(ctx, seg); err != nil {
				return 0, doclenserr.IndexingError(fmt.Sprintf("index %s", docPath), err)
			}
			total++
		}
	}

	// Bulk rebuild after all pages, so the lexical index reflects
	// exactly the final segment set.
	if err := s.RebuildLexical(ctx); err != nil {
		return 0, doclenserr.IndexingError(fmt.Sprintf("index %s", docPath), err)
	}
	return total, nil
}

// pageSegments obtains the raw text of one page, falling back to OCR for
// image-only pages, and normalizes it into surviving lines.
func (p *Pipeline) pageSegments(ctx context.Context, extractor extract.Extractor, docPath string, page int) ([]string, error) {
	text, err := extractor.PageText(docPath, page)
	if err != nil {
		return nil, doclenserr.ExtractionError(
			fmt.Sprintf("extract page %d of %s", page, docPath), err)
	}

	if extractor.Rasterizable() && len(strings.TrimSpace(text)) < p.ocrTrigger {
		slog.Debug("ocr_fallback",
			slog.String("doc", docPath),
			slog.Int("page", page))
		text, err = p.ocr.PageText(ctx, docPath, page)
		if err != nil {
			return nil, doclenserr.ExtractionError(
				fmt.Sprintf("ocr page %d of %s", page, docPath), err)
		}
	}

	return normalize.Page(text), nil
}
