package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Default external tools for the OCR fallback.
const (
	// DefaultRasterizer renders one PDF page to a PNG image.
	DefaultRasterizer = "pdftoppm"
	// DefaultRecognizer extracts text from the rendered image.
	DefaultRecognizer = "tesseract"
	// RasterDPI is the render resolution. OCR quality degrades sharply
	// below 300 DPI on small print.
	RasterDPI = 300
)

// TesseractOCR rasterizes a page with pdftoppm and recognizes text with
// tesseract. Both run as child processes under the caller's context, so
// a cancelled indexing operation kills them.
type TesseractOCR struct {
	Rasterizer string
	Recognizer string
}

var _ OCR = (*TesseractOCR)(nil)

// NewTesseractOCR creates the default OCR collaborator.
func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{
		Rasterizer: DefaultRasterizer,
		Recognizer: DefaultRecognizer,
	}
}

// PageText renders the 1-based page to an image and recognizes its text.
func (o *TesseractOCR) PageText(ctx context.Context, docPath string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "doclens-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create ocr workdir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	render := exec.CommandContext(ctx, o.Rasterizer,
		"-png",
		"-r", strconv.Itoa(RasterDPI),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		docPath, prefix)
	var renderErr bytes.Buffer
	render.Stderr = &renderErr
	if err := render.Run(); err != nil {
		return "", fmt.Errorf("rasterize page %d: %w (%s)", page, err, renderErr.String())
	}

	image, err := renderedImage(tmpDir)
	if err != nil {
		return "", err
	}

	recognize := exec.CommandContext(ctx, o.Recognizer, image, "stdout")
	var out, recErr bytes.Buffer
	recognize.Stdout = &out
	recognize.Stderr = &recErr
	if err := recognize.Run(); err != nil {
		return "", fmt.Errorf("recognize page %d: %w (%s)", page, err, recErr.String())
	}
	return out.String(), nil
}

// renderedImage locates the single PNG pdftoppm produced. The exact file
// name depends on the document's page-number padding.
func renderedImage(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no rendered page image in %s", dir)
	}
	return matches[0], nil
}
