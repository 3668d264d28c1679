package raster

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnsupportedFormat marks input files this package cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported raster format")

	// ErrNoOpener is returned when no PDF backend is configured.
	ErrNoOpener = errors.New("no PDF opener configured")
)

// Document abstracts a paginated source that can rasterize pages.
type Document interface {
	NumPage() int
	ImageDPI(page int, dpi float64) (image.Image, error)
	Close() error
}

// Opener abstracts opening a PDF path into a Document.
type Opener interface {
	Open(path string) (Document, error)
}

// defaultOpener is provided in render_fitz.go using go-fitz.
var defaultOpener Opener

// setDefaultOpener allows swapping the backend, useful for tests.
func setDefaultOpener(o Opener) { defaultOpener = o }

// HasOpener reports whether a PDF backend is linked in. Health probes
// use it to surface a build without render support.
func HasOpener() bool { return defaultOpener != nil }

// RenderPage rasterizes one page (0-based) of a PDF at the given DPI.
// Each call opens its own document handle, so concurrent calls on the
// same file are safe.
func RenderPage(path string, page, dpi int) (*PageImage, error) {
	if defaultOpener == nil {
		return nil, ErrNoOpener
	}

	start := time.Now()
	doc, err := defaultOpener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	p := FromImage(img)
	log.Debug().
		Str("file", path).
		Int("page", page).
		Int("dpi", dpi).
		Int("width", p.Width).
		Int("height", p.Height).
		Int64("ms", time.Since(start).Milliseconds()).
		Msg("rendered PDF page")
	return p, nil
}

// PageCount opens a PDF just long enough to count its pages.
func PageCount(path string) (int, error) {
	if defaultOpener == nil {
		return 0, ErrNoOpener
	}
	doc, err := defaultOpener.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
