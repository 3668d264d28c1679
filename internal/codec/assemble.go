package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// ErrNoPages is returned when assembly is asked to build an empty document.
var ErrNoPages = errors.New("no pages to assemble")

// AssembleInput names everything that goes into the output document.
// Files must already be in their final order; cover material always
// precedes the content pages.
type AssembleInput struct {
	PageFiles  []string // encoded content pages
	CoverFiles []string // optional cover page images
	CoverPDF   string   // optional cover document, merged untouched
	OutPath    string
}

// Assemble builds the output PDF: cover section first, then content
// pages in the given order. Image pages are imported one per page; a
// cover PDF keeps its native quality and is merged ahead of the
// imported content.
func Assemble(in AssembleInput) error {
	if len(in.PageFiles) == 0 {
		return ErrNoPages
	}

	start := time.Now()
	images := make([]string, 0, len(in.CoverFiles)+len(in.PageFiles))
	images = append(images, in.CoverFiles...)
	images = append(images, in.PageFiles...)

	if in.CoverPDF == "" {
		if err := api.ImportImagesFile(images, in.OutPath, nil, nil); err != nil {
			return fmt.Errorf("failed to import pages: %w", err)
		}
	} else {
		content := in.OutPath + ".content.pdf"
		if err := api.ImportImagesFile(images, content, nil, nil); err != nil {
			return fmt.Errorf("failed to import pages: %w", err)
		}
		defer os.Remove(content)

		if err := api.MergeCreateFile([]string{in.CoverPDF, content}, in.OutPath, false, nil); err != nil {
			return fmt.Errorf("failed to merge cover: %w", err)
		}
	}

	log.Info().
		Str("out", filepath.Base(in.OutPath)).
		Int("pages", len(in.PageFiles)).
		Int("cover_images", len(in.CoverFiles)).
		Bool("cover_pdf", in.CoverPDF != "").
		Int64("ms", time.Since(start).Milliseconds()).
		Msg("assembled document")
	return nil
}

// Info describes a PDF on disk.
type Info struct {
	Pages int
	Bytes int64
}

// Probe returns page count and byte size of a PDF.
func Probe(path string) (Info, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to count pages: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat document: %w", err)
	}
	return Info{Pages: n, Bytes: st.Size()}, nil
}
