// Package quant maps page pixels onto a fixed palette, producing
// indexed pages ready for encoding.
package quant

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/local/pagepress/internal/palette"
	"github.com/local/pagepress/internal/raster"
)

var (
	// ErrEmptyPalette is returned when there is no palette to map onto.
	ErrEmptyPalette = errors.New("empty palette")

	// ErrPaletteTooLarge guards the uint8 index space.
	ErrPaletteTooLarge = errors.New("palette exceeds 256 entries")
)

// IndexedPage is a quantized page: one palette index per pixel plus a
// reference to the palette those indices resolve against. Index 0 is
// the background.
type IndexedPage struct {
	Width   int
	Height  int
	Index   []uint8
	Palette *palette.Palette
}

// ColorAt resolves the i-th pixel to its palette color.
func (q *IndexedPage) ColorAt(i int) raster.RGB {
	return q.Palette.Colors[q.Index[i]]
}

// Render materializes the indexed page back into an RGB page.
func (q *IndexedPage) Render() *raster.PageImage {
	out := raster.NewPageImage(q.Width, q.Height)
	for i, idx := range q.Index {
		out.Set(i, q.Palette.Colors[idx])
	}
	return out
}

// Apply replaces every pixel with the nearest palette entry under
// squared Euclidean RGB distance, ties going to the lowest index. The
// input page is read-only.
//
// A memo keyed by exact pixel color caches each distinct color's scan
// result. Scanned pages carry few distinct colors, so most pixels hit
// the memo; cached answers are the naive scan's answers, so the output
// is identical with or without it.
func Apply(img *raster.PageImage, pal *palette.Palette) (*IndexedPage, error) {
	if pal == nil || pal.Len() == 0 {
		return nil, ErrEmptyPalette
	}
	if pal.Len() > 256 {
		return nil, ErrPaletteTooLarge
	}

	n := img.Pixels()
	out := &IndexedPage{
		Width:   img.Width,
		Height:  img.Height,
		Index:   make([]uint8, n),
		Palette: pal,
	}

	memo := make(map[uint32]uint8, 256)
	for i := 0; i < n; i++ {
		c := img.At(i)
		key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		idx, ok := memo[key]
		if !ok {
			idx = nearestIndex(c, pal.Colors)
			memo[key] = idx
		}
		out.Index[i] = idx
	}

	log.Debug().
		Int("pixels", n).
		Int("palette", pal.Len()).
		Int("distinct_in", len(memo)).
		Msg("quantized page")
	return out, nil
}

func nearestIndex(c raster.RGB, colors []raster.RGB) uint8 {
	best := 0
	bestDist := 1 << 30
	for i, pc := range colors {
		dr := int(c.R) - int(pc.R)
		dg := int(c.G) - int(pc.G)
		db := int(c.B) - int(pc.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}
