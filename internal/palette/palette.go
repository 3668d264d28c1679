// Package palette infers the background color of scanned pages and
// builds the small indexed palette their pixels are reduced to.
package palette

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/local/pagepress/internal/raster"
)

// ErrNoColors signals that clustering produced nothing even though
// foreground samples exist. Valid input cannot cause it.
var ErrNoColors = errors.New("clustering produced no colors for nonempty foreground")

// maxKmeansIter caps Lloyd iterations; convergence almost always
// happens far earlier on scanned-page samples.
const maxKmeansIter = 40

// White is the forced background when the white_bg option is set.
var White = raster.RGB{R: 255, G: 255, B: 255}

// Palette is the ordered color set of a quantized page. Index 0 is
// always the background; entries are pairwise distinct. Built once,
// then only read.
type Palette struct {
	Colors []raster.RGB
}

// Background returns the reserved index-0 entry.
func (p *Palette) Background() raster.RGB { return p.Colors[0] }

// Len returns the number of palette entries.
func (p *Palette) Len() int { return len(p.Colors) }

// Options control palette construction for one job.
type Options struct {
	NumColors    int     // palette size including background
	SatThreshold float64 // foreground needs at least this saturation
	ValThreshold float64 // foreground needs at most this value
	Saturate     bool    // push foreground colors to full saturation
	WhiteBG      bool    // force pure white background
}

// Build derives a palette from sampled pixel colors: detect the
// background, keep the foreground-like samples, cluster them into
// NumColors-1 representatives, then apply the saturate and white
// background adjustments. Duplicates collapse, so the result may hold
// fewer colors than requested; it is never padded.
func Build(samples []raster.RGB, opts Options) (*Palette, error) {
	bg, err := DetectBackground(samples)
	if err != nil {
		return nil, err
	}

	fg := make([]raster.RGB, 0, len(samples)/2)
	for _, c := range samples {
		if !BackgroundLike(c, opts.SatThreshold, opts.ValThreshold) {
			fg = append(fg, c)
		}
	}

	if opts.WhiteBG {
		bg = White
	}

	colors := []raster.RGB{bg}
	if opts.NumColors > 1 && len(fg) > 0 {
		centers := kmeansRGB(fg, opts.NumColors-1, maxKmeansIter)
		if len(centers) == 0 {
			return nil, ErrNoColors
		}
		if opts.Saturate {
			for i, c := range centers {
				centers[i] = Saturate(c)
			}
		}
		colors = append(colors, centers...)
	}

	p := &Palette{Colors: dedupe(colors)}
	log.Debug().
		Int("samples", len(samples)).
		Int("foreground", len(fg)).
		Int("colors", p.Len()).
		Msg("built palette")
	return p, nil
}

// dedupe drops repeated colors, keeping first occurrence order. The
// background at index 0 always survives.
func dedupe(colors []raster.RGB) []raster.RGB {
	seen := make(map[raster.RGB]bool, len(colors))
	out := colors[:0]
	for _, c := range colors {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
