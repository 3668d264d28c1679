package sampler

import (
	"errors"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/local/pagepress/internal/raster"
)

// ErrNoPixels is returned when there is nothing to sample from.
var ErrNoPixels = errors.New("no pixels to sample")

// Plan computes per-page sample targets for a fraction, so larger
// pages contribute proportionally more samples. If rounding would
// produce zero samples while pixels exist, the largest page is bumped
// to one sample.
func Plan(pageSizes []int, fraction float64) []int {
	targets := make([]int, len(pageSizes))
	total, largest := 0, -1
	for i, size := range pageSizes {
		n := int(math.Round(fraction * float64(size)))
		if n > size {
			n = size
		}
		targets[i] = n
		total += n
		if size > 0 && (largest < 0 || size > pageSizes[largest]) {
			largest = i
		}
	}
	if total == 0 && largest >= 0 {
		targets[largest] = 1
	}
	return targets
}

// Sampler draws uniform pixel samples without replacement. All
// randomness flows from the seed, so a Sampler built with the same
// seed walks the same positions.
type Sampler struct {
	rng *rand.Rand
}

// New returns a Sampler seeded deterministically.
func New(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws n distinct pixels from the page, uniformly at random.
// n at or above the pixel count degenerates to every pixel. Runs in
// O(n) time and memory using a sparse partial Fisher-Yates shuffle,
// so a small fraction of a large page never allocates per-pixel state.
func (s *Sampler) Sample(img *raster.PageImage, n int) []raster.RGB {
	total := img.Pixels()
	if n <= 0 || total == 0 {
		return nil
	}
	if n >= total {
		out := make([]raster.RGB, total)
		for i := range out {
			out[i] = img.At(i)
		}
		return out
	}

	swapped := make(map[int]int, n)
	out := make([]raster.RGB, 0, n)
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(total-i)
		pick, ok := swapped[j]
		if !ok {
			pick = j
		}
		cur, ok := swapped[i]
		if !ok {
			cur = i
		}
		swapped[j] = cur
		out = append(out, img.At(pick))
	}
	return out
}

// SamplePages draws one size-weighted sample across all pages, in
// page order. This is the document-scope sample used to build a shared
// palette.
func (s *Sampler) SamplePages(pages []*raster.PageImage, fraction float64) ([]raster.RGB, error) {
	sizes := make([]int, len(pages))
	total := 0
	for i, p := range pages {
		sizes[i] = p.Pixels()
		total += sizes[i]
	}
	if total == 0 {
		return nil, ErrNoPixels
	}

	targets := Plan(sizes, fraction)
	out := make([]raster.RGB, 0)
	for i, p := range pages {
		out = append(out, s.Sample(p, targets[i])...)
	}

	log.Debug().
		Int("pages", len(pages)).
		Int("pixels", total).
		Int("samples", len(out)).
		Msg("sampled pixel colors")
	return out, nil
}
