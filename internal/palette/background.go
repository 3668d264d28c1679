package palette

import (
	"errors"

	"github.com/local/pagepress/internal/raster"
)

// ErrEmptySample is returned when classification has no pixels to work with.
var ErrEmptySample = errors.New("empty sample set")

// coarseBits is how many significant bits per channel survive the
// coarse quantization that merges near-duplicate colors before the
// frequency count. Scanner noise and JPEG artifacts spread the paper
// color over many nearby RGB values; 6 bits folds them into one bucket.
const coarseBits = 6

const coarseShift = 8 - coarseBits

// DetectBackground returns the dominant color of a sample: the most
// frequent bucket after coarse quantization, with the dropped low bits
// zeroed. Scanned pages are mostly paper, so the mode of a uniform
// sample is a robust background estimate. Ties resolve to the
// numerically lowest packed value, keeping the result stable across
// runs.
func DetectBackground(samples []raster.RGB) (raster.RGB, error) {
	if len(samples) == 0 {
		return raster.RGB{}, ErrEmptySample
	}

	counts := make(map[uint32]int, len(samples)/4+1)
	for _, c := range samples {
		counts[packCoarse(c)]++
	}

	var bestKey uint32
	bestCount := -1
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key < bestKey) {
			bestKey, bestCount = key, n
		}
	}
	return unpackCoarse(bestKey), nil
}

func packCoarse(c raster.RGB) uint32 {
	return uint32(c.R>>coarseShift)<<(2*coarseBits) |
		uint32(c.G>>coarseShift)<<coarseBits |
		uint32(c.B>>coarseShift)
}

func unpackCoarse(key uint32) raster.RGB {
	const mask = 1<<coarseBits - 1
	return raster.RGB{
		R: uint8(((key >> (2 * coarseBits)) & mask) << coarseShift),
		G: uint8(((key >> coarseBits) & mask) << coarseShift),
		B: uint8((key & mask) << coarseShift),
	}
}
