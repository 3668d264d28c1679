package palette

import (
	"math"

	"github.com/local/pagepress/internal/raster"
)

// convergenceEps is the squared centroid movement below which another
// iteration cannot change the rounded palette.
const convergenceEps = 1e-4

// kmeansRGB clusters colors into at most k centroids with Lloyd
// iterations. Seeding is deterministic maximin (furthest point), so
// the same input always yields the same centroids; no RNG is involved.
// Assignment ties go to the lowest centroid index.
func kmeansRGB(colors []raster.RGB, k, maxIter int) []raster.RGB {
	if k <= 0 || len(colors) == 0 {
		return nil
	}
	if k > len(colors) {
		k = len(colors)
	}

	pts := make([][3]float64, len(colors))
	for i, c := range colors {
		pts[i] = [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	}

	centers := seedMaximin(pts, k)
	assign := make([]int, len(pts))
	sums := make([][3]float64, k)
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		for i, p := range pts {
			assign[i] = nearest(p, centers)
		}

		for i := range centers {
			sums[i] = [3]float64{}
			counts[i] = 0
		}
		for i, p := range pts {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			sums[c][2] += p[2]
			counts[c]++
		}

		moved := 0.0
		for i := range centers {
			if counts[i] == 0 {
				// orphaned centroid keeps its position; final dedupe
				// collapses it if it never attracts points
				continue
			}
			n := float64(counts[i])
			next := [3]float64{sums[i][0] / n, sums[i][1] / n, sums[i][2] / n}
			if d := dist2(centers[i], next); d > moved {
				moved = d
			}
			centers[i] = next
		}
		if moved < convergenceEps {
			break
		}
	}

	out := make([]raster.RGB, len(centers))
	for i, c := range centers {
		out[i] = raster.RGB{R: roundChannel(c[0]), G: roundChannel(c[1]), B: roundChannel(c[2])}
	}
	return out
}

func roundChannel(v float64) uint8 {
	n := math.Round(v)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// seedMaximin picks the first color as the first center, then
// repeatedly the color furthest from its nearest chosen center.
func seedMaximin(pts [][3]float64, k int) [][3]float64 {
	centers := make([][3]float64, 0, k)
	centers = append(centers, pts[0])

	minDist := make([]float64, len(pts))
	for i, p := range pts {
		minDist[i] = dist2(p, centers[0])
	}

	for len(centers) < k {
		best, bestDist := 0, -1.0
		for i, d := range minDist {
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		c := pts[best]
		centers = append(centers, c)
		for i, p := range pts {
			if d := dist2(p, c); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centers
}

func nearest(p [3]float64, centers [][3]float64) int {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range centers {
		if d := dist2(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func dist2(a, b [3]float64) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}
