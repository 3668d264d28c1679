package palette

import (
	"math"

	"github.com/local/pagepress/internal/raster"
)

// RGBToHSV converts a color to hue (degrees, [0,360)), saturation and
// value (both [0,1]).
func RGBToHSV(c raster.RGB) (h, s, v float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	v = max
	d := max - min

	if max > 0 {
		s = d / max
	}
	if d > 0 {
		switch max {
		case r:
			h = 60 * math.Mod((g-b)/d, 6)
		case g:
			h = 60 * ((b-r)/d + 2)
		default:
			h = 60 * ((r-g)/d + 4)
		}
		if h < 0 {
			h += 360
		}
	}
	return h, s, v
}

// HSVToRGB converts hue (degrees), saturation and value back to RGB.
func HSVToRGB(h, s, v float64) raster.RGB {
	c := v * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = x, 0, c
	case hp < 5:
		r, g, b = 0, x, c
	default:
		r, g, b = c, 0, x
	}

	m := v - c
	return raster.RGB{
		R: channel(r + m),
		G: channel(g + m),
		B: channel(b + m),
	}
}

// BackgroundLike reports whether a pixel reads as page substrate
// rather than ink: bright enough to exceed the value threshold, or
// too washed out to reach the saturation threshold. Comparisons are
// strict, so threshold-equal pixels land on the foreground side.
func BackgroundLike(c raster.RGB, satThreshold, valThreshold float64) bool {
	_, s, v := RGBToHSV(c)
	return s < satThreshold || v > valThreshold
}

// Saturate pushes a color to full saturation and value while keeping
// its hue. Pure grays carry no hue and pass through unchanged.
func Saturate(c raster.RGB) raster.RGB {
	h, s, _ := RGBToHSV(c)
	if s == 0 {
		return c
	}
	return HSVToRGB(h, 1, 1)
}

func channel(v float64) uint8 {
	n := math.Round(v * 255)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
