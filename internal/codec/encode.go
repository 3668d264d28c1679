// Package codec turns quantized pages into indexed rasters and
// assembles them, with an optional cover section, into the final
// document.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/local/pagepress/internal/quant"
)

// EncodePNG serializes a quantized page as an indexed PNG. The PNG
// palette keeps the quantizer's order, background first, so decoding
// recovers the exact palette.
func EncodePNG(q *quant.IndexedPage) ([]byte, error) {
	cp := make(color.Palette, q.Palette.Len())
	for i, c := range q.Palette.Colors {
		cp[i] = color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}

	img := image.NewPaletted(image.Rect(0, 0, q.Width, q.Height), cp)
	copy(img.Pix, q.Index)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode indexed PNG: %w", err)
	}
	return buf.Bytes(), nil
}
