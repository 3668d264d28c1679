package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// RGB is a single pixel color without alpha.
type RGB struct {
	R, G, B uint8
}

// PageImage is a decoded page held as an interleaved RGB buffer,
// 3 bytes per pixel, row-major. All pipeline stages operate on this
// representation so pixel loops never pay the image.Image interface cost.
type PageImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPageImage allocates a zeroed page buffer.
func NewPageImage(w, h int) *PageImage {
	return &PageImage{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
}

// Pixels returns the pixel count.
func (p *PageImage) Pixels() int { return p.Width * p.Height }

// At returns the color of the i-th pixel in row-major order.
func (p *PageImage) At(i int) RGB {
	o := i * 3
	return RGB{p.Pix[o], p.Pix[o+1], p.Pix[o+2]}
}

// Set overwrites the i-th pixel.
func (p *PageImage) Set(i int, c RGB) {
	o := i * 3
	p.Pix[o], p.Pix[o+1], p.Pix[o+2] = c.R, c.G, c.B
}

// FromImage converts any decoded image into a PageImage. Alpha is
// discarded; non-premultiplied channel values are kept as-is.
func FromImage(img image.Image) *PageImage {
	b := img.Bounds()
	p := NewPageImage(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.RGBA:
		fromStride(p, src.Pix, src.Stride, 4)
	case *image.NRGBA:
		fromStride(p, src.Pix, src.Stride, 4)
	case *image.Gray:
		i := 0
		for y := 0; y < p.Height; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < p.Width; x++ {
				v := row[x]
				p.Pix[i], p.Pix[i+1], p.Pix[i+2] = v, v, v
				i += 3
			}
		}
	default:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				p.Pix[i], p.Pix[i+1], p.Pix[i+2] = c.R, c.G, c.B
				i += 3
			}
		}
	}
	return p
}

// fromStride copies the RGB channels out of a 4-byte-per-pixel buffer.
func fromStride(p *PageImage, pix []uint8, stride, bpp int) {
	i := 0
	for y := 0; y < p.Height; y++ {
		row := pix[y*stride:]
		for x := 0; x < p.Width; x++ {
			o := x * bpp
			p.Pix[i], p.Pix[i+1], p.Pix[i+2] = row[o], row[o+1], row[o+2]
			i += 3
		}
	}
}

// RGBA converts the page back into a stdlib image, fully opaque.
func (p *PageImage) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	i, o := 0, 0
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			out.Pix[o] = p.Pix[i]
			out.Pix[o+1] = p.Pix[i+1]
			out.Pix[o+2] = p.Pix[i+2]
			out.Pix[o+3] = 0xff
			i += 3
			o += 4
		}
	}
	return out
}

// rasterMIMEs maps the raster formats we decode to their sniffed MIME types.
var rasterMIMEs = map[string]bool{
	"image/png":      true,
	"image/jpeg":     true,
	"image/tiff":     true,
	"image/bmp":      true,
	"image/x-ms-bmp": true,
}

// DetectFormat sniffs a file using magic bytes, not the filename.
// Returns the MIME type and whether this package can decode it.
func DetectFormat(path string) (string, bool, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to detect file type: %w", err)
	}
	mime := mtype.String()
	return mime, rasterMIMEs[mime], nil
}

// DecodeFile sniffs and decodes a raster file into a PageImage.
// Unsupported formats report the detected MIME type so callers can
// surface a precise validation error.
func DecodeFile(path string) (*PageImage, error) {
	mime, ok, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, path, mime)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	p := FromImage(img)
	log.Debug().
		Str("file", path).
		Str("format", format).
		Int("width", p.Width).
		Int("height", p.Height).
		Msg("decoded raster")
	return p, nil
}

// Downscale resizes the page so that it holds at most maxPixels,
// preserving aspect ratio. Pages already under the budget come back
// unchanged. Resampling uses Catmull-Rom interpolation.
func (p *PageImage) Downscale(maxPixels int) *PageImage {
	if maxPixels <= 0 || p.Pixels() <= maxPixels {
		return p
	}

	scale := math.Sqrt(float64(maxPixels) / float64(p.Pixels()))
	w := int(float64(p.Width) * scale)
	h := int(float64(p.Height) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	src := p.RGBA()
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := FromImage(dst)
	log.Debug().
		Int("from_w", p.Width).Int("from_h", p.Height).
		Int("to_w", w).Int("to_h", h).
		Msg("downscaled oversized page")
	return out
}
