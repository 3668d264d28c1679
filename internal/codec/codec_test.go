package codec

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/local/pagepress/internal/palette"
	"github.com/local/pagepress/internal/quant"
	"github.com/local/pagepress/internal/raster"
)

var (
	white = raster.RGB{R: 255, G: 255, B: 255}
	red   = raster.RGB{R: 255}
)

func twoColorPage(w, h int) *quant.IndexedPage {
	q := &quant.IndexedPage{
		Width:   w,
		Height:  h,
		Index:   make([]uint8, w*h),
		Palette: &palette.Palette{Colors: []raster.RGB{white, red}},
	}
	for i := range q.Index {
		q.Index[i] = uint8(i % 2)
	}
	return q
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(twoColorPage(4, 2))
	if err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	pm, ok := img.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded as %T, want paletted", img)
	}
	if got := pm.Bounds(); got.Dx() != 4 || got.Dy() != 2 {
		t.Errorf("bounds = %v", got)
	}

	// background first, checkerboard preserved
	if pm.ColorIndexAt(0, 0) != 0 || pm.ColorIndexAt(1, 0) != 1 {
		t.Errorf("indices = %d, %d", pm.ColorIndexAt(0, 0), pm.ColorIndexAt(1, 0))
	}
	r, g, b, _ := pm.Palette[1].RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("palette[1] = %v, want red", pm.Palette[1])
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"page-2.png", "page-10.png", true},
		{"page-10.png", "page-2.png", false},
		{"page-2.png", "page-2.png", false},
		{"9", "10", true},
		{"scan_002", "scan_2", false}, // numerically equal, padding ignored
		{"scan_2", "scan_002", false},
		{"cover-1.png", "page-1.png", true},
		{"a", "ab", true},
		{"chapter3-page12", "chapter3-page2", false},
		{"chapter10-page1", "chapter9-page9", false},
	}

	for _, tt := range tests {
		if got := NaturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("NaturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortPages(t *testing.T) {
	paths := []string{"p-10.png", "p-9.png", "p-1.png", "p-2.png"}
	SortPages(paths, nil)
	want := []string{"p-1.png", "p-2.png", "p-9.png", "p-10.png"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", paths, want)
		}
	}

	// custom rule wins over the default
	SortPages(paths, func(a, b string) bool { return a > b })
	if paths[0] != "p-9.png" {
		t.Errorf("custom rule ignored, got %v", paths)
	}
}

func writePageFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := EncodePNG(twoColorPage(8, 8))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssemble(t *testing.T) {
	dir := t.TempDir()
	p1 := writePageFile(t, dir, "page_0001.png")
	p2 := writePageFile(t, dir, "page_0002.png")
	cover := writePageFile(t, dir, "cover_0001.png")

	t.Run("pages only", func(t *testing.T) {
		out := filepath.Join(dir, "plain.pdf")
		if err := Assemble(AssembleInput{PageFiles: []string{p1, p2}, OutPath: out}); err != nil {
			t.Fatal(err)
		}
		info, err := Probe(out)
		if err != nil {
			t.Fatal(err)
		}
		if info.Pages != 2 {
			t.Errorf("pages = %d, want 2", info.Pages)
		}
		if info.Bytes == 0 {
			t.Error("empty output file")
		}
	})

	t.Run("cover images precede pages", func(t *testing.T) {
		out := filepath.Join(dir, "covered.pdf")
		in := AssembleInput{
			PageFiles:  []string{p1, p2},
			CoverFiles: []string{cover},
			OutPath:    out,
		}
		if err := Assemble(in); err != nil {
			t.Fatal(err)
		}
		info, err := Probe(out)
		if err != nil {
			t.Fatal(err)
		}
		if info.Pages != 3 {
			t.Errorf("pages = %d, want 3", info.Pages)
		}
	})

	t.Run("cover PDF merged ahead of content", func(t *testing.T) {
		coverPDF := filepath.Join(dir, "cover.pdf")
		if err := Assemble(AssembleInput{PageFiles: []string{cover}, OutPath: coverPDF}); err != nil {
			t.Fatal(err)
		}

		out := filepath.Join(dir, "merged.pdf")
		in := AssembleInput{
			PageFiles: []string{p1, p2},
			CoverPDF:  coverPDF,
			OutPath:   out,
		}
		if err := Assemble(in); err != nil {
			t.Fatal(err)
		}
		info, err := Probe(out)
		if err != nil {
			t.Fatal(err)
		}
		if info.Pages != 3 {
			t.Errorf("pages = %d, want 3", info.Pages)
		}
		if _, err := os.Stat(out + ".content.pdf"); !os.IsNotExist(err) {
			t.Error("intermediate content PDF left behind")
		}
	})

	t.Run("no pages", func(t *testing.T) {
		err := Assemble(AssembleInput{OutPath: filepath.Join(dir, "never.pdf")})
		if !errors.Is(err, ErrNoPages) {
			t.Errorf("err = %v, want ErrNoPages", err)
		}
	})
}

func TestProbeMissing(t *testing.T) {
	if _, err := Probe(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
