package palette

import (
	"errors"
	"testing"

	"github.com/local/pagepress/internal/raster"
)

func repeat(c raster.RGB, n int) []raster.RGB {
	out := make([]raster.RGB, n)
	for i := range out {
		out[i] = c
	}
	return out
}

var (
	paper    = raster.RGB{R: 240, G: 240, B: 240}
	darkRed  = raster.RGB{R: 60}
	darkBlue = raster.RGB{B: 60}
)

// inkSamples is a typical scanned-page sample: mostly paper, two inks.
func inkSamples() []raster.RGB {
	s := repeat(paper, 60)
	s = append(s, repeat(darkRed, 20)...)
	s = append(s, repeat(darkBlue, 20)...)
	return s
}

func TestDetectBackground(t *testing.T) {
	t.Run("mode of sample", func(t *testing.T) {
		bg, err := DetectBackground(inkSamples())
		if err != nil {
			t.Fatal(err)
		}
		if bg != paper {
			t.Errorf("background = %v, want %v", bg, paper)
		}
	})

	t.Run("coarse quantization merges scanner noise", func(t *testing.T) {
		s := []raster.RGB{
			{R: 240, G: 240, B: 240},
			{R: 241, G: 242, B: 241},
			{R: 243, G: 240, B: 243},
			{R: 10, G: 10, B: 10},
		}
		bg, err := DetectBackground(s)
		if err != nil {
			t.Fatal(err)
		}
		// all three paper shades share one bucket, low bits zeroed
		if bg != paper {
			t.Errorf("background = %v, want %v", bg, paper)
		}
	})

	t.Run("tie resolves to lowest packed value", func(t *testing.T) {
		s := []raster.RGB{{R: 252, G: 252, B: 252}, {}}
		bg, err := DetectBackground(s)
		if err != nil {
			t.Fatal(err)
		}
		if bg != (raster.RGB{}) {
			t.Errorf("background = %v, want black", bg)
		}
	})

	t.Run("empty sample", func(t *testing.T) {
		if _, err := DetectBackground(nil); !errors.Is(err, ErrEmptySample) {
			t.Errorf("err = %v, want ErrEmptySample", err)
		}
	})
}

func TestKmeansDeterministic(t *testing.T) {
	colors := append(repeat(raster.RGB{R: 10, G: 10, B: 10}, 10),
		repeat(raster.RGB{R: 200, G: 200, B: 200}, 10)...)

	a := kmeansRGB(colors, 2, maxKmeansIter)
	b := kmeansRGB(colors, 2, maxKmeansIter)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("lengths = %d, %d, want 2", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged: %v vs %v", a, b)
		}
	}
	if a[0] != (raster.RGB{R: 10, G: 10, B: 10}) || a[1] != (raster.RGB{R: 200, G: 200, B: 200}) {
		t.Errorf("centroids = %v", a)
	}
}

func TestBuild(t *testing.T) {
	base := Options{NumColors: 4, SatThreshold: 0.2, ValThreshold: 0.3}

	t.Run("background at index zero, inks clustered", func(t *testing.T) {
		p, err := Build(inkSamples(), base)
		if err != nil {
			t.Fatal(err)
		}
		if p.Background() != paper {
			t.Errorf("background = %v, want %v", p.Background(), paper)
		}
		want := []raster.RGB{paper, darkRed, darkBlue}
		if p.Len() != len(want) {
			t.Fatalf("palette = %v, want %v", p.Colors, want)
		}
		for i := range want {
			if p.Colors[i] != want[i] {
				t.Fatalf("palette = %v, want %v", p.Colors, want)
			}
		}
	})

	t.Run("never exceeds requested size and stays distinct", func(t *testing.T) {
		p, err := Build(inkSamples(), base)
		if err != nil {
			t.Fatal(err)
		}
		if p.Len() > base.NumColors {
			t.Errorf("palette has %d colors, cap %d", p.Len(), base.NumColors)
		}
		seen := map[raster.RGB]bool{}
		for _, c := range p.Colors {
			if seen[c] {
				t.Fatalf("duplicate entry %v in %v", c, p.Colors)
			}
			seen[c] = true
		}
	})

	t.Run("saturate stretches inks", func(t *testing.T) {
		opts := base
		opts.Saturate = true
		p, err := Build(inkSamples(), opts)
		if err != nil {
			t.Fatal(err)
		}
		want := []raster.RGB{paper, {R: 255}, {B: 255}}
		if p.Len() != len(want) {
			t.Fatalf("palette = %v, want %v", p.Colors, want)
		}
		for i := range want {
			if p.Colors[i] != want[i] {
				t.Fatalf("palette = %v, want %v", p.Colors, want)
			}
		}
	})

	t.Run("saturate collapse keeps entries distinct", func(t *testing.T) {
		s := repeat(paper, 30)
		s = append(s, repeat(raster.RGB{R: 60}, 10)...)
		s = append(s, repeat(raster.RGB{R: 50}, 10)...)
		opts := base
		opts.Saturate = true
		p, err := Build(s, opts)
		if err != nil {
			t.Fatal(err)
		}
		// both reds saturate to pure red and collapse into one entry
		if p.Len() != 2 {
			t.Fatalf("palette = %v, want [paper red]", p.Colors)
		}
		if p.Colors[1] != (raster.RGB{R: 255}) {
			t.Errorf("ink = %v, want pure red", p.Colors[1])
		}
	})

	t.Run("white background option", func(t *testing.T) {
		opts := base
		opts.WhiteBG = true
		p, err := Build(inkSamples(), opts)
		if err != nil {
			t.Fatal(err)
		}
		if p.Background() != White {
			t.Errorf("background = %v, want white", p.Background())
		}
	})

	t.Run("single color palette", func(t *testing.T) {
		opts := base
		opts.NumColors = 1
		p, err := Build(inkSamples(), opts)
		if err != nil {
			t.Fatal(err)
		}
		if p.Len() != 1 || p.Background() != paper {
			t.Errorf("palette = %v, want just %v", p.Colors, paper)
		}
	})

	t.Run("no foreground samples yields background only", func(t *testing.T) {
		p, err := Build(repeat(paper, 50), base)
		if err != nil {
			t.Fatal(err)
		}
		if p.Len() != 1 {
			t.Errorf("palette = %v, want background only", p.Colors)
		}
	})

	t.Run("fewer inks than requested colors", func(t *testing.T) {
		opts := base
		opts.NumColors = 8
		s := append(repeat(paper, 50), darkRed, darkRed)
		p, err := Build(s, opts)
		if err != nil {
			t.Fatal(err)
		}
		if p.Len() != 2 {
			t.Errorf("palette = %v, want [paper darkRed]", p.Colors)
		}
	})

	t.Run("empty sample set", func(t *testing.T) {
		if _, err := Build(nil, base); !errors.Is(err, ErrEmptySample) {
			t.Errorf("err = %v, want ErrEmptySample", err)
		}
	})
}
