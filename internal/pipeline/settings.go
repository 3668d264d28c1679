package pipeline

import "fmt"

// Settings is the immutable per-job configuration captured when the job
// is accepted. Later edits to the caller's copy have no effect.
type Settings struct {
	// NumColors is the palette size cap, background included.
	NumColors int
	// SampleFraction of all pixels feeds palette construction.
	SampleFraction float64
	// SatThreshold and ValThreshold split background-like pixels from
	// foreground ones in HSV space.
	SatThreshold float64
	ValThreshold float64
	// Saturate pushes foreground palette entries to full saturation
	// and value.
	Saturate bool
	// WhiteBG replaces the detected background with pure white.
	WhiteBG bool
	// GlobalPalette shares one palette across the document; when false
	// every page gets its own.
	GlobalPalette bool
	// DPI used when rasterizing PDF source pages.
	DPI int
	// SortNumeric orders input files with embedded numbers in numeric
	// order instead of byte order.
	SortNumeric bool
	// SampleSeed fixes the sampling RNG; zero picks a clock seed that
	// is recorded on the job.
	SampleSeed int64
	// PageOrder overrides the input ordering when set.
	PageOrder func(a, b string) bool
}

// DefaultSettings returns the settings used when a request leaves a
// field at its zero value.
func DefaultSettings() Settings {
	return Settings{
		NumColors:      8,
		SampleFraction: 0.05,
		SatThreshold:   0.20,
		ValThreshold:   0.25,
		Saturate:       true,
		WhiteBG:        false,
		GlobalPalette:  true,
		DPI:            150,
		SortNumeric:    true,
	}
}

// Validate rejects settings a job could never run with.
func (s Settings) Validate() error {
	if s.NumColors < 1 {
		return &InvalidInputError{Reason: "num_colors must be at least 1"}
	}
	if s.NumColors > 256 {
		return &InvalidInputError{Reason: fmt.Sprintf("num_colors %d exceeds the indexed limit of 256", s.NumColors)}
	}
	if s.SampleFraction <= 0 || s.SampleFraction > 1 {
		return &InvalidInputError{Reason: fmt.Sprintf("sample_fraction %v outside (0, 1]", s.SampleFraction)}
	}
	if s.SatThreshold < 0 || s.SatThreshold > 1 {
		return &InvalidInputError{Reason: fmt.Sprintf("sat_threshold %v outside [0, 1]", s.SatThreshold)}
	}
	if s.ValThreshold < 0 || s.ValThreshold > 1 {
		return &InvalidInputError{Reason: fmt.Sprintf("value_threshold %v outside [0, 1]", s.ValThreshold)}
	}
	if s.DPI < 1 {
		return &InvalidInputError{Reason: fmt.Sprintf("dpi %d must be positive", s.DPI)}
	}
	return nil
}
