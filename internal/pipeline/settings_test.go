package pipeline

import "testing"

func TestSettingsValidate(t *testing.T) {
	valid := DefaultSettings()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero colors", func(s *Settings) { s.NumColors = 0 }},
		{"negative colors", func(s *Settings) { s.NumColors = -1 }},
		{"too many colors", func(s *Settings) { s.NumColors = 257 }},
		{"zero fraction", func(s *Settings) { s.SampleFraction = 0 }},
		{"fraction above one", func(s *Settings) { s.SampleFraction = 1.5 }},
		{"negative saturation threshold", func(s *Settings) { s.SatThreshold = -0.1 }},
		{"saturation threshold above one", func(s *Settings) { s.SatThreshold = 1.1 }},
		{"value threshold above one", func(s *Settings) { s.ValThreshold = 2 }},
		{"zero dpi", func(s *Settings) { s.DPI = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := DefaultSettings()
			c.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !IsInvalidInput(err) {
				t.Fatalf("validation error should classify as invalid input, got %s", Classify(err))
			}
		})
	}
}

func TestSettingsBoundaryValues(t *testing.T) {
	s := DefaultSettings()
	s.NumColors = 1
	s.SampleFraction = 1
	s.SatThreshold = 0
	s.ValThreshold = 1
	s.DPI = 1
	if err := s.Validate(); err != nil {
		t.Fatalf("boundary settings should validate: %v", err)
	}
	s.NumColors = 256
	if err := s.Validate(); err != nil {
		t.Fatalf("256 colors should validate: %v", err)
	}
}
