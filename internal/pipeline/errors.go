package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/local/pagepress/internal/codec"
	"github.com/local/pagepress/internal/palette"
	"github.com/local/pagepress/internal/quant"
	"github.com/local/pagepress/internal/raster"
	"github.com/local/pagepress/internal/sampler"
)

// Kind labels a terminal failure for status records and metrics.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindEncoding          Kind = "encoding_error"
	KindResourceExhausted Kind = "resource_exhausted"
	KindUnrecoverable     Kind = "unrecoverable"
)

// ErrJobNotFound is returned by Status and List lookups for unknown IDs.
var ErrJobNotFound = errors.New("job not found")

// InvalidInputError marks input the caller could fix: missing pages,
// malformed rasters, out-of-range settings.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// EncodingError marks a failure to produce or assemble output artifacts.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoding error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("encoding error: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ResourceExhaustedError marks a configured ceiling that was hit.
// Budget names the ceiling, such as "pages", "pixels" or "deadline".
type ResourceExhaustedError struct {
	Budget string
	Err    error
}

func (e *ResourceExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resource exhausted: %s budget: %v", e.Budget, e.Err)
	}
	return fmt.Sprintf("resource exhausted: %s budget", e.Budget)
}

func (e *ResourceExhaustedError) Unwrap() error { return e.Err }

// UnrecoverableError marks an internal fault such as an illegal state
// transition or a stage invariant that did not hold.
type UnrecoverableError struct {
	Reason string
	Err    error
}

func (e *UnrecoverableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecoverable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unrecoverable: %s", e.Reason)
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }

// Classify buckets any job error into a Kind. Wrapped typed errors win;
// bare sentinels from the stage packages are mapped next; everything
// else is treated as an internal fault.
func Classify(err error) Kind {
	var (
		invErr *InvalidInputError
		encErr *EncodingError
		resErr *ResourceExhaustedError
		unrErr *UnrecoverableError
	)
	switch {
	case errors.As(err, &invErr):
		return KindInvalidInput
	case errors.As(err, &encErr):
		return KindEncoding
	case errors.As(err, &resErr):
		return KindResourceExhausted
	case errors.As(err, &unrErr):
		return KindUnrecoverable
	}

	switch {
	case errors.Is(err, sampler.ErrNoPixels),
		errors.Is(err, palette.ErrEmptySample),
		errors.Is(err, quant.ErrEmptyPalette),
		errors.Is(err, quant.ErrPaletteTooLarge):
		return KindInvalidInput
	case errors.Is(err, raster.ErrUnsupportedFormat),
		errors.Is(err, codec.ErrNoPages):
		return KindEncoding
	case errors.Is(err, context.DeadlineExceeded):
		return KindResourceExhausted
	case errors.Is(err, palette.ErrNoColors):
		return KindUnrecoverable
	}
	return KindUnrecoverable
}

func IsInvalidInput(err error) bool      { return Classify(err) == KindInvalidInput }
func IsEncoding(err error) bool          { return Classify(err) == KindEncoding }
func IsResourceExhausted(err error) bool { return Classify(err) == KindResourceExhausted }
func IsUnrecoverable(err error) bool     { return Classify(err) == KindUnrecoverable }
