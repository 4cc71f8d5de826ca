package warp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the warp pipeline. Only ErrEmptyInput and
// ErrInvalidConfig ever cross a component boundary as raised errors;
// per-exposure troubles (source unavailable, warp failure) are caught
// and logged inside accumulation, and a variant with zero contributed
// pixels is reported in the manifest rather than raised.
var (
	// ErrEmptyInput indicates no candidate exposures survived existence filtering.
	ErrEmptyInput = errors.New("no candidate exposures")
	// ErrInvalidConfig indicates contradictory or incomplete configuration.
	ErrInvalidConfig = errors.New("invalid warp configuration")
	// ErrSourceUnavailable indicates one exposure's pixel data could not be loaded.
	ErrSourceUnavailable = errors.New("exposure source unavailable")
	// ErrWarpFailure indicates the resample/psf-match step failed for one exposure.
	ErrWarpFailure = errors.New("warp failed")
)

// Error wraps a sentinel with context so errors.Is works across the
// pipeline while messages stay specific.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error)Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error)Unwrap() error { return e.Kind }

func emptyInputf(format string, args ...any) error {
	return &Error{Kind: ErrEmptyInput, Msg: fmt.Sprintf(format, args...)}
}

func invalidConfigf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidConfig, Msg: fmt.Sprintf(format, args...)}
}

func sourceUnavailablef(format string, args ...any) error {
	return &Error{Kind: ErrSourceUnavailable, Msg: fmt.Sprintf(format, args...)}
}

func warpFailuref(format string, args ...any) error {
	return &Error{Kind: ErrWarpFailure, Msg: fmt.Sprintf(format, args...)}
}
