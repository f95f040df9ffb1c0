package bgestimate

import "errors"

// Error taxonomy. All conditions are detected before any output image is
// produced; a call either returns a complete result or one of these.
var (
	// ErrInvalidConfig reports a bad Control: tile sizes below 1 or
	// exceeding the image, or an unknown statistic/undersample/style.
	// Rejected eagerly at build time.
	ErrInvalidConfig = errors.New("invalid background configuration")

	// ErrInsufficientData reports a tile with zero valid pixels under the
	// Throw undersample policy, or a grid reduced to nothing.
	ErrInsufficientData = errors.New("insufficient data in stats grid")

	// ErrUnsupportedStyle reports a reconstruction attempt with
	// InterpNone, which exists only to mean "do not re-derive".
	ErrUnsupportedStyle = errors.New("unsupported interpolation style")
)
