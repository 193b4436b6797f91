package deco

import "errors"

var (
	// ErrNonIncreasingTime is returned when an update does not advance the
	// model clock. The Schreiner rate term divides by the elapsed interval.
	ErrNonIncreasingTime = errors.New("sample time does not advance past the previous sample")

	// ErrNotInitialized is returned when the model is used before Reset.
	ErrNotInitialized = errors.New("decompression model has not been reset")

	// ErrUnsupportedVariant is returned when an unknown model kind is requested.
	ErrUnsupportedVariant = errors.New("unsupported decompression model")
)
