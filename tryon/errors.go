package tryon

import "errors"

var (
	// ErrGarmentLoad marks a garment image that could not be decoded; the
	// offending layer is skipped during composite and never blanks the frame.
	ErrGarmentLoad = errors.New("garment image failed to load")

	// ErrCapture marks a snapshot serialization failure. The surface is left
	// unchanged when it occurs.
	ErrCapture = errors.New("capture failed")

	// ErrCaptureInProgress is returned by Start while a countdown is running.
	ErrCaptureInProgress = errors.New("capture already in progress")
)
