package extraction

import "errors"

var (
	// ErrRegionUnavailable indicates the configured bounding box could not
	// be rendered, usually because the page index exceeds the document's
	// page count. Non-fatal: the orchestrator falls back to text patterns.
	ErrRegionUnavailable = errors.New("region unavailable")

	// ErrRecognition indicates the external text-recognition service
	// failed or returned an empty result for a non-empty region.
	// Non-fatal: the orchestrator falls back to text patterns.
	ErrRecognition = errors.New("text recognition failed")
)
