package extraction

import (
	"context"
	"fmt"
	"strings"
)

// Document is an opened scan the pipeline can read from.
type Document interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// Text returns the full document text, running recognition on page
	// images when the document carries no text layer.
	Text(ctx context.Context) (string, error)

	// RegionImage renders the given bounding box as a PNG image at a zoom
	// factor sufficient for reliable character recognition.
	RegionImage(box Box) ([]byte, error)

	// Close releases the document's resources.
	Close() error
}

// Opener opens a scan file by path.
type Opener interface {
	Open(path string) (Document, error)
}

// Recognizer turns a PNG image of a document region into text.
type Recognizer interface {
	RecognizeText(ctx context.Context, pngImage []byte) (string, error)
}

// LocationExtractor extracts a field value by rendering a configured
// bounding box and running the external recognition service on it.
type LocationExtractor struct {
	recognizer Recognizer
}

// NewLocationExtractor creates a LocationExtractor. The recognizer may be
// nil, in which case every extraction fails over to the text tier.
func NewLocationExtractor(recognizer Recognizer) *LocationExtractor {
	return &LocationExtractor{recognizer: recognizer}
}

// Extract renders the box region and returns the raw recognized text.
// It fails with ErrRegionUnavailable when the page index exceeds the
// document's page count and with ErrRecognition when the recognition
// service fails or returns empty.
func (e *LocationExtractor) Extract(ctx context.Context, doc Document, box Box) (string, error) {
	if box.Page < 0 || box.Page >= doc.PageCount() {
		return "", fmt.Errorf("page %d of %d-page document: %w", box.Page, doc.PageCount(), ErrRegionUnavailable)
	}
	if e.recognizer == nil {
		return "", fmt.Errorf("no recognizer configured: %w", ErrRecognition)
	}
	img, err := doc.RegionImage(box)
	if err != nil {
		return "", fmt.Errorf("rendering region: %v: %w", err, ErrRegionUnavailable)
	}
	text, err := e.recognizer.RecognizeText(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognizing region: %v: %w", err, ErrRecognition)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty recognition result: %w", ErrRecognition)
	}
	return text, nil
}
