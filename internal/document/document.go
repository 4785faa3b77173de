package document

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/trukkerweeler/invcclss/internal/extraction"
)

const (
	// regionDPI renders region crops at 2x the 72-dpi PDF point grid,
	// enough for reliable character recognition.
	regionDPI = 144
	// ocrDPI renders full pages for the no-text-layer OCR fallback.
	ocrDPI = 300
)

// Recognizer turns a PNG image into text.
type Recognizer interface {
	RecognizeText(ctx context.Context, pngImage []byte) (string, error)
}

// RecognitionService is a recognizer that owns releasable resources.
type RecognitionService interface {
	Recognizer
	Close() error
}

// Opener opens scan files with go-fitz. The recognizer, when present, is
// used to recover text from documents that have no text layer.
type Opener struct {
	recognizer Recognizer
}

// NewOpener creates an Opener. recognizer may be nil.
func NewOpener(recognizer Recognizer) *Opener {
	return &Opener{recognizer: recognizer}
}

// Open loads a scan file. HEIC/HEIF captures are transcoded to PNG first
// since MuPDF does not read them directly.
func (o *Opener) Open(path string) (extraction.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if isHEICFormat(data) {
		data, err = heicToPNG(data)
		if err != nil {
			return nil, fmt.Errorf("converting HEIC scan: %w", err)
		}
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	return &Document{doc: doc, recognizer: o.recognizer}, nil
}

// Document wraps a go-fitz document.
type Document struct {
	doc        *fitz.Document
	recognizer Recognizer
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// Text returns the full document text. When the document has no text layer
// (a pure image scan) and a recognizer is configured, each page is rendered
// and recognized instead.
func (d *Document) Text(ctx context.Context) (string, error) {
	var b strings.Builder
	for i := 0; i < d.doc.NumPage(); i++ {
		pageText, err := d.doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString(" ")
	}
	text := strings.TrimSpace(b.String())
	if text != "" || d.recognizer == nil {
		return text, nil
	}
	return d.recognizeAllPages(ctx)
}

func (d *Document) recognizeAllPages(ctx context.Context) (string, error) {
	var b strings.Builder
	for i := 0; i < d.doc.NumPage(); i++ {
		img, err := d.doc.ImageDPI(i, ocrDPI)
		if err != nil {
			return "", fmt.Errorf("rendering page %d: %w", i, err)
		}
		pngData, err := encodePNG(img)
		if err != nil {
			return "", fmt.Errorf("encoding page %d: %w", i, err)
		}
		pageText, err := d.recognizer.RecognizeText(ctx, pngData)
		if err != nil {
			return "", fmt.Errorf("recognizing page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String()), nil
}

// RegionImage renders the bounding box as a PNG at regionDPI. Coordinates
// are PDF points, scaled to the render resolution before cropping.
func (d *Document) RegionImage(box extraction.Box) ([]byte, error) {
	if box.Page < 0 || box.Page >= d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range", box.Page)
	}
	img, err := d.doc.ImageDPI(box.Page, regionDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", box.Page, err)
	}
	scale := float64(regionDPI) / 72.0
	crop := image.Rect(
		int(box.X0*scale), int(box.Y0*scale),
		int(box.X1*scale), int(box.Y1*scale),
	).Intersect(img.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("region outside page bounds")
	}
	sub, ok := image.Image(img).(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("rendered page does not support cropping")
	}
	return encodePNG(sub.SubImage(crop))
}

// Close releases the underlying document.
func (d *Document) Close() error {
	return d.doc.Close()
}
