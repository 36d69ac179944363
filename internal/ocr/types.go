package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
)

// DefaultLanguage is the Tesseract code used when none is configured.
const DefaultLanguage = "eng"

// ErrEngineUnavailable is returned when an engine cannot run in this build or
// environment (missing cgo, unreachable model server, ...).
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Image is a readable reference to image bytes owned by someone else.
type Image interface {
	// ID identifies the image for logging. It is not a path.
	ID() string

	// Open returns a reader over the encoded image bytes.
	Open() (io.ReadCloser, error)
}

// ProgressEvent is a single progress report from an engine.
type ProgressEvent struct {
	// Status is a short stage label such as "recognizing text".
	Status string `json:"status"`

	// Progress is the completed fraction of the current stage, or nil when the
	// event only reports a status change.
	Progress *float64 `json:"progress,omitempty"`
}

// Numeric reports whether the event carries a usable fraction.
func (e ProgressEvent) Numeric() bool {
	return e.Progress != nil && !math.IsNaN(*e.Progress) && !math.IsInf(*e.Progress, 0)
}

// ProgressFunc receives progress events. It may be nil.
type ProgressFunc func(ProgressEvent)

// Result is the outcome of one recognition call.
type Result struct {
	// Text is the recognized text with the engine's original line breaks.
	Text string `json:"text"`

	// Confidence is the engine's mean confidence (0.0 to 1.0), or 0 when the
	// engine does not report one.
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in images.
type Engine interface {
	// Name is a short identifier such as "tesseract".
	Name() string

	// Recognize extracts text from img in the given language.
	Recognize(ctx context.Context, img Image, language string, onProgress ProgressFunc) (*Result, error)

	// Close releases engine resources.
	Close() error
}

// Fraction returns a pointer to f, for building ProgressEvents.
func Fraction(f float64) *float64 {
	return &f
}

// Report sends an event to fn if fn is non-nil.
func Report(fn ProgressFunc, status string, progress *float64) {
	if fn == nil {
		return
	}
	fn(ProgressEvent{Status: status, Progress: progress})
}

// ReadAll opens img and reads it fully.
func ReadAll(img Image) ([]byte, error) {
	rc, err := img.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// BytesImage is an Image over an in-memory byte slice. It never expires.
type BytesImage struct {
	Name string
	Data []byte
}

// ID implements Image.
func (b BytesImage) ID() string { return b.Name }

// Open implements Image.
func (b BytesImage) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}
