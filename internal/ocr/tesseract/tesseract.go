//go:build cgo

// Package tesseract provides an ocr.Engine backed by Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). Tesseract
// must be installed on the system together with the language data for every
// language the server is configured with:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A non-default tessdata directory can be supplied with Options.TessdataPrefix.
//
// Builds without cgo get a stub engine that always fails with
// ocr.ErrEngineUnavailable.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

// Progress stages, named after the stages tesseract.js reports so clients
// that already render those labels keep working.
const (
	StageInitializing = "initializing tesseract"
	StageAPI          = "initializing api"
	StageLoading      = "loading image"
	StageRecognizing  = "recognizing text"
)

// Options configures the Tesseract engine.
type Options struct {
	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string
}

// Engine runs Tesseract through a fresh gosseract client per call.
//
// gosseract clients are not safe for concurrent use, so a client is never
// shared between calls.
type Engine struct {
	opts Options
}

// New returns a Tesseract engine.
func New(opts Options) (*Engine, error) {
	return &Engine{opts: opts}, nil
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "tesseract" }

// Recognize implements ocr.Engine.
func (e *Engine) Recognize(ctx context.Context, img ocr.Image, language string, onProgress ocr.ProgressFunc) (*ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := ocr.ReadAll(img)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", img.ID(), err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	ocr.Report(onProgress, fmt.Sprintf("%s %s", StageInitializing, client.Version()), nil)

	if e.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	ocr.Report(onProgress, StageAPI, ocr.Fraction(0.2))

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	ocr.Report(onProgress, StageLoading, ocr.Fraction(0.4))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ocr.Report(onProgress, StageRecognizing, ocr.Fraction(0.6))
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// Confidence is best-effort; word boxes fail on some Tesseract builds
	// after a successful Text().
	var confidence float64
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		confidence = meanConfidence(boxes)
	}
	ocr.Report(onProgress, StageRecognizing, ocr.Fraction(1.0))

	return &ocr.Result{Text: text, Confidence: confidence}, nil
}

func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	var sum float64
	n := 0
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		sum += box.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) / 100.0
}

// Close implements ocr.Engine.
func (e *Engine) Close() error { return nil }

// Info contains information about the Tesseract installation.
type Info struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Backend        string `json:"backend"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
}

// Info reports the linked Tesseract version.
func (e *Engine) Info() Info {
	client := gosseract.NewClient()
	defer client.Close()
	return Info{
		Available:      true,
		Version:        client.Version(),
		Backend:        "gosseract",
		TessdataPrefix: e.opts.TessdataPrefix,
	}
}
