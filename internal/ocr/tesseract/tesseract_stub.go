//go:build !cgo

package tesseract

import (
	"context"
	"fmt"

	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

// Options configures the Tesseract engine.
type Options struct {
	TessdataPrefix string
}

// Engine is unavailable in builds without cgo.
type Engine struct {
	opts Options
}

// New returns an engine whose every call fails.
func New(opts Options) (*Engine, error) {
	return &Engine{opts: opts}, nil
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "tesseract" }

// Recognize implements ocr.Engine. It always fails with
// ocr.ErrEngineUnavailable.
func (e *Engine) Recognize(ctx context.Context, img ocr.Image, language string, onProgress ocr.ProgressFunc) (*ocr.Result, error) {
	return nil, fmt.Errorf("tesseract requires a cgo build: %w", ocr.ErrEngineUnavailable)
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

// Info reports the engine as unavailable.
func (e *Engine) Info() Info {
	return Info{Available: false, Backend: "stub (built without cgo)"}
}
