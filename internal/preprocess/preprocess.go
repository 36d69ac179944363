// Package preprocess normalizes images before recognition.
//
// Scanned pages and screenshots often arrive small, colored or with light
// text on a dark background, all of which hurt Tesseract's accuracy. Normalize
// upsizes small images, converts to grayscale, inverts dark backgrounds and
// raises contrast. Engine wraps any ocr.Engine so every recognition goes
// through Normalize first.
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-ocr-mcp/internal/logging"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

const (
	// StagePreprocessing is the progress status reported before the wrapped
	// engine starts.
	StagePreprocessing = "preprocessing image"

	// MinDimension is the smallest width or height left unscaled.
	MinDimension = 300

	// DarkThreshold is the mean CIE L* (0-1) below which an image is
	// treated as light text on a dark background.
	DarkThreshold = 0.5

	contrastBoost = 10
	sharpenSigma  = 1.1

	// sampleSize bounds the lightness scan to roughly sampleSize^2 pixels.
	sampleSize = 256
)

// Normalize decodes data, cleans it up for OCR and returns it re-encoded as
// PNG.
func Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() < MinDimension || b.Dy() < MinDimension {
		img = imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
	}

	var out image.Image = imaging.Grayscale(img)
	if MeanLightness(out) < DarkThreshold {
		out = effect.Invert(out)
	}
	out = imaging.AdjustContrast(out, contrastBoost)
	out = imaging.Sharpen(out, sharpenSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// MeanLightness returns the average CIE L* of img scaled to 0-1. Large
// images are sampled on a grid. Fully transparent pixels are skipped; an
// image with none left reports 1 (white).
func MeanLightness(img image.Image) float64 {
	b := img.Bounds()
	step := max(1, max(b.Dx(), b.Dy())/sampleSize)

	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			sum += l
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// Engine runs Normalize on every image before handing it to the wrapped
// engine.
type Engine struct {
	next ocr.Engine
	log  *logrus.Entry
}

// Wrap decorates next with preprocessing.
func Wrap(next ocr.Engine, log *logrus.Entry) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{next: next, log: log}
}

// Name returns the wrapped engine's name.
func (e *Engine) Name() string { return e.next.Name() }

// Recognize normalizes img and recognizes the result with the wrapped
// engine. Images that fail to decode are passed through untouched so the
// wrapped engine reports the failure.
func (e *Engine) Recognize(ctx context.Context, img ocr.Image, language string, onProgress ocr.ProgressFunc) (*ocr.Result, error) {
	data, err := ocr.ReadAll(img)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	ocr.Report(onProgress, StagePreprocessing, ocr.Fraction(0.05))

	normalized, err := Normalize(data)
	if err != nil {
		e.log.WithError(err).WithField("image", img.ID()).Debug("preprocessing skipped")
		normalized = data
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.next.Recognize(ctx, ocr.BytesImage{Name: img.ID(), Data: normalized}, language, onProgress)
}

// Close closes the wrapped engine.
func (e *Engine) Close() error { return e.next.Close() }
