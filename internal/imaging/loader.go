package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

// ErrTooLarge is returned when an image exceeds the configured byte limit.
var ErrTooLarge = errors.New("image exceeds size limit")

// ReadFile reads an image file without decoding it.
//
// Parameters:
//   - path: Path to the image file.
//   - maxBytes: Upper bound on the file size. Zero or negative disables the check.
//
// The file type is not validated; whatever the file holds is returned.
func ReadFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, maxBytes)
	}
	return data, nil
}

// DecodeBase64 decodes base64 image data. A "data:<mime>;base64," prefix is
// accepted and stripped.
func DecodeBase64(s string, maxBytes int64) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// ImageInfo contains metadata about an image held in a handle.
type ImageInfo struct {
	// ID is the handle identifier.
	ID string `json:"id"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name: "png", "jpeg", "gif", "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// SizeBytes is the size of the encoded image.
	SizeBytes int `json:"size_bytes"`
}

// Describe reads the image header behind img and reports its metadata.
//
// Only the header is decoded, so this is cheap even for large images. Returns
// an error if the bytes are not in a registered format; that is not fatal for
// recognition, which may still succeed or fail on its own.
func Describe(img ocr.Image) (*ImageInfo, error) {
	data, err := ocr.ReadAll(img)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	return &ImageInfo{
		ID:        img.ID(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    format,
		SizeBytes: len(data),
	}, nil
}
