//go:build !cgo

package tesseract

import (
	"context"
	"errors"
	"testing"

	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

func TestStub_Unavailable(t *testing.T) {
	e, err := New(Options{TessdataPrefix: "/opt/tessdata"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if e.Name() != "tesseract" {
		t.Errorf("Name: got %s, want tesseract", e.Name())
	}
	if info := e.Info(); info.Available || info.Backend == "" {
		t.Errorf("Info: got %+v, want an unavailable backend", info)
	}

	_, err = e.Recognize(context.Background(), ocr.BytesImage{Name: "x", Data: []byte("png")}, "eng", nil)
	if !errors.Is(err, ocr.ErrEngineUnavailable) {
		t.Errorf("Recognize: got %v, want ErrEngineUnavailable", err)
	}
}
