// Package engine builds the configured recognition engine.
package engine

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-ocr-mcp/internal/config"
	toolerrors "github.com/ironsheep/image-ocr-mcp/internal/errors"
	"github.com/ironsheep/image-ocr-mcp/internal/logging"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr/ollama"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr/tesseract"
	"github.com/ironsheep/image-ocr-mcp/internal/preprocess"
)

// Info describes the running engine for clients.
type Info struct {
	Name       string      `json:"name"`
	Language   string      `json:"language"`
	Preprocess bool        `json:"preprocess"`
	Backend    interface{} `json:"backend,omitempty"`
}

// OllamaInfo describes an Ollama backend.
type OllamaInfo struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

// New returns the engine selected by cfg, wrapped with preprocessing when
// enabled. An engine that cannot run in this build or environment is
// reported as an ENGINE_UNAVAILABLE tool error.
func New(cfg *config.Config, log *logrus.Entry) (ocr.Engine, Info, error) {
	if log == nil {
		log = logging.Discard()
	}
	info := Info{Name: cfg.Engine, Language: cfg.Language, Preprocess: cfg.Preprocess}

	var eng ocr.Engine
	switch cfg.Engine {
	case config.EngineOllama:
		o := ollama.New(cfg.OllamaURL, cfg.OllamaModel, &http.Client{Timeout: cfg.OllamaTimeout})
		info.Backend = OllamaInfo{URL: cfg.OllamaURL, Model: o.Model()}
		eng = o

	case config.EngineTesseract, "":
		t, err := tesseract.New(tesseract.Options{TessdataPrefix: cfg.TessdataPrefix})
		if err != nil {
			return nil, info, toolerrors.NewEngineUnavailableError(config.EngineTesseract, err)
		}
		ti := t.Info()
		if !ti.Available {
			return nil, info, toolerrors.NewEngineUnavailableError(config.EngineTesseract, ocr.ErrEngineUnavailable)
		}
		info.Name = config.EngineTesseract
		info.Backend = ti
		eng = t

	default:
		return nil, info, toolerrors.NewEngineUnavailableError(cfg.Engine, ocr.ErrEngineUnavailable)
	}

	log.WithFields(logrus.Fields{
		"engine":     info.Name,
		"language":   info.Language,
		"preprocess": info.Preprocess,
	}).Info("recognition engine ready")

	if cfg.Preprocess {
		return preprocess.Wrap(eng, log), info, nil
	}
	return eng, info, nil
}
