// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Engine names accepted by IMAGE_OCR_ENGINE.
const (
	EngineTesseract = "tesseract"
	EngineOllama    = "ollama"
)

const (
	defaultLogLevel      = "info"
	defaultLanguage      = "eng"
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2-vision"
	defaultMaxImageBytes = 32 << 20
	defaultWaitSeconds   = 60
	defaultOllamaSeconds = 300

	maxImageBytesLimit = 1 << 30
	maxTimeoutSeconds  = 3600
)

// Config holds server configuration.
type Config struct {
	LogLevel string

	// Engine selects the recognition backend.
	Engine string

	// Language is the fixed Tesseract language code for every recognition.
	Language string

	// TessdataPrefix overrides the tessdata directory when set.
	TessdataPrefix string

	OllamaURL   string
	OllamaModel string

	// OllamaTimeout bounds one Ollama request including its streamed body.
	OllamaTimeout time.Duration

	// Preprocess normalizes images before recognition.
	Preprocess bool

	// MaxImageBytes caps the size of a selected image.
	MaxImageBytes int64

	// MaxWait caps how long ocr_extract_text may wait for a result.
	MaxWait time.Duration
}

// Load reads an optional .env file at envFile (ignored when missing), then
// builds and validates the configuration from the environment. Variables
// already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() (*Config, error) {
	preprocess, err := getEnvAsBoolOrDefault("IMAGE_OCR_PREPROCESS", false)
	if err != nil {
		return nil, err
	}
	maxBytes, err := getEnvAsInt64OrDefault("IMAGE_OCR_MAX_IMAGE_BYTES", defaultMaxImageBytes)
	if err != nil {
		return nil, err
	}
	waitSeconds, err := getEnvAsInt64OrDefault("IMAGE_OCR_WAIT_TIMEOUT_SECONDS", defaultWaitSeconds)
	if err != nil {
		return nil, err
	}
	ollamaSeconds, err := getEnvAsInt64OrDefault("IMAGE_OCR_OLLAMA_TIMEOUT_SECONDS", defaultOllamaSeconds)
	if err != nil {
		return nil, err
	}

	return &Config{
		LogLevel:       getEnvOrDefault("IMAGE_OCR_LOG_LEVEL", defaultLogLevel),
		Engine:         strings.ToLower(getEnvOrDefault("IMAGE_OCR_ENGINE", EngineTesseract)),
		Language:       getEnvOrDefault("IMAGE_OCR_LANGUAGE", defaultLanguage),
		TessdataPrefix: os.Getenv("IMAGE_OCR_TESSDATA_PREFIX"),
		OllamaURL:      getEnvOrDefault("IMAGE_OCR_OLLAMA_URL", defaultOllamaURL),
		OllamaModel:    getEnvOrDefault("IMAGE_OCR_OLLAMA_MODEL", defaultOllamaModel),
		OllamaTimeout:  time.Duration(ollamaSeconds) * time.Second,
		Preprocess:     preprocess,
		MaxImageBytes:  maxBytes,
		MaxWait:        time.Duration(waitSeconds) * time.Second,
	}, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineTesseract, EngineOllama:
	default:
		return fmt.Errorf("IMAGE_OCR_ENGINE must be %q or %q, got %q", EngineTesseract, EngineOllama, c.Engine)
	}

	if c.Language == "" {
		return errors.New("IMAGE_OCR_LANGUAGE must not be empty")
	}

	if c.Engine == EngineOllama && c.OllamaURL == "" {
		return errors.New("IMAGE_OCR_OLLAMA_URL is required for the ollama engine")
	}

	if c.MaxImageBytes < 1 || c.MaxImageBytes > maxImageBytesLimit {
		return fmt.Errorf("IMAGE_OCR_MAX_IMAGE_BYTES must be between 1 and %d, got %d", maxImageBytesLimit, c.MaxImageBytes)
	}

	if c.MaxWait < time.Second || c.MaxWait > maxTimeoutSeconds*time.Second {
		return fmt.Errorf("IMAGE_OCR_WAIT_TIMEOUT_SECONDS must be between 1 and %d, got %d", maxTimeoutSeconds, int64(c.MaxWait/time.Second))
	}

	if c.Engine == EngineOllama && (c.OllamaTimeout < time.Second || c.OllamaTimeout > maxTimeoutSeconds*time.Second) {
		return fmt.Errorf("IMAGE_OCR_OLLAMA_TIMEOUT_SECONDS must be between 1 and %d, got %d", maxTimeoutSeconds, int64(c.OllamaTimeout/time.Second))
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64OrDefault(key string, defaultValue int64) (int64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
