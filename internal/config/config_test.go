package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"IMAGE_OCR_LOG_LEVEL",
	"IMAGE_OCR_ENGINE",
	"IMAGE_OCR_LANGUAGE",
	"IMAGE_OCR_TESSDATA_PREFIX",
	"IMAGE_OCR_OLLAMA_URL",
	"IMAGE_OCR_OLLAMA_MODEL",
	"IMAGE_OCR_PREPROCESS",
	"IMAGE_OCR_MAX_IMAGE_BYTES",
	"IMAGE_OCR_WAIT_TIMEOUT_SECONDS",
	"IMAGE_OCR_OLLAMA_TIMEOUT_SECONDS",
}

// clearEnv blanks every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %s, want info", cfg.LogLevel)
	}
	if cfg.Engine != EngineTesseract {
		t.Errorf("Engine: got %s, want tesseract", cfg.Engine)
	}
	if cfg.Language != "eng" {
		t.Errorf("Language: got %s, want eng", cfg.Language)
	}
	if cfg.OllamaURL != "http://localhost:11434" || cfg.OllamaModel != "llama3.2-vision" {
		t.Errorf("ollama defaults: got %s %s", cfg.OllamaURL, cfg.OllamaModel)
	}
	if cfg.Preprocess {
		t.Error("Preprocess should default to false")
	}
	if cfg.MaxImageBytes != 32<<20 {
		t.Errorf("MaxImageBytes: got %d, want %d", cfg.MaxImageBytes, 32<<20)
	}
	if cfg.MaxWait != time.Minute || cfg.OllamaTimeout != 5*time.Minute {
		t.Errorf("timeouts: got wait %v, ollama %v", cfg.MaxWait, cfg.OllamaTimeout)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMAGE_OCR_ENGINE", "Ollama")
	t.Setenv("IMAGE_OCR_LANGUAGE", "deu")
	t.Setenv("IMAGE_OCR_PREPROCESS", "true")
	t.Setenv("IMAGE_OCR_MAX_IMAGE_BYTES", "1024")
	t.Setenv("IMAGE_OCR_TESSDATA_PREFIX", "/opt/tessdata")
	t.Setenv("IMAGE_OCR_WAIT_TIMEOUT_SECONDS", "5")
	t.Setenv("IMAGE_OCR_OLLAMA_TIMEOUT_SECONDS", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine != EngineOllama {
		t.Errorf("Engine: got %s, want ollama", cfg.Engine)
	}
	if cfg.Language != "deu" || !cfg.Preprocess || cfg.MaxImageBytes != 1024 || cfg.TessdataPrefix != "/opt/tessdata" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxWait != 5*time.Second || cfg.OllamaTimeout != 30*time.Second {
		t.Errorf("timeouts: got wait %v, ollama %v", cfg.MaxWait, cfg.OllamaTimeout)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("IMAGE_OCR_LANGUAGE=fra\nIMAGE_OCR_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, even empty.
	os.Unsetenv("IMAGE_OCR_LANGUAGE")
	os.Unsetenv("IMAGE_OCR_LOG_LEVEL")
	t.Cleanup(func() {
		os.Unsetenv("IMAGE_OCR_LANGUAGE")
		os.Unsetenv("IMAGE_OCR_LOG_LEVEL")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Language != "fra" || cfg.LogLevel != "debug" {
		t.Errorf("env file not applied: %+v", cfg)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("a missing env file should be ignored: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown engine", "IMAGE_OCR_ENGINE", "easyocr", "IMAGE_OCR_ENGINE"},
		{"bad bool", "IMAGE_OCR_PREPROCESS", "maybe", "IMAGE_OCR_PREPROCESS"},
		{"bad size", "IMAGE_OCR_MAX_IMAGE_BYTES", "lots", "IMAGE_OCR_MAX_IMAGE_BYTES"},
		{"negative size", "IMAGE_OCR_MAX_IMAGE_BYTES", "-1", "IMAGE_OCR_MAX_IMAGE_BYTES"},
		{"huge size", "IMAGE_OCR_MAX_IMAGE_BYTES", "2147483648", "IMAGE_OCR_MAX_IMAGE_BYTES"},
		{"zero wait", "IMAGE_OCR_WAIT_TIMEOUT_SECONDS", "0", "IMAGE_OCR_WAIT_TIMEOUT_SECONDS"},
		{"long wait", "IMAGE_OCR_WAIT_TIMEOUT_SECONDS", "86400", "IMAGE_OCR_WAIT_TIMEOUT_SECONDS"},
		{"bad wait", "IMAGE_OCR_WAIT_TIMEOUT_SECONDS", "soon", "IMAGE_OCR_WAIT_TIMEOUT_SECONDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Engine: EngineTesseract, Language: "eng", MaxImageBytes: 1, MaxWait: time.Second}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	noLang := valid
	noLang.Language = ""
	if err := noLang.Validate(); err == nil {
		t.Error("empty language should be rejected")
	}

	noURL := valid
	noURL.Engine = EngineOllama
	if err := noURL.Validate(); err == nil {
		t.Error("ollama without a URL should be rejected")
	}

	noWait := valid
	noWait.MaxWait = 0
	if err := noWait.Validate(); err == nil {
		t.Error("a zero wait limit should be rejected")
	}

	ollamaNoTimeout := valid
	ollamaNoTimeout.Engine = EngineOllama
	ollamaNoTimeout.OllamaURL = "http://localhost:11434"
	if err := ollamaNoTimeout.Validate(); err == nil {
		t.Error("ollama without a request timeout should be rejected")
	}
	ollamaNoTimeout.OllamaTimeout = time.Minute
	if err := ollamaNoTimeout.Validate(); err != nil {
		t.Errorf("ollama with a timeout rejected: %v", err)
	}
}
