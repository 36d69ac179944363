// Package ollama provides an ocr.Engine backed by a vision model served by
// a local Ollama instance.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2-vision"
)

// Progress stages reported while the model streams its answer.
const (
	StageLoading     = "loading image"
	StageWaiting     = "waiting for model"
	StageRecognizing = "recognizing text"
	StageDone        = "done"
)

const prompt = `You are an OCR engine.
Transcribe every piece of text visible in the image, in reading order.
The text is written in the language with Tesseract code %q.

* Return only the transcribed text.
* Keep line breaks where the image has them.
* Do not add explanations, headings, or formatting.
* If the image contains no text, return an empty response.`

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Engine sends images to Ollama's /api/generate endpoint.
type Engine struct {
	baseURL string
	model   string
	client  *http.Client
}

// New returns an Ollama engine. Empty arguments select the defaults; a nil
// client selects http.DefaultClient.
func New(baseURL, model string, client *http.Client) *Engine {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

// Name implements ocr.Engine.
func (o *Engine) Name() string { return "ollama" }

// Model returns the configured model name.
func (o *Engine) Model() string { return o.model }

// Recognize implements ocr.Engine.
func (o *Engine) Recognize(ctx context.Context, img ocr.Image, language string, onProgress ocr.ProgressFunc) (*ocr.Result, error) {
	imageData, err := ocr.ReadAll(img)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", img.ID(), err)
	}
	ocr.Report(onProgress, StageLoading, ocr.Fraction(0.1))

	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: fmt.Sprintf(prompt, language),
		Images: []string{base64.StdEncoding.EncodeToString(imageData)},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	ocr.Report(onProgress, StageWaiting, ocr.Fraction(0.2))
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama request failed with status: %d", resp.StatusCode)
	}

	var text strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	done := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response chunk: %w", err)
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama error: %s", chunk.Error)
		}
		text.WriteString(chunk.Response)
		// Streamed chunks carry no measurable fraction.
		ocr.Report(onProgress, StageRecognizing, nil)
		if chunk.Done {
			done = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !done {
		return nil, fmt.Errorf("ollama response ended before completion")
	}

	ocr.Report(onProgress, StageDone, ocr.Fraction(1.0))
	return &ocr.Result{Text: strings.TrimSpace(text.String())}, nil
}

// Close implements ocr.Engine.
func (o *Engine) Close() error {
	o.client.CloseIdleConnections()
	return nil
}
