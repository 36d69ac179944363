package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-ocr-mcp/internal/imaging"
	"github.com/ironsheep/image-ocr-mcp/internal/logging"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr/engine"
	"github.com/ironsheep/image-ocr-mcp/internal/session"
)

const (
	protocolVersion = "2024-11-05"

	// maxLineBytes bounds a single request line; base64 images can be large.
	maxLineBytes = 64 << 20

	// updateBuffer is how many snapshots may queue for the progress writer.
	updateBuffer = 64

	// DefaultMaxWait bounds how long ocr_extract_text blocks the request loop.
	DefaultMaxWait = 60 * time.Second
)

// Config wires a Server to its session.
type Config struct {
	Session *session.Session
	Store   *imaging.Store
	Engine  engine.Info

	// MaxImageBytes caps images read from disk or base64.
	MaxImageBytes int64

	// MaxWait caps a waiting ocr_extract_text call. Zero means DefaultMaxWait.
	MaxWait time.Duration

	Logger  *logrus.Entry
	Name    string
	Version string
}

// Server handles MCP protocol communication
type Server struct {
	session  *session.Session
	store    *imaging.Store
	engine   engine.Info
	maxBytes int64
	maxWait  time.Duration
	log      *logrus.Entry
	name     string
	version  string

	outMu sync.Mutex
	enc   *json.Encoder
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// ProgressParams are the params of a notifications/progress message.
type ProgressParams struct {
	ProgressToken string  `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total"`
	Message       string  `json:"message,omitempty"`
}

// New creates a new MCP server instance
func New(cfg Config) *Server {
	s := &Server{
		session:  cfg.Session,
		store:    cfg.Store,
		engine:   cfg.Engine,
		maxBytes: cfg.MaxImageBytes,
		maxWait:  cfg.MaxWait,
		log:      cfg.Logger,
		name:     cfg.Name,
		version:  cfg.Version,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.maxWait <= 0 {
		s.maxWait = DefaultMaxWait
	}
	if s.name == "" {
		s.name = "image-ocr-mcp"
	}
	if s.version == "" {
		s.version = "dev"
	}
	return s
}

// Run reads requests from in and writes responses and progress
// notifications to out until in reaches EOF or ctx is cancelled. A blocked
// read on in is not interrupted by ctx.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.enc = json.NewEncoder(out)

	updates := make(chan session.Snapshot, updateBuffer)
	unsubscribe := s.session.Subscribe(func(snap session.Snapshot) {
		select {
		case updates <- snap:
		default:
			s.log.WithField("generation", snap.Generation).Debug("progress writer behind, dropping update")
		}
	})
	defer unsubscribe()

	readDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(readDone)
		return s.serve(in)
	})
	g.Go(func() error {
		return s.pumpProgress(gctx, readDone, updates)
	})
	return g.Wait()
}

func (s *Server) serve(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			s.write(s.errorResponse(nil, -32700, "Parse error", err.Error()))
			continue
		}

		if resp := s.handleRequest(&req); resp != nil {
			s.write(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	s.log.Debug("input closed")
	return nil
}

type progressKey struct {
	generation uint64
	progress   session.Progress
}

// pumpProgress turns session snapshots into notifications/progress messages.
// Repeated snapshots with unchanged progress are skipped.
func (s *Server) pumpProgress(ctx context.Context, done <-chan struct{}, updates <-chan session.Snapshot) error {
	var last progressKey
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case snap := <-updates:
			if snap.Progress == nil {
				continue
			}
			key := progressKey{generation: snap.Generation, progress: *snap.Progress}
			if key == last {
				continue
			}
			last = key
			s.write(&MCPNotification{
				JSONRPC: "2.0",
				Method:  "notifications/progress",
				Params: ProgressParams{
					ProgressToken: ProgressToken(snap.Generation),
					Progress:      snap.Progress.Fraction,
					Total:         1,
					Message:       snap.Progress.Status,
				},
			})
		}
	}
}

// ProgressToken names the recognitions of one image generation.
func ProgressToken(generation uint64) string {
	return fmt.Sprintf("ocr-%d", generation)
}

// write encodes v as one line on the output. Responses and notifications
// come from different goroutines.
func (s *Server) write(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode message")
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    s.name,
				"version": s.version,
			},
		},
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
