package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	toolerrors "github.com/ironsheep/image-ocr-mcp/internal/errors"
	"github.com/ironsheep/image-ocr-mcp/internal/imaging"
	"github.com/ironsheep/image-ocr-mcp/internal/ocr/engine"
	"github.com/ironsheep/image-ocr-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "ocr_select_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data is the coded error as produced by ToolError.ToMap.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		te, ok := toolerrors.As(err)
		if !ok {
			te = &toolerrors.ToolError{Code: toolerrors.CodeInvalidArguments, Message: err.Error()}
		}
		s.log.WithFields(logrus.Fields{"tool": params.Name, "code": te.Code}).WithError(err).Info("tool call failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", te.ToMap())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "ocr_select_image":
		return s.handleSelectImage(args)
	case "ocr_extract_text":
		return s.handleExtractText(args)
	case "ocr_status":
		return s.handleStatus()
	case "ocr_edit_text":
		return s.handleEditText(args)
	case "ocr_clear":
		return s.handleClear()
	case "ocr_engine_info":
		return s.handleEngineInfo()
	default:
		return nil, toolerrors.NewInvalidArgumentsError(fmt.Sprintf("unknown tool: %s", name), nil)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments; missing arguments decode as zero.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return toolerrors.NewInvalidArgumentsError("malformed arguments", err)
	}
	return nil
}

// statusResult is the session view returned by most tools.
type statusResult struct {
	session.Snapshot
	CanRun bool `json:"can_run"`
}

func (s *Server) status() statusResult {
	return statusResult{Snapshot: s.session.Snapshot(), CanRun: s.session.CanRun()}
}

// === Selection ===

type selectImageArgs struct {
	Path       string   `json:"path"`
	Paths      []string `json:"paths"`
	DataBase64 string   `json:"data_base64"`
}

type selectImageResult struct {
	Changed bool               `json:"changed"`
	Image   *imaging.ImageInfo `json:"image,omitempty"`
	Warning string             `json:"warning,omitempty"`
	Status  statusResult       `json:"status"`
}

func (s *Server) handleSelectImage(args json.RawMessage) (interface{}, error) {
	var a selectImageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	sources := 0
	for _, set := range []bool{a.Path != "", len(a.Paths) > 0, a.DataBase64 != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, toolerrors.NewInvalidArgumentsError("give only one of path, paths or data_base64", nil)
	}

	var data []byte
	switch {
	case a.Path != "":
		b, err := imaging.ReadFile(a.Path, s.maxBytes)
		if err != nil {
			return nil, toolerrors.NewImageUnreadableError(a.Path, err)
		}
		data = b
	case len(a.Paths) > 0 && a.Paths[0] != "":
		b, err := imaging.ReadFile(a.Paths[0], s.maxBytes)
		if err != nil {
			return nil, toolerrors.NewImageUnreadableError(a.Paths[0], err)
		}
		data = b
	case a.DataBase64 != "":
		b, err := imaging.DecodeBase64(a.DataBase64, s.maxBytes)
		if err != nil {
			return nil, toolerrors.NewInvalidArgumentsError("invalid data_base64", err)
		}
		data = b
	}

	result := selectImageResult{Changed: s.session.SelectImage(data)}
	if result.Changed {
		snap := s.session.Snapshot()
		if h, ok := s.store.Lookup(snap.ImageID); ok {
			info, err := imaging.Describe(h)
			if err != nil {
				result.Warning = "unrecognized image format; recognition may fail"
			} else {
				result.Image = info
			}
		}
	}
	result.Status = s.status()
	return result, nil
}

// === Recognition ===

type extractTextArgs struct {
	Wait           bool    `json:"wait"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

type extractTextResult struct {
	Started  bool         `json:"started"`
	Finished bool         `json:"finished"`
	Text     string       `json:"text,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Status   statusResult `json:"status"`
}

func (s *Server) handleExtractText(args json.RawMessage) (interface{}, error) {
	var a extractTextArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TimeoutSeconds < 0 {
		return nil, toolerrors.NewInvalidArgumentsError("timeout_seconds must not be negative", nil)
	}

	job, started := s.session.StartRecognition()
	if !started {
		return extractTextResult{Reason: s.notStartedReason(), Status: s.status()}, nil
	}
	if !a.Wait {
		return extractTextResult{Started: true, Status: s.status()}, nil
	}

	// The wait holds up the request loop, so it is always bounded.
	wait := s.maxWait
	if a.TimeoutSeconds > 0 && a.TimeoutSeconds < wait.Seconds() {
		wait = time.Duration(a.TimeoutSeconds * float64(time.Second))
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	res, err := job.Wait(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return extractTextResult{Started: true, Reason: "still running", Status: s.status()}, nil
	case errors.Is(err, session.ErrSuperseded):
		return extractTextResult{Started: true, Reason: "image changed before recognition finished", Status: s.status()}, nil
	case err != nil:
		return nil, toolerrors.NewRecognitionFailedError(s.engine.Name, job.ImageID(), err)
	}
	return extractTextResult{Started: true, Finished: true, Text: res.Text, Status: s.status()}, nil
}

func (s *Server) notStartedReason() string {
	snap := s.session.Snapshot()
	switch snap.State {
	case session.StateEmpty:
		return "no image selected"
	case session.StateRecognizing:
		return "recognition already running"
	case session.StateDone:
		return "image already recognized; clear or select an image to run again"
	default:
		return "session closed"
	}
}

func (s *Server) handleStatus() (interface{}, error) {
	return s.status(), nil
}

// === Editing ===

type editTextArgs struct {
	Text *string `json:"text"`
}

func (s *Server) handleEditText(args json.RawMessage) (interface{}, error) {
	var a editTextArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Text == nil {
		return nil, toolerrors.NewInvalidArgumentsError("text is required", nil)
	}
	s.session.EditResultText(*a.Text)
	return s.status(), nil
}

func (s *Server) handleClear() (interface{}, error) {
	s.session.Clear()
	return s.status(), nil
}

// === Engine ===

type engineInfoResult struct {
	Engine         engine.Info `json:"engine"`
	LiveHandles    int         `json:"live_handles"`
	HandlesCreated int         `json:"handles_created"`
}

func (s *Server) handleEngineInfo() (interface{}, error) {
	created, _ := s.store.Stats()
	return engineInfoResult{
		Engine:         s.engine,
		LiveHandles:    s.store.Live(),
		HandlesCreated: created,
	}, nil
}
