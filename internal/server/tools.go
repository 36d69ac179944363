package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "ocr_select_image",
			Description: "Select the image to recognize, replacing any current image and clearing its text. Give exactly one source: a file path, a list of paths (only the first is used), or base64 image data. An empty selection changes nothing.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Image file paths; only the first is used",
					},
					"data_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64 image bytes, optionally as a data: URL",
					},
				},
			},
		},
		{
			Name:        "ocr_extract_text",
			Description: "Start text recognition on the selected image. Progress is sent as notifications/progress. Does nothing if no image is selected, recognition is already running, or the image was already recognized (clear or reselect to run again).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Wait for recognition to finish and return the text. Default false",
						"default":     false,
					},
					"timeout_seconds": map[string]interface{}{
						"type":        "number",
						"description": "Maximum seconds to wait when wait is true; 0 or values above the server limit use the server limit. Recognition keeps running after a timeout",
						"default":     0,
					},
				},
			},
		},
		{
			Name:        "ocr_status",
			Description: "Get the session state: selected image, recognized text, progress, whether recognition can start, and the last recognition error.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "ocr_edit_text",
			Description: "Replace the recognized text with corrected text.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "The new text; may be empty",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "ocr_clear",
			Description: "Clear the selected image and its text.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "ocr_engine_info",
			Description: "Get the recognition engine, its fixed language and whether images are preprocessed.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
