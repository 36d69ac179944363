// Package server implements the MCP (Model Context Protocol) server for the
// image OCR session.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// One server drives one session, which holds at most one image:
//
//   - ocr_select_image: Select an image by path, first of paths, or base64
//   - ocr_extract_text: Start recognition, optionally waiting for the text
//   - ocr_status: Session state, text, progress and last error
//   - ocr_edit_text: Replace the recognized text
//   - ocr_clear: Drop the image and text
//   - ocr_engine_info: Engine name, language and preprocessing
//
// # Progress
//
// While a recognition runs, progress is pushed as notifications/progress with
// progressToken "ocr-<generation>", progress in [0, 1], total 1 and the
// engine's stage as message. Notifications are written by a separate
// goroutine, so they keep flowing while ocr_extract_text waits. Output writes
// are serialized.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: "Tool execution failed"
//   - data: {"code": "<ERROR_CODE>", "message": ..., "cause": ...}
//
// Selecting nothing, or starting recognition when it cannot run, is not an
// error; the result reports that nothing changed.
package server
