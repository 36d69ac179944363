// Package errors defines the coded errors reported to MCP clients.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a tool failure for the client.
type Code string

const (
	// Request errors
	CodeInvalidArguments Code = "INVALID_ARGUMENTS"
	CodeImageUnreadable  Code = "IMAGE_UNREADABLE"

	// Recognition errors
	CodeRecognitionFailed Code = "RECOGNITION_FAILED"
	CodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"
)

// ToolError is a tool failure with a stable code.
type ToolError struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// ToMap renders the error as the data of a JSON-RPC error response.
func (e *ToolError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"code":    string(e.Code),
		"message": e.Message,
	}
	for k, v := range e.Details {
		result[k] = v
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	return result
}

// As returns the first ToolError in err's chain.
func As(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Factory functions

func NewInvalidArgumentsError(message string, cause error) *ToolError {
	return &ToolError{
		Code:    CodeInvalidArguments,
		Message: message,
		Cause:   cause,
	}
}

func NewImageUnreadableError(source string, cause error) *ToolError {
	return &ToolError{
		Code:    CodeImageUnreadable,
		Message: fmt.Sprintf("Cannot read image from %s", source),
		Details: map[string]interface{}{
			"source": source,
		},
		Cause: cause,
	}
}

func NewRecognitionFailedError(engine, imageID string, cause error) *ToolError {
	return &ToolError{
		Code:    CodeRecognitionFailed,
		Message: fmt.Sprintf("Recognition failed in engine: %s", engine),
		Details: map[string]interface{}{
			"engine":   engine,
			"image_id": imageID,
		},
		Cause: cause,
	}
}

func NewEngineUnavailableError(engine string, cause error) *ToolError {
	return &ToolError{
		Code:    CodeEngineUnavailable,
		Message: fmt.Sprintf("OCR engine unavailable: %s", engine),
		Details: map[string]interface{}{
			"engine": engine,
		},
		Cause: cause,
	}
}
