// Package mcpserver is the thin MCP dispatcher over the Query Engine
// and Memory Subsystem: it registers named tools with typed
// jsonschema-tagged input/output structs and forwards each call to the
// corresponding internal operation, adding no logic of its own. Grounded
// on the host CLI's internal/mcp/server.go and tools.go, using
// github.com/modelcontextprotocol/go-sdk.
package mcpserver

import (
	"errors"
	"fmt"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
)

// MCP error codes: ErrCodeNotFound is a custom code in the JSON-RPC
// server-error range; the other two are the JSON-RPC standard codes.
const (
	ErrCodeNotFound      = -32001
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a JSON-RPC style error with a stable code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts a cgerrors.Error (or any error) into an MCPError.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}
	var ce *cgerrors.Error
	if errors.As(err, &ce) {
		switch ce.Code {
		case cgerrors.CodeNotFound:
			return &MCPError{Code: ErrCodeNotFound, Message: ce.Message}
		case cgerrors.CodeInvalidInput, cgerrors.CodeBuilder:
			return &MCPError{Code: ErrCodeInvalidParams, Message: ce.Message}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: ce.Message}
		}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}

// NewInvalidParamsError builds an invalid-params MCPError with msg.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}
