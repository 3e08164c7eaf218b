// Package rpc implements the line-framed JSON-RPC 2.0 dialect the
// parent tool host speaks on the daemon's stdio.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Error codes on the wire. CodeAuthRequired is the bridge-specific
// extension for missing or expired provider credentials.
const (
	CodeAuthRequired   = -32001
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Error is a JSON-RPC error object. Handlers return *Error to control
// the code surfaced to the host; any other error becomes CodeInternal.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewError creates an Error with the given code.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Envelope is the single wire shape for requests, notifications and
// responses. A populated Result excludes Error and vice versa.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// ToolCallParams carries the arguments of a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TextResult shapes a successful tool result the way the host expects:
// a single text content block.
func TextResult(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}
}
