// Package mcpbinding exposes the indexing core's five tool operations over
// the Model Context Protocol, per spec §6: index_project, search_code,
// get_index_status, clear_index, health_check.
package mcpbinding

import (
	"fmt"

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

// JSON-RPC-style error codes, following the standard reserved range plus a
// block of tool-specific codes.
const (
	codeInvalidParams = -32602
	codeInternalError = -32603

	codeNotFound           = -32001
	codeConfigValidation   = -32002
	codeBackendUnavailable = -32003
	codeAlreadyRunning     = -32004
	codeCancelled          = -32005
)

// MCPError is a protocol-level error with a numeric code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError builds an invalid-params MCPError with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: codeInvalidParams, Message: msg}
}

// MapError converts an internal errkit error into an MCPError, preserving
// its message and mapping its Kind onto the closest JSON-RPC error code.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}
	switch errkit.KindOf(err) {
	case errkit.KindInvalidParams:
		return &MCPError{Code: codeInvalidParams, Message: err.Error()}
	case errkit.KindNotFound:
		return &MCPError{Code: codeNotFound, Message: err.Error()}
	case errkit.KindConfigValidation:
		return &MCPError{Code: codeConfigValidation, Message: err.Error()}
	case errkit.KindBackendUnavailable:
		return &MCPError{Code: codeBackendUnavailable, Message: err.Error()}
	case errkit.KindAlreadyRunning:
		return &MCPError{Code: codeAlreadyRunning, Message: err.Error()}
	case errkit.KindCancelled:
		return &MCPError{Code: codeCancelled, Message: err.Error()}
	default:
		return &MCPError{Code: codeInternalError, Message: err.Error()}
	}
}
