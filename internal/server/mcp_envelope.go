package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolStatus is the outcome class of a tool call.
type ToolStatus string

const (
	ToolStatusOK      ToolStatus = "ok"
	ToolStatusError   ToolStatus = "error"
	ToolStatusPartial ToolStatus = "partial"
)

// ErrorCode is the stable, machine-readable reason of an error response.
type ErrorCode string

const (
	CodeInvalidParams      ErrorCode = "invalid_params"
	CodeUnknownTool        ErrorCode = "unknown_tool"
	CodeInvalidPath        ErrorCode = "invalid_path"
	CodeConfigUnreadable   ErrorCode = "config_unreadable"
	CodeConfigWriteFailed  ErrorCode = "config_write_failed"
	CodeVerificationFailed ErrorCode = "verification_failed"
	CodeToolUnusable       ErrorCode = "tool_unusable"
	CodePreparationFailed  ErrorCode = "preparation_failed"
	CodeInvalidStep        ErrorCode = "invalid_step"
	CodeInvalidInput       ErrorCode = "invalid_input"
	CodeExecutionNotFound  ErrorCode = "execution_not_found"
	CodeStepFailed         ErrorCode = "step_failed"

	codeMarshalFailed ErrorCode = "tool_response_marshal_error"
)

// ToolLink names the tool a client should call next, with the arguments
// that call needs.
type ToolLink struct {
	Rel    string         `json:"rel"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// Link is shorthand for a ToolLink with optional key/value parameters.
func Link(rel, tool string, kv ...any) ToolLink {
	link := ToolLink{Rel: rel, Tool: tool}
	for i := 0; i+1 < len(kv); i += 2 {
		if link.Params == nil {
			link.Params = make(map[string]any, len(kv)/2)
		}
		link.Params[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return link
}

// ToolResponse is the JSON body of every docking tool result.
type ToolResponse struct {
	Status  ToolStatus `json:"status"`
	Code    ErrorCode  `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
	Hint    string     `json:"hint,omitempty"`
	Data    any        `json:"data,omitempty"`
	Links   []ToolLink `json:"links,omitempty"`
}

// WithLinks returns a copy of r carrying follow-up links.
func (r ToolResponse) WithLinks(links ...ToolLink) ToolResponse {
	r.Links = append(append([]ToolLink(nil), r.Links...), links...)
	return r
}

func (r ToolResponse) encode(logger *slog.Logger) string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err == nil {
		return string(b)
	}
	if logger != nil {
		logger.Error("Failed to encode tool response", "error", err, "code", r.Code)
	}
	b, _ = json.Marshal(ToolResponse{
		Status:  ToolStatusError,
		Code:    codeMarshalFailed,
		Message: r.Message,
	})
	return string(b)
}

// NewResult wraps resp in an MCP result; error responses set IsError.
func NewResult(resp ToolResponse) *mcp.CallToolResult {
	return NewResultWithLogger(resp, nil)
}

func NewResultWithLogger(resp ToolResponse, logger *slog.Logger) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(resp.encode(logger))},
		IsError: resp.Status == ToolStatusError,
	}
}

func OK(message string, data any) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusOK, Message: message, Data: data})
}

func Error(code ErrorCode, message, hint string, data any) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusError, Code: code, Message: message, Hint: hint, Data: data})
}

// Partial reports work that finished with warnings, such as a detection run
// where some tools are missing.
func Partial(message string, data any) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusPartial, Message: message, Data: data})
}

// MissingParam reports a required argument the client left out.
func MissingParam(what string) *mcp.CallToolResult {
	return Error(CodeInvalidParams, what+" is required", "", nil)
}
