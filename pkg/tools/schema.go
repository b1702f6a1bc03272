package tools

import (
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorResponse is used for consistent error reporting
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// jsonResult marshals v as the tool's text result
func jsonResult(logger *slog.Logger, v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		return ErrorResponse("Failed to generate result")
	}
	return mcp.NewToolResultText(string(b))
}
