package osm

import (
	"fmt"
	"net/http"
)

// APIError represents an error that occurred while communicating with
// an external API service, with information to help users recover.
type APIError struct {
	Service     string // The API service name (e.g., "nominatim")
	StatusCode  int    // HTTP status code
	Message     string // Error message
	Recoverable bool   // Whether the error can be recovered from
	Guidance    string // Guidance for users on how to recover
}

// Error implements the error interface and provides a formatted error message.
func (e *APIError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s API error (%d): %s. %s", e.Service, e.StatusCode, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Common error guidance messages
const (
	GuidanceRateLimit    = "Rate limit exceeded. Please try again in a few moments."
	GuidanceTimeout      = "The request timed out. Check your internet connection and try again."
	GuidanceBadRequest   = "The request was invalid. Check your parameters and try again."
	GuidanceServerError  = "The server encountered an error. This is likely temporary, please try again later."
	GuidanceUnavailable  = "The service is temporarily unavailable. Please try again later."
	GuidanceGeneral      = "Please try again later or modify your request parameters."
	GuidanceNetworkError = "Check your internet connection and try again."
)

// NewAPIError creates a new APIError with appropriate guidance based on status code.
func NewAPIError(service string, statusCode int, message, guidance string) *APIError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if guidance == "" {
		switch statusCode {
		case http.StatusTooManyRequests:
			guidance = GuidanceRateLimit
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			guidance = GuidanceTimeout
		case http.StatusBadRequest:
			guidance = GuidanceBadRequest
		case http.StatusInternalServerError:
			guidance = GuidanceServerError
		case http.StatusServiceUnavailable:
			guidance = GuidanceUnavailable
		default:
			guidance = GuidanceGeneral
		}
	}

	return &APIError{
		Service:     service,
		StatusCode:  statusCode,
		Message:     message,
		Recoverable: statusCode != http.StatusBadRequest,
		Guidance:    guidance,
	}
}
