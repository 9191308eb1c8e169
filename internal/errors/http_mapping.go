package errors

import (
	"fmt"
	"net/http"

	"clubhub-go/internal/constants"

	"github.com/tidwall/gjson"
)

// MapHTTPError maps HTTP status codes and backend payloads to standardized errors.
func MapHTTPError(statusCode int, body []byte) *APIError {
	msg := extractBackendMessage(body)

	switch statusCode {
	case http.StatusBadRequest:
		return New(statusCode, "invalid_request", "invalid_request_error", firstNonEmpty(msg, "Invalid request"))
	case http.StatusUnauthorized:
		return New(statusCode, "unauthenticated", "authentication_error", firstNonEmpty(msg, "Invalid authentication"))
	case http.StatusForbidden:
		return New(statusCode, "permission_denied", "permission_error", firstNonEmpty(msg, "Permission denied"))
	case http.StatusNotFound:
		return New(statusCode, "not_found", "invalid_request_error", firstNonEmpty(msg, "Resource not found"))
	case http.StatusConflict:
		return New(statusCode, "conflict", "invalid_request_error", firstNonEmpty(msg, "Resource already exists"))
	case http.StatusTooManyRequests:
		return New(statusCode, "rate_limit_exceeded", "rate_limit_error", firstNonEmpty(msg, "Rate limit exceeded"))
	case http.StatusInternalServerError:
		return New(statusCode, "server_error", "server_error", firstNonEmpty(msg, "Internal server error"))
	case http.StatusBadGateway:
		return New(statusCode, "bad_gateway", "server_error", firstNonEmpty(msg, "Bad gateway"))
	case http.StatusServiceUnavailable:
		return New(statusCode, "service_unavailable", "server_error", firstNonEmpty(msg, "Service temporarily unavailable"))
	case http.StatusGatewayTimeout:
		return New(statusCode, "timeout", "timeout_error", firstNonEmpty(msg, "Request timeout"))
	default:
		return New(statusCode, "unknown_error", "server_error", firstNonEmpty(msg, fmt.Sprintf("HTTP %d error", statusCode)))
	}
}

// extractBackendMessage understands {"message":...}, {"error":"..."} and
// {"error":{"message":...}} envelopes and falls back to the raw body.
func extractBackendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "message", "error"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
		return ""
	}
	msg := string(body)
	if len(msg) > constants.MaxErrorMessageLength {
		return msg[:constants.MaxErrorMessageLength] + "..."
	}
	return msg
}

func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}
