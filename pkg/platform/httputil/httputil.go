package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	dErrors "showroom/pkg/domain-errors"
)

// ErrorResponse is the failure envelope shared by every endpoint.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageResponse is the success envelope for endpoints without a payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Success:   false,
			Error:     DomainCodeToHTTPCode(domainErr.Code),
			Message:   domainErr.Message,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Success:   false,
		Error:     DomainCodeToHTTPCode(dErrors.CodeInternal),
		Message:   "internal server error",
		Timestamp: time.Now().UTC(),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUpstream, dErrors.CodeStorageUpload, dErrors.CodeMailDelivery:
		return http.StatusBadGateway
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the error token in the JSON envelope.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeRateLimited:
		return "rate_limit_exceeded"
	case dErrors.CodeTooLarge:
		return "payload_too_large"
	case dErrors.CodeTimeout:
		return "upstream_timeout"
	case dErrors.CodeUpstream:
		return "upstream_unavailable"
	case dErrors.CodeStorageUpload:
		return "upload_failed"
	case dErrors.CodeMailDelivery:
		return "mail_delivery_failed"
	default:
		return "internal_error"
	}
}
