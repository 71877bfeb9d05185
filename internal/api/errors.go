package api

import (
	"encoding/json"
	"errors"
	"net/http"

	cferrors "codefacts/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// WriteError writes err with the status its code maps to.
func WriteError(w http.ResponseWriter, err error) {
	code := cferrors.CodeOf(err)
	resp := ErrorResponse{Error: err.Error(), Code: string(code)}

	var fe *cferrors.FactError
	if errors.As(err, &fe) {
		resp.Details = fe.Details
	}
	WriteJSON(w, resp, StatusFor(code))
}

// StatusFor maps error codes to HTTP status codes
func StatusFor(code cferrors.ErrorCode) int {
	switch code {
	case cferrors.InvalidArgument:
		return http.StatusBadRequest // 400
	case cferrors.NotFound:
		return http.StatusNotFound // 404
	case cferrors.StoreFailure:
		return http.StatusBadGateway // 502
	case cferrors.ValidationFailed:
		return http.StatusUnprocessableEntity // 422
	case cferrors.ExtractionFailed:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, format string, args ...interface{}) {
	WriteError(w, cferrors.Invalid(format, args...))
}
