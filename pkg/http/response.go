package http

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every JSON endpoint returns: the HTTP status
// code repeated in the body, a human-readable message, and optional data.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Write(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := Response{
		Code:    statusCode,
		Message: message,
		Data:    data,
	}

	// Encoding errors are logged upstream, never exposed to the client.
	_ = json.NewEncoder(w).Encode(resp)
}

func WriteSuccess(w http.ResponseWriter, message string, data interface{}) {
	Write(w, http.StatusOK, message, data)
}

func WriteCreated(w http.ResponseWriter, message string, data interface{}) {
	Write(w, http.StatusCreated, message, data)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	Write(w, http.StatusBadRequest, message, nil)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	Write(w, http.StatusUnauthorized, message, nil)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	Write(w, http.StatusForbidden, message, nil)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	Write(w, http.StatusNotFound, message, nil)
}

func WriteConflict(w http.ResponseWriter, message string) {
	Write(w, http.StatusConflict, message, nil)
}

func WriteValidationError(w http.ResponseWriter, message string) {
	Write(w, http.StatusUnprocessableEntity, message, nil)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	Write(w, http.StatusTooManyRequests, message, nil)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	Write(w, http.StatusInternalServerError, message, nil)
}
