package middleware

import (
	"encoding/json"
	"net/http"
)

// Response messages. They never carry the underlying cause.
const (
	MessageUnauthorized    = "authentication required"
	MessageForbidden       = "insufficient permissions"
	MessageTooManyRequests = "too many requests, try again later"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

// WriteJSON writes body with status. A nil body writes only the status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	if body == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError writes {success:false,message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Success: false, Message: message})
}
