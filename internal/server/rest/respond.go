// Package rest is the HTTP transport of the API: chi routing, middleware,
// request DTOs and the JSON response envelope.
package rest

import (
	"encoding/json"
	"net/http"
	"time"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// now is swapped in tests to make response bodies deterministic.
var now = time.Now

// Envelope wraps every response body.
type Envelope struct {
	Error      bool   `json:"error"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

func writeEnvelope(w http.ResponseWriter, status int, isErr bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Error:      isErr,
		StatusCode: status,
		Timestamp:  now().UTC().Format(timestampLayout),
		Message:    message,
		Data:       data,
	})
}

// respondJSON writes a successful envelope.
func respondJSON(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, status, false, message, data)
}

// respondError writes a failed envelope with a null data field.
func respondError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, true, message, nil)
}
