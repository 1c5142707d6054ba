// Package webhook contains the inbound HTTP handlers that ingest webhook
// deliveries: signature verification, payload normalization, and the
// store-then-dispatch pipeline.
package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"hookboard/internal"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// readBody drains the request body, capped at maxBytes when positive.
func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	var reader io.Reader = r.Body
	if maxBytes > 0 {
		reader = io.LimitReader(r.Body, maxBytes)
	}
	return io.ReadAll(reader)
}

// headerMap captures the request headers as a flat lowercase-keyed map, the
// shape stored alongside generic events.
func headerMap(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		out[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return out
}

// flattenBody decodes raw JSON and flattens it for rule evaluation. A
// non-object or unparsable body yields an empty map.
func flattenBody(raw []byte) map[string]interface{} {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]interface{}{}
	}
	object, ok := decoded.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return internal.Flatten(object)
}

type livenessResponse struct {
	Message         string   `json:"message"`
	Timestamp       string   `json:"timestamp"`
	Methods         []string `json:"methods"`
	Status          string   `json:"status"`
	SupportedEvents []string `json:"supportedEvents,omitempty"`
}

func writeLiveness(w http.ResponseWriter, message string, supportedEvents []string) {
	writeJSON(w, http.StatusOK, livenessResponse{
		Message:         message,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Methods:         []string{http.MethodPost},
		Status:          "healthy",
		SupportedEvents: supportedEvents,
	})
}
