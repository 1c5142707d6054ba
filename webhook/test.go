package webhook

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"hookboard/internal"
	"hookboard/pkg/storage"

	"github.com/google/uuid"
)

// TestEventType marks events synthesized through the test endpoint.
const TestEventType = "test.event"

// TestHandler synthesizes a stored test event from the posted body. Unlike
// the ingest paths there is no table-missing tolerance here: a storage
// failure is a 500, since the caller is an operator, not a webhook sender.
type TestHandler struct {
	Store        storage.WebhookEventStore
	Logger       *log.Logger
	MaxBodyBytes int64
}

func NewTestHandler(store storage.WebhookEventStore, logger *log.Logger) *TestHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &TestHandler{Store: store, Logger: logger}
}

func (h *TestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	internal.IncRequest("test")

	rawBody, err := readBody(r, h.MaxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	body := map[string]interface{}{}
	if len(rawBody) > 0 {
		if err := json.Unmarshal(rawBody, &body); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to create test webhook"})
			return
		}
	}

	eventID := uuid.NewString()
	now := time.Now().UTC()

	body["test"] = true
	body["eventId"] = eventID
	body["timestamp"] = now.Format(time.RFC3339)

	payload, err := json.Marshal(body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to create test webhook"})
		return
	}
	headersJSON, err := json.Marshal(headerMap(r))
	if err != nil {
		headersJSON = nil
	}

	record := storage.WebhookEventRecord{
		ID:          eventID,
		EventType:   TestEventType,
		Payload:     payload,
		Headers:     headersJSON,
		Status:      storage.StatusSuccess,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := h.Store.Insert(r.Context(), record); err != nil {
		internal.IncStoreError("webhook_events")
		h.Logger.Printf("test webhook store failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to create test webhook"})
		return
	}

	h.Logger.Printf("test webhook created id=%s", eventID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"eventId":   eventID,
		"eventType": TestEventType,
		"message":   "Test webhook event created successfully",
	})
}
