package webhook

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"hookboard/internal"
	"hookboard/pkg/storage"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
)

// eventTypePaths are probed in order against the decoded payload to find
// the event-type discriminator.
var eventTypePaths = []string{"$.type", "$.event_type", "$.event"}

// GenericHandler ingests arbitrary typed webhook deliveries.
type GenericHandler struct {
	Secret       string
	Store        storage.WebhookEventStore
	Dispatcher   *internal.Dispatcher
	Logger       *log.Logger
	MaxBodyBytes int64
}

func NewGenericHandler(secret string, store storage.WebhookEventStore, dispatcher *internal.Dispatcher, logger *log.Logger) *GenericHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GenericHandler{Secret: secret, Store: store, Dispatcher: dispatcher, Logger: logger}
}

func (h *GenericHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeLiveness(w, "Webhook endpoint is active", nil)
	case http.MethodPost:
		h.ingest(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (h *GenericHandler) ingest(w http.ResponseWriter, r *http.Request) {
	internal.IncRequest("generic")

	rawBody, err := readBody(r, h.MaxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Hub-Signature-256")
	}
	if err := internal.VerifySignature(rawBody, signature, h.Secret); err != nil {
		internal.IncSignatureFailure("generic")
		h.Logger.Printf("invalid webhook signature: %v", err)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid signature"})
		return
	}

	// A body that is not JSON is still accepted: it is wrapped as a raw
	// document instead of failing the delivery.
	var decoded interface{}
	payload := rawBody
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		wrapped, marshalErr := json.Marshal(map[string]string{"raw": string(rawBody)})
		if marshalErr != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Webhook processing failed",
				Message: marshalErr.Error(),
			})
			return
		}
		payload = wrapped
		decoded = nil
	}

	eventType := extractEventType(decoded)
	eventID := uuid.NewString()

	headers := headerMap(r)
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		headersJSON = nil
	}

	record := storage.WebhookEventRecord{
		ID:        eventID,
		EventType: eventType,
		Payload:   payload,
		Headers:   headersJSON,
		Status:    storage.StatusSuccess,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.Insert(r.Context(), record); err != nil {
		internal.IncStoreError("webhook_events")
		h.Logger.Printf("webhook event store failed: %v", err)
	} else {
		h.Logger.Printf("webhook event stored type=%s id=%s", eventType, eventID)
	}

	// Secondary processing is an extension point: by default it only
	// logs, and nothing it does can change the response.
	h.Dispatcher.Dispatch(r.Context(), internal.Event{
		Provider:   "generic",
		Name:       eventType,
		ID:         eventID,
		Headers:    headers,
		Data:       flattenBody(payload),
		RawPayload: payload,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"eventId":   eventID,
		"eventType": eventType,
		"message":   "Webhook processed successfully",
	})
}

// extractEventType probes the discriminator paths and falls back to
// "unknown" when none holds a non-empty string.
func extractEventType(decoded interface{}) string {
	if decoded == nil {
		return "unknown"
	}
	for _, path := range eventTypePaths {
		value, err := jsonpath.Get(path, decoded)
		if err != nil {
			continue
		}
		if typed, ok := value.(string); ok && typed != "" {
			return typed
		}
	}
	return "unknown"
}
