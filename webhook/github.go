package webhook

import (
	"log"
	"net/http"

	"hookboard/internal"
	"hookboard/pkg/storage"
)

// SupportedGitHubEvents lists the event types the normalizer understands.
var SupportedGitHubEvents = []string{"push", "pull_request"}

// GitHubHandler ingests GitHub webhook deliveries.
type GitHubHandler struct {
	Secret       string
	Store        storage.GitHubEventStore
	Dispatcher   *internal.Dispatcher
	Logger       *log.Logger
	MaxBodyBytes int64
}

func NewGitHubHandler(secret string, store storage.GitHubEventStore, dispatcher *internal.Dispatcher, logger *log.Logger) *GitHubHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GitHubHandler{Secret: secret, Store: store, Dispatcher: dispatcher, Logger: logger}
}

func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeLiveness(w, "GitHub webhook endpoint is active", SupportedGitHubEvents)
	case http.MethodPost:
		h.ingest(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func (h *GitHubHandler) ingest(w http.ResponseWriter, r *http.Request) {
	internal.IncRequest("github")

	rawBody, err := readBody(r, h.MaxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	if err := internal.VerifySignature(rawBody, r.Header.Get("X-Hub-Signature-256"), h.Secret); err != nil {
		internal.IncSignatureFailure("github")
		h.Logger.Printf("invalid github webhook signature: %v", err)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid signature"})
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	deliveryID := r.Header.Get("X-GitHub-Delivery")
	h.Logger.Printf("received github event type=%s delivery=%s", eventType, deliveryID)

	record, err := NormalizeGitHubEvent(eventType, rawBody, deliveryID)
	if err != nil {
		h.Logger.Printf("github payload parse failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "GitHub webhook processing failed",
			Message: err.Error(),
		})
		return
	}

	if record == nil {
		h.Logger.Printf("unhandled github event type=%s delivery=%s", eventType, deliveryID)
	} else {
		// Storage failures never fail the delivery: a 4xx/5xx here
		// would trigger sender-side retry storms, so data loss stays
		// silent apart from the log line.
		if err := h.Store.Insert(r.Context(), *record); err != nil {
			internal.IncStoreError("github_events")
			h.Logger.Printf("github event store failed: %v", err)
		} else {
			h.Logger.Printf("github event stored action=%s author=%s", record.Action, record.Author)
		}

		h.Dispatcher.Dispatch(r.Context(), internal.Event{
			Provider:   "github",
			Name:       eventType,
			ID:         record.ID,
			Headers:    headerMap(r),
			Data:       flattenBody(rawBody),
			RawPayload: rawBody,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "GitHub webhook processed successfully",
		"eventType":  eventType,
		"deliveryId": deliveryID,
	})
}
