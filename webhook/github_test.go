package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"hookboard/internal"
	"hookboard/pkg/storage"
)

type stubGitHubStore struct {
	inserted  []storage.GitHubEventRecord
	insertErr error
}

func (s *stubGitHubStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *stubGitHubStore) Insert(ctx context.Context, record storage.GitHubEventRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, record)
	return nil
}

func (s *stubGitHubStore) List(ctx context.Context, limit int) ([]storage.GitHubEventRecord, bool, error) {
	return s.inserted, false, nil
}

func (s *stubGitHubStore) HasTable(ctx context.Context) (bool, error) { return true, nil }
func (s *stubGitHubStore) Ping(ctx context.Context) error             { return nil }
func (s *stubGitHubStore) Close() error                               { return nil }

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func noopDispatcher() *internal.Dispatcher {
	return internal.NewDispatcher(nil, nil, discardLogger())
}

func postGitHub(t *testing.T, h http.Handler, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/github/webhook", bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestGitHubHandlerStoresSignedPush tests that a correctly signed push
// delivery is normalized and stored.
func TestGitHubHandlerStoresSignedPush(t *testing.T) {
	store := &stubGitHubStore{}
	handler := NewGitHubHandler("s3cret", store, noopDispatcher(), discardLogger())

	body := []byte(`{"ref":"refs/heads/main","pusher":{"name":"alice"}}`)
	rec := postGitHub(t, handler, body, map[string]string{
		"X-Hub-Signature-256": internal.SignBody(body, "s3cret"),
		"X-GitHub-Event":      "push",
		"X-GitHub-Delivery":   "abc-123",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(store.inserted))
	}
	record := store.inserted[0]
	if record.Action != storage.ActionPush || record.Author != "alice" || record.ToBranch != "main" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.RequestID != "abc-123" {
		t.Fatalf("expected request id abc-123, got %q", record.RequestID)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != true || resp["eventType"] != "push" || resp["deliveryId"] != "abc-123" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

// TestGitHubHandlerRejectsBadSignature tests the 401 on a wrong signature.
func TestGitHubHandlerRejectsBadSignature(t *testing.T) {
	store := &stubGitHubStore{}
	handler := NewGitHubHandler("s3cret", store, noopDispatcher(), discardLogger())

	body := []byte(`{"ref":"refs/heads/main"}`)
	rec := postGitHub(t, handler, body, map[string]string{
		"X-Hub-Signature-256": internal.SignBody(body, "wrong"),
		"X-GitHub-Event":      "push",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "Invalid signature" {
		t.Fatalf("unexpected error body: %v", resp)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("nothing should be stored on signature failure")
	}
}

// TestGitHubHandlerSkipsUnsignedWhenNoSecret tests the permissive path: with
// no secret configured an unsigned delivery is accepted.
func TestGitHubHandlerSkipsUnsignedWhenNoSecret(t *testing.T) {
	store := &stubGitHubStore{}
	handler := NewGitHubHandler("", store, noopDispatcher(), discardLogger())

	rec := postGitHub(t, handler, []byte(`{"ref":"refs/heads/main","pusher":{"name":"alice"}}`), map[string]string{
		"X-GitHub-Event": "push",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(store.inserted))
	}
}

// TestGitHubHandlerDropsUnhandledEvent tests that an uninteresting event
// still returns 200 without touching storage.
func TestGitHubHandlerDropsUnhandledEvent(t *testing.T) {
	store := &stubGitHubStore{}
	handler := NewGitHubHandler("", store, noopDispatcher(), discardLogger())

	rec := postGitHub(t, handler, []byte(`{"action":"labeled","pull_request":{}}`), map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("labeled PR should not be stored")
	}
}

// TestGitHubHandlerToleratesStoreFailure tests that an insert failure is
// swallowed and the sender still gets a 200.
func TestGitHubHandlerToleratesStoreFailure(t *testing.T) {
	store := &stubGitHubStore{insertErr: errors.New("connection refused")}
	handler := NewGitHubHandler("", store, noopDispatcher(), discardLogger())

	rec := postGitHub(t, handler, []byte(`{"ref":"refs/heads/main","pusher":{"name":"alice"}}`), map[string]string{
		"X-GitHub-Event": "push",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite store failure, got %d", rec.Code)
	}
}

// TestGitHubHandlerMalformedPayload tests the 500 on an unparsable push body.
func TestGitHubHandlerMalformedPayload(t *testing.T) {
	handler := NewGitHubHandler("", &stubGitHubStore{}, noopDispatcher(), discardLogger())

	rec := postGitHub(t, handler, []byte("not json"), map[string]string{
		"X-GitHub-Event": "push",
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

// TestGitHubHandlerLiveness tests the GET health probe.
func TestGitHubHandlerLiveness(t *testing.T) {
	handler := NewGitHubHandler("", &stubGitHubStore{}, noopDispatcher(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/github/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Fatalf("unexpected liveness body: %v", resp)
	}
}
