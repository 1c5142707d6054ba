package poller

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func serveEnvelope(t *testing.T, body string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestPollerFetchesImmediately tests that the first fetch happens before the
// first tick.
func TestPollerFetchesImmediately(t *testing.T) {
	srv := serveEnvelope(t, `{"success":true,"events":[{"id":"1"}],"needsInit":false}`, nil)

	p := New(Config{
		URL:      srv.URL,
		Interval: time.Hour,
		Logger:   log.New(io.Discard, "", 0),
	})

	got := make(chan Envelope, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = p.Run(ctx, func(env Envelope, err error) {
			if err != nil {
				t.Errorf("fetch: %v", err)
			}
			select {
			case got <- env:
			default:
			}
			cancel()
		})
	}()

	select {
	case env := <-got:
		if !env.Success || len(env.Events) != 1 {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no fetch before the first tick")
	}
}

// TestPollerPollsOnInterval tests repeated fetches on a short interval.
func TestPollerPollsOnInterval(t *testing.T) {
	var hits atomic.Int64
	srv := serveEnvelope(t, `{"success":true,"events":[],"needsInit":false}`, &hits)

	p := New(Config{
		URL:      srv.URL,
		Interval: 10 * time.Millisecond,
		Logger:   log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx, func(Envelope, error) {}); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	if n := hits.Load(); n < 3 {
		t.Fatalf("expected at least 3 fetches, got %d", n)
	}
}

// TestPollerRefresh tests the out-of-band refresh between ticks.
func TestPollerRefresh(t *testing.T) {
	var hits atomic.Int64
	srv := serveEnvelope(t, `{"success":true,"events":[],"needsInit":false}`, &hits)

	p := New(Config{
		URL:      srv.URL,
		Interval: time.Hour,
		Logger:   log.New(io.Discard, "", 0),
	})

	fetched := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = p.Run(ctx, func(Envelope, error) { fetched <- struct{}{} })
	}()

	// Initial fetch.
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatalf("no initial fetch")
	}

	p.Refresh()
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatalf("refresh did not trigger a fetch")
	}

	// A duplicate pending refresh collapses into one.
	p.Refresh()
	p.Refresh()
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatalf("pending refresh was lost")
	}
}

// TestPollerReportsNeedsInit tests that the needsInit flag survives decoding.
func TestPollerReportsNeedsInit(t *testing.T) {
	srv := serveEnvelope(t, `{"success":true,"events":[],"message":"Database tables not initialized. Please initialize the database first.","needsInit":true}`, nil)

	p := New(Config{URL: srv.URL, Interval: time.Hour, Logger: log.New(io.Discard, "", 0)})
	env, err := p.fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !env.NeedsInit {
		t.Fatalf("expected needsInit to be set")
	}
	if env.Message == "" {
		t.Fatalf("expected an initialization message")
	}
}

// TestPollerFetchErrors tests transport and status error reporting.
func TestPollerFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"success":false,"events":[],"message":"boom","needsInit":false}`)
	}))
	t.Cleanup(srv.Close)

	p := New(Config{URL: srv.URL, Interval: time.Hour, Logger: log.New(io.Discard, "", 0)})
	if _, err := p.fetch(context.Background()); err == nil {
		t.Fatalf("expected error on 500 response")
	}

	p = New(Config{URL: "http://127.0.0.1:1", Interval: time.Hour, Logger: log.New(io.Discard, "", 0)})
	if _, err := p.fetch(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
}
