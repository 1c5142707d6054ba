// Package poller implements the dashboard polling client: fetch the read
// API immediately, then on a fixed interval until stopped.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// DefaultInterval matches the dashboard's auto-refresh cadence.
const DefaultInterval = 15 * time.Second

// Envelope is the read API response shape.
type Envelope struct {
	Success   bool              `json:"success"`
	Events    []json.RawMessage `json:"events"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	NeedsInit bool              `json:"needsInit"`
}

// Handler receives the result of each fetch. Exactly one of env/err is
// meaningful: err is non-nil for transport or decode failures.
type Handler func(env Envelope, err error)

// Config configures a Poller.
type Config struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
	Logger   *log.Logger
}

// Poller periodically fetches a read API endpoint. Fetches run one at a
// time from the polling loop; a slow fetch simply delays observing the next
// tick — there is no overlap guard and no cancellation of an in-flight
// request beyond the context.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *log.Logger
	refresh  chan struct{}
}

func New(cfg Config) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		url:      cfg.URL,
		interval: interval,
		client:   client,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
	}
}

// Run fetches once immediately, then on every tick, invoking handle with
// each result. It returns when ctx is done; the ticker is stopped on the
// way out.
func (p *Poller) Run(ctx context.Context, handle Handler) error {
	handle(p.fetch(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			handle(p.fetch(ctx))
		case <-p.refresh:
			handle(p.fetch(ctx))
		}
	}
}

// Refresh requests one out-of-band fetch outside the timer cadence. It
// never blocks; a refresh already pending is enough.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *Poller) fetch(ctx context.Context) (Envelope, error) {
	var env Envelope

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return env, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, fmt.Errorf("decode events response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return env, fmt.Errorf("events endpoint returned %d: %s", resp.StatusCode, env.Message)
	}
	return env, nil
}
