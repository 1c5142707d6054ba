// hookboard-watch tails a hookboard read API endpoint from the terminal,
// polling the way the dashboard does.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hookboard/internal"
	"hookboard/pkg/poller"
)

func main() {
	url := flag.String("url", "http://localhost:8080/api/github/events", "Events endpoint to poll")
	interval := flag.Duration("interval", poller.DefaultInterval, "Poll interval")
	flag.Parse()

	logger := internal.NewLogger("watch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		cancel()
	}()

	seen := make(map[string]bool)
	p := poller.New(poller.Config{URL: *url, Interval: *interval, Logger: logger})

	err := p.Run(ctx, func(env poller.Envelope, err error) {
		switch {
		case err != nil:
			logger.Printf("fetch failed: %v", err)
		case env.NeedsInit:
			logger.Printf("database not initialized; POST /api/init to create tables")
		default:
			printNew(env.Events, seen)
		}
	})
	if err != nil && err != context.Canceled {
		logger.Printf("watch stopped: %v", err)
	}
}

func printNew(events []json.RawMessage, seen map[string]bool) {
	// Newest first from the API; print oldest first so the terminal
	// reads chronologically.
	for i := len(events) - 1; i >= 0; i-- {
		var event struct {
			ID        string `json:"id"`
			Action    string `json:"action"`
			EventType string `json:"event_type"`
			Author    string `json:"author"`
			Timestamp string `json:"timestamp"`
			CreatedAt string `json:"created_at"`
		}
		if err := json.Unmarshal(events[i], &event); err != nil || event.ID == "" {
			continue
		}
		if seen[event.ID] {
			continue
		}
		seen[event.ID] = true

		kind := event.Action
		if kind == "" {
			kind = event.EventType
		}
		when := event.Timestamp
		if when == "" {
			when = event.CreatedAt
		}
		if when == "" {
			when = time.Now().UTC().Format(time.RFC3339)
		}
		fmt.Printf("%s  %-14s %s\n", when, kind, event.Author)
	}
}
