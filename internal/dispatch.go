package internal

import (
	"context"
	"log"
)

// Dispatcher runs ingested events through the rule engine and publishes
// matches. It is a post-ingestion extension point: nothing downstream of it
// affects the HTTP response for a delivery, so every failure here is logged
// and swallowed.
type Dispatcher struct {
	rules     *RuleEngine
	publisher Publisher
	logger    *log.Logger
}

func NewDispatcher(rules *RuleEngine, publisher Publisher, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{rules: rules, publisher: publisher, logger: logger}
}

// Dispatch evaluates rules for the event and publishes to matched topics.
// With no rules configured it only logs the event, which is the default
// behavior for unrecognized event types.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	matches := d.rules.Evaluate(event)
	if len(matches) == 0 {
		d.logger.Printf("no dispatch rule for event provider=%s name=%s id=%s", event.Provider, event.Name, event.ID)
		return
	}
	if d.publisher == nil {
		return
	}
	for _, match := range matches {
		if err := d.publisher.PublishForDrivers(ctx, match.Topic, event, match.Drivers); err != nil {
			d.logger.Printf("dispatch %s failed: %v", match.Topic, err)
		}
	}
}
