package internal

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type stubPublisher struct {
	published    int
	lastTopic    string
	lastPayload  []byte
	lastMetadata message.Metadata
}

func (s *stubPublisher) Publish(topic string, msgs ...*message.Message) error {
	s.published += len(msgs)
	s.lastTopic = topic
	if len(msgs) > 0 {
		s.lastPayload = append([]byte(nil), msgs[0].Payload...)
		s.lastMetadata = msgs[0].Metadata
	}
	return nil
}

func (s *stubPublisher) Close() error {
	return nil
}

func withStubDriver(t *testing.T, name string, stub *stubPublisher) {
	t.Helper()
	orig, had := publisherFactories[name]
	t.Cleanup(func() {
		if had {
			publisherFactories[name] = orig
		} else {
			delete(publisherFactories, name)
		}
	})
	RegisterPublisherDriver(name, func(cfg DispatchConfig, logger watermill.LoggerAdapter) (message.Publisher, func() error, error) {
		return stub, nil, nil
	})
}

// TestRegisterPublisherDriver tests that a custom dispatch driver can be
// registered and selected by name.
func TestRegisterPublisherDriver(t *testing.T) {
	stub := &stubPublisher{}
	withStubDriver(t, "custom", stub)

	pub, err := NewPublisher(DispatchConfig{Driver: "custom", PublishRetry: PublishRetryConfig{Attempts: 1}})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer pub.Close()

	if err := pub.Publish(context.Background(), "custom.topic", Event{Provider: "github", Name: "push"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if stub.published != 1 {
		t.Fatalf("expected 1 message, got %d", stub.published)
	}
	if stub.lastTopic != "custom.topic" {
		t.Fatalf("expected topic custom.topic, got %q", stub.lastTopic)
	}
}

// TestPublishForwardsRawPayloadAndMetadata tests that the raw delivery body
// is forwarded untouched with routing metadata set.
func TestPublishForwardsRawPayloadAndMetadata(t *testing.T) {
	stub := &stubPublisher{}
	withStubDriver(t, "custom", stub)

	pub, err := NewPublisher(DispatchConfig{Driver: "custom", PublishRetry: PublishRetryConfig{Attempts: 1}})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer pub.Close()

	raw := []byte(`{"action":"opened"}`)
	err = pub.Publish(context.Background(), "pr.opened", Event{
		Provider:   "github",
		Name:       "pull_request",
		ID:         "evt-1",
		RawPayload: raw,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if string(stub.lastPayload) != string(raw) {
		t.Fatalf("expected raw payload forwarded, got %s", stub.lastPayload)
	}
	if stub.lastMetadata.Get("provider") != "github" {
		t.Fatalf("expected provider metadata, got %q", stub.lastMetadata.Get("provider"))
	}
	if stub.lastMetadata.Get("event_id") != "evt-1" {
		t.Fatalf("expected event_id metadata, got %q", stub.lastMetadata.Get("event_id"))
	}
}

// TestPublishForDriversUnknownDriver tests that an unknown driver name is
// reported as an error without blocking the known ones.
func TestPublishForDriversUnknownDriver(t *testing.T) {
	stub := &stubPublisher{}
	withStubDriver(t, "custom", stub)

	pub, err := NewPublisher(DispatchConfig{Driver: "custom", PublishRetry: PublishRetryConfig{Attempts: 1}})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer pub.Close()

	err = pub.PublishForDrivers(context.Background(), "topic", Event{Provider: "github"}, []string{"custom", "missing"})
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if stub.published != 1 {
		t.Fatalf("expected known driver to still publish, got %d", stub.published)
	}
}

// TestNewPublisherNoDrivers tests that a config with only broken drivers
// fails.
func TestNewPublisherNoDrivers(t *testing.T) {
	_, err := NewPublisher(DispatchConfig{
		Driver:       "kafka", // no brokers configured
		PublishRetry: PublishRetryConfig{Attempts: 1, DelayMS: 1},
	})
	if err == nil {
		t.Fatalf("expected error when no dispatch drivers are available")
	}
}
