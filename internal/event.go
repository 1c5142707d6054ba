package internal

// Event is the envelope handed to the dispatch pipeline after a delivery has
// been ingested. Data holds the flattened payload for rule evaluation;
// RawPayload is the exact body as received.
type Event struct {
	Provider   string                 `json:"provider"`
	Name       string                 `json:"name"`
	ID         string                 `json:"id"`
	Headers    map[string]string      `json:"headers,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	RawPayload []byte                 `json:"-"`
}
