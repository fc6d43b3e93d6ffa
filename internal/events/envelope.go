// Package events forwards webhook activity to a message broker.
package events

import "time"

// Meta describes one published event.
type Meta struct {
	// ID is unique per event.
	ID string `json:"id"`
	// Type is the event name and version, e.g. oagate.message_received.v1.
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	// Producer names the emitting service and version.
	Producer string `json:"producer,omitempty"`
	// CorrelationID ties the event to the webhook request that caused it.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Envelope is the body of every published message.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}
