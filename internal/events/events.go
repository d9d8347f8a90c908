// Package events publishes flight change notifications after a command has
// committed. Publishing is best effort: the store is the source of truth and
// a failed publish never rolls back a write.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	FlightCreated = "flight.created"
	FlightUpdated = "flight.updated"
	FlightDeleted = "flight.deleted"
)

// FlightEvent is the payload written for every flight change. Version is the
// token after the write; for deletions it is the token that was removed.
type FlightEvent struct {
	Type         string    `json:"type"`
	FlightID     uint      `json:"flightId"`
	FlightNumber string    `json:"flightNumber,omitempty"`
	Version      uuid.UUID `json:"version"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher delivers flight events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev FlightEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, FlightEvent) error { return nil }
func (NopPublisher) Close() error                               { return nil }
