// Package events publishes offer lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OfferSubmitted = "offer.submitted"
	OfferApproved  = "offer.approved"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OfferID    uuid.UUID       `json:"offerId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// New builds an event for offerID with data marshalled as its payload.
func New(eventType string, offerID uuid.UUID, data any) (Event, error) {
	evt := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OfferID:    offerID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		evt.Data = raw
	}
	return evt, nil
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
