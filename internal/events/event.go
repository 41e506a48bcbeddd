package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/climapro-backend/types"
	"github.com/google/uuid"
)

// NewEvent builds an event with a fresh id and the JSON-encoded payload.
func NewEvent(eventType types.EventType, topic, source string, payload interface{}) (types.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return types.Event{
		BaseEvent: types.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Topic:     topic,
			Timestamp: time.Now().UTC(),
			Version:   1,
		},
		Metadata: types.EventMetadata{Source: source},
		Payload:  data,
	}, nil
}

// prepare fills the envelope defaults and validates the result.
func prepare(topic string, event types.Event) (types.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Topic == "" {
		event.Topic = topic
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	if err := event.Validate(); err != nil {
		return event, err
	}
	return event, nil
}

func matches(event types.Event, filters []types.EventType) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if event.Type == f {
			return true
		}
	}
	return false
}
