package types

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NomadCrew/climapro-backend/errors"
)

type EventType string

const (
	CategoryWeather   = "WEATHER"
	CategoryFavorites = "FAVORITES"
	CategoryRecents   = "RECENTS"
	CategorySettings  = "SETTINGS"
	CategoryStorage   = "STORAGE"
)

const (
	// Weather events
	EventTypeWeatherLoading EventType = CategoryWeather + "_LOADING"
	EventTypeWeatherUpdated EventType = CategoryWeather + "_UPDATED"
	EventTypeWeatherFailed  EventType = CategoryWeather + "_FAILED"
	EventTypeCitySelected   EventType = CategoryWeather + "_CITY_SELECTED"

	// Collection events
	EventTypeFavoritesUpdated EventType = CategoryFavorites + "_UPDATED"
	EventTypeRecentsUpdated   EventType = CategoryRecents + "_UPDATED"
	EventTypeSettingsUpdated  EventType = CategorySettings + "_UPDATED"

	// Storage events
	EventTypePersistenceFailed EventType = CategoryStorage + "_PERSISTENCE_FAILED"
)

// StateTopic is the topic every coordinator state change is published on.
const StateTopic = "state"

// BaseEvent carries the envelope fields shared by every event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
}

// EventMetadata for tracking and debugging
type EventMetadata struct {
	CorrelationID string            `json:"correlationId,omitempty"`
	Source        string            `json:"source"`
	Tags          map[string]string `json:"tags,omitempty"`
}

type Event struct {
	BaseEvent
	Metadata EventMetadata   `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

func (e Event) Validate() error {
	if e.ID == "" {
		return errors.ValidationFailed("invalid event", "event ID is required")
	}
	if e.Type == "" {
		return errors.ValidationFailed("invalid event", "event type is required")
	}
	if e.Topic == "" {
		return errors.ValidationFailed("invalid event", "topic is required")
	}
	if e.Timestamp.IsZero() {
		return errors.ValidationFailed("invalid event", "timestamp is required")
	}
	return nil
}

// EventPublisher fans events out to subscribers of a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	PublishBatch(ctx context.Context, topic string, events []Event) error
	Subscribe(ctx context.Context, topic string, subscriberID string, filters ...EventType) (<-chan Event, error)
	Unsubscribe(ctx context.Context, topic string, subscriberID string) error
}

// EventHandler for processing events
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
	SupportedEvents() []EventType
}

// StateChangedPayload is the payload of weather and collection events.
type StateChangedPayload struct {
	State WeatherState `json:"state"`
}

// PersistenceFailedPayload is the payload of EventTypePersistenceFailed.
type PersistenceFailedPayload struct {
	Operation string `json:"operation"`
	Key       string `json:"key"`
	Error     string `json:"error"`
}
