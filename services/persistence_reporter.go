package services

import (
	"context"

	"github.com/NomadCrew/climapro-backend/internal/events"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/repository"
	"github.com/NomadCrew/climapro-backend/types"
	"go.uber.org/zap"
)

// PersistenceReporter turns absorbed storage failures into
// STORAGE_PERSISTENCE_FAILED events on the state topic.
type PersistenceReporter struct {
	publisher types.EventPublisher
	log       *zap.SugaredLogger
}

var _ repository.FailureReporter = (*PersistenceReporter)(nil)

func NewPersistenceReporter(publisher types.EventPublisher) *PersistenceReporter {
	return &PersistenceReporter{
		publisher: publisher,
		log:       logger.GetLogger().Named("persistence_reporter"),
	}
}

func (r *PersistenceReporter) ReportPersistenceFailure(ctx context.Context, operation, key string, err error) {
	payload := types.PersistenceFailedPayload{Operation: operation, Key: key}
	if err != nil {
		payload.Error = err.Error()
	}
	event, buildErr := events.NewEvent(types.EventTypePersistenceFailed, types.StateTopic, "repository", payload)
	if buildErr != nil {
		r.log.Errorw("Failed to build persistence event", "error", buildErr)
		return
	}
	// The failing request may already be cancelled; the event should still go out.
	if pubErr := r.publisher.Publish(context.WithoutCancel(ctx), types.StateTopic, event); pubErr != nil {
		r.log.Warnw("Failed to publish persistence failure", "operation", operation, "key", key, "error", pubErr)
	}
}
