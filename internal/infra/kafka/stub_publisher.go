package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

var _ port.EventPublisher = (*StubPublisher)(nil)

func (p *StubPublisher) logEvent(eventType, cardID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("card_id", cardID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishCardVersionCreated logs card.version.created events.
func (p *StubPublisher) PublishCardVersionCreated(_ context.Context, event domain.CardVersionCreatedEvent) error {
	payload := map[string]any{
		"card_id":             event.CardID,
		"snapshot_id":         event.SnapshotID,
		"editor_id":           event.EditorID,
		"version_utc_date":    event.VersionUTCDate,
		"version_description": event.VersionDescription,
		"changed_fields":      event.ChangedFields,
	}
	p.logEvent("card.version.created", event.CardID, event.VersionUTCDate, payload)
	return nil
}

// PublishCardDeleted logs card.deleted events.
func (p *StubPublisher) PublishCardDeleted(_ context.Context, event domain.CardDeletedEvent) error {
	payload := map[string]any{
		"card_id":              event.CardID,
		"snapshot_id":          event.SnapshotID,
		"deleter_id":           event.DeleterID,
		"deleted_utc_date":     event.DeletedUTCDate,
		"deletion_description": event.DeletionDescription,
	}
	p.logEvent("card.deleted", event.CardID, event.DeletedUTCDate, payload)
	return nil
}
