package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

var _ port.EventPublisher = (*EventPublisher)(nil)

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	CardID    string           `json:"card_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, cardID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		CardID:    cardID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(cardID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", eventType, ctx.Err())
	}
}

// PublishCardVersionCreated publishes memcheck.card.version.created events.
func (p *EventPublisher) PublishCardVersionCreated(ctx context.Context, event domain.CardVersionCreatedEvent) error {
	payload := map[string]any{
		"card_id":             event.CardID,
		"snapshot_id":         event.SnapshotID,
		"editor_id":           event.EditorID,
		"version_utc_date":    event.VersionUTCDate,
		"version_description": event.VersionDescription,
		"changed_fields":      event.ChangedFields,
		"metadata":            event.Metadata,
	}
	return p.publish(ctx, event.EventID, "card.version.created", event.CardID, event.VersionUTCDate, payload)
}

// PublishCardDeleted publishes memcheck.card.deleted events.
func (p *EventPublisher) PublishCardDeleted(ctx context.Context, event domain.CardDeletedEvent) error {
	payload := map[string]any{
		"card_id":              event.CardID,
		"snapshot_id":          event.SnapshotID,
		"deleter_id":           event.DeleterID,
		"deleted_utc_date":     event.DeletedUTCDate,
		"deletion_description": event.DeletionDescription,
		"metadata":             event.Metadata,
	}
	return p.publish(ctx, event.EventID, "card.deleted", event.CardID, event.DeletedUTCDate, payload)
}
