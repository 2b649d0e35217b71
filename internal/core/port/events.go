package port

import (
	"context"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

// EventPublisher publishes card lifecycle events after a version write
// commits. Publishing is best-effort telemetry; failures never roll back the
// write.
type EventPublisher interface {
	PublishCardVersionCreated(ctx context.Context, event domain.CardVersionCreatedEvent) error
	PublishCardDeleted(ctx context.Context, event domain.CardDeletedEvent) error
}
