package port

import (
	"context"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

// CardSubscriptionRepository persists card subscriptions.
type CardSubscriptionRepository interface {
	// Ensure inserts the subscription unless one already exists for the
	// (card, user) pair. An existing row is left untouched.
	Ensure(ctx context.Context, subscription domain.CardSubscription) error
	ListForUser(ctx context.Context, userID string) ([]domain.CardSubscription, error)
}
