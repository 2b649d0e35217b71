package port

import (
	"context"
	"time"
)

// UserNameCache caches user display names for diff rendering. A miss is
// reported as repository.ErrNotFound; lookup failures fall back to the
// primary store.
type UserNameCache interface {
	GetUserName(ctx context.Context, userID string) (string, error)
	SetUserName(ctx context.Context, userID, name string, ttl time.Duration) error
}
