package port

import (
	"context"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

// CardRepository exposes persistence behavior for live card rows.
type CardRepository interface {
	Create(ctx context.Context, card domain.Card) error
	GetByID(ctx context.Context, id string) (*domain.Card, error)
	// UpdateConditional replaces the live row only while its
	// previous_version_id still equals expectedPreviousVersionID. A stale
	// token yields repository.ErrVersionConflict; a missing row yields
	// repository.ErrNotFound.
	UpdateConditional(ctx context.Context, card domain.Card, expectedPreviousVersionID *string) error
	// DeleteConditional removes the live row under the same token rule as
	// UpdateConditional.
	DeleteConditional(ctx context.Context, id string, expectedPreviousVersionID *string) error
}
