package port

import (
	"context"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

// CardVersionRepository persists immutable card version snapshots. Rows are
// append-only; nothing updates or deletes them.
type CardVersionRepository interface {
	Insert(ctx context.Context, version domain.CardVersion) error
	GetByID(ctx context.Context, id string) (*domain.CardVersion, error)
	// GetDeletionByCardID returns the terminal deletion snapshot for a card,
	// or repository.ErrNotFound while the card is still alive.
	GetDeletionByCardID(ctx context.Context, cardID string) (*domain.CardVersion, error)
}
