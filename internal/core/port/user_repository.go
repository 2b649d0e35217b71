package port

import (
	"context"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

// UserRepository exposes read access to users for editor checks and name
// resolution.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetNamesByIDs resolves user ids to display names. Missing ids are
	// simply absent from the result; historical visibility entries may refer
	// to users deleted since.
	GetNamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// TagRepository exposes read access to tags for diff rendering.
type TagRepository interface {
	GetNamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}
