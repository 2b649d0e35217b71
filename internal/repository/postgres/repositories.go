package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Cards         *CardRepository
	Versions      *CardVersionRepository
	Users         *UserRepository
	Tags          *TagRepository
	Subscriptions *CardSubscriptionRepository

	pool *pgxpool.Pool
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Cards:         NewCardRepository(pool),
		Versions:      NewCardVersionRepository(pool),
		Users:         NewUserRepository(pool),
		Tags:          NewTagRepository(pool),
		Subscriptions: NewCardSubscriptionRepository(pool),
		pool:          pool,
	}
}

// WithTx returns repository instances bound to the supplied transaction.
func (r *Repositories) WithTx(tx pgx.Tx) *Repositories {
	if tx == nil {
		return r
	}
	return &Repositories{
		Cards:         r.Cards.WithTx(tx),
		Versions:      r.Versions.WithTx(tx),
		Users:         r.Users.WithTx(tx),
		Tags:          r.Tags.WithTx(tx),
		Subscriptions: r.Subscriptions.WithTx(tx),
		pool:          r.pool,
	}
}

// WithinTx runs fn inside a single transaction, committing on success and
// rolling back on error. The snapshot insert and live-row swap ride in here.
func (r *Repositories) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(r.WithTx(tx)); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && rollbackErr != pgx.ErrTxClosed {
			return fmt.Errorf("rollback tx after %w: %v", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
