package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
)

// CardSubscriptionRepository implements port.CardSubscriptionRepository using
// PostgreSQL.
type CardSubscriptionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCardSubscriptionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCardSubscriptionRepository(exec pgExecutor) *CardSubscriptionRepository {
	repo := &CardSubscriptionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CardSubscriptionRepository) WithTx(tx pgx.Tx) *CardSubscriptionRepository {
	if tx == nil {
		return r
	}
	return &CardSubscriptionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var _ port.CardSubscriptionRepository = (*CardSubscriptionRepository)(nil)

// Ensure inserts the subscription unless the (card, user) pair already holds
// one. An existing registration keeps its method and dates.
func (r *CardSubscriptionRepository) Ensure(ctx context.Context, subscription domain.CardSubscription) error {
	registeredAt := subscription.RegistrationUTCDate
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("memcheck.card_subscriptions").
		Columns("card_id", "user_id", "registration_utc_date", "registration_method", "last_notification_utc_date").
		Values(
			subscription.CardID,
			subscription.UserID,
			registeredAt,
			subscription.RegistrationMethod,
			subscription.LastNotificationUTCDate,
		).
		Suffix("ON CONFLICT (card_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert subscription sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

// ListForUser returns every subscription held by the user, oldest first.
func (r *CardSubscriptionRepository) ListForUser(ctx context.Context, userID string) ([]domain.CardSubscription, error) {
	stmt, args, err := r.builder.
		Select("card_id", "user_id", "registration_utc_date", "registration_method", "last_notification_utc_date").
		From("memcheck.card_subscriptions").
		Where(squirrel.Eq{"user_id": strings.TrimSpace(userID)}).
		OrderBy("registration_utc_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list subscriptions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	subscriptions := make([]domain.CardSubscription, 0)
	for rows.Next() {
		var subscription domain.CardSubscription
		if err := rows.Scan(
			&subscription.CardID,
			&subscription.UserID,
			&subscription.RegistrationUTCDate,
			&subscription.RegistrationMethod,
			&subscription.LastNotificationUTCDate,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subscriptions = append(subscriptions, subscription)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subscriptions, nil
}
