package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// CardRepository implements port.CardRepository using PostgreSQL.
type CardRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCardRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCardRepository(exec pgExecutor) *CardRepository {
	repo := &CardRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CardRepository) WithTx(tx pgx.Tx) *CardRepository {
	if tx == nil {
		return r
	}
	return &CardRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var _ port.CardRepository = (*CardRepository)(nil)

var cardColumns = []string{
	"id",
	"front_side",
	"back_side",
	"additional_info",
	"references_text",
	"language_id",
	"tag_ids",
	"users_with_view",
	"editor_id",
	"version_utc_date",
	"version_description",
	"version_type",
	"previous_version_id",
}

// Create inserts a new live card row.
func (r *CardRepository) Create(ctx context.Context, card domain.Card) error {
	query := r.builder.Insert("memcheck.cards").
		Columns(cardColumns...).
		Values(
			card.ID,
			card.Content.FrontSide,
			card.Content.BackSide,
			card.Content.AdditionalInfo,
			card.Content.References,
			card.Content.LanguageID,
			card.Content.TagIDs,
			card.Content.Visibility.UserIDs(),
			card.EditorID,
			card.VersionUTCDate,
			card.VersionDescription,
			card.VersionType,
			card.PreviousVersionID,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert card sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}

	return nil
}

// GetByID retrieves a live card by identifier.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	stmt, args, err := r.builder.
		Select(cardColumns...).
		From("memcheck.cards").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select card sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		card          domain.Card
		tagIDs        []string
		usersWithView []string
		previous      sql.NullString
	)

	if err := row.Scan(
		&card.ID,
		&card.Content.FrontSide,
		&card.Content.BackSide,
		&card.Content.AdditionalInfo,
		&card.Content.References,
		&card.Content.LanguageID,
		&tagIDs,
		&usersWithView,
		&card.EditorID,
		&card.VersionUTCDate,
		&card.VersionDescription,
		&card.VersionType,
		&previous,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}

	card.Content.TagIDs = tagIDs
	card.Content.Visibility = domain.VisibilityFromUserIDs(usersWithView)
	if previous.Valid {
		value := previous.String
		card.PreviousVersionID = &value
	}

	return &card, nil
}

// UpdateConditional swaps the live row's state, conditioned on the
// optimistic-concurrency token (the previous_version_id observed at read
// time). The condition is what keeps the version chain a single line under
// concurrent edits.
func (r *CardRepository) UpdateConditional(ctx context.Context, card domain.Card, expectedPreviousVersionID *string) error {
	stmt, args, err := r.builder.Update("memcheck.cards").
		Set("front_side", card.Content.FrontSide).
		Set("back_side", card.Content.BackSide).
		Set("additional_info", card.Content.AdditionalInfo).
		Set("references_text", card.Content.References).
		Set("language_id", card.Content.LanguageID).
		Set("tag_ids", card.Content.TagIDs).
		Set("users_with_view", card.Content.Visibility.UserIDs()).
		Set("editor_id", card.EditorID).
		Set("version_utc_date", card.VersionUTCDate).
		Set("version_description", card.VersionDescription).
		Set("version_type", card.VersionType).
		Set("previous_version_id", card.PreviousVersionID).
		Where(squirrel.Eq{"id": card.ID}).
		Where(squirrel.Expr("previous_version_id IS NOT DISTINCT FROM ?", expectedPreviousVersionID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update card sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return r.classifyMiss(ctx, card.ID)
	}

	return nil
}

// DeleteConditional removes the live row under the same token rule as
// UpdateConditional.
func (r *CardRepository) DeleteConditional(ctx context.Context, id string, expectedPreviousVersionID *string) error {
	stmt, args, err := r.builder.Delete("memcheck.cards").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("previous_version_id IS NOT DISTINCT FROM ?", expectedPreviousVersionID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete card sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id)
	}

	return nil
}

// classifyMiss distinguishes a stale token from a missing row after a
// conditional write touched nothing.
func (r *CardRepository) classifyMiss(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Select("1").
		From("memcheck.cards").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build card existence sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("check card existence: %w", err)
	}

	return repository.ErrVersionConflict
}
