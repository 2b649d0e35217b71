package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// CardVersionRepository persists immutable snapshots in PostgreSQL. The
// card_versions table is append-only: rows are inserted exactly once and
// never updated or deleted, whatever happens to the owning card.
type CardVersionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCardVersionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCardVersionRepository(exec pgExecutor) *CardVersionRepository {
	repo := &CardVersionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CardVersionRepository) WithTx(tx pgx.Tx) *CardVersionRepository {
	if tx == nil {
		return r
	}
	return &CardVersionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var _ port.CardVersionRepository = (*CardVersionRepository)(nil)

var versionColumns = []string{
	"id",
	"card_id",
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

// Insert appends a snapshot row.
func (r *CardVersionRepository) Insert(ctx context.Context, version domain.CardVersion) error {
	query := r.builder.Insert("memcheck.card_versions").
		Columns(versionColumns...).
		Values(
			version.ID,
			version.CardID,
			version.Content.FrontSide,
			version.Content.BackSide,
			version.Content.AdditionalInfo,
			version.Content.References,
			version.Content.LanguageID,
			version.Content.TagIDs,
			version.Content.Visibility.UserIDs(),
			version.EditorID,
			version.VersionUTCDate,
			version.VersionDescription,
			version.VersionType,
			version.PreviousVersionID,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert card version sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert card version: %w", err)
	}

	return nil
}

// GetByID retrieves a snapshot by identifier.
func (r *CardVersionRepository) GetByID(ctx context.Context, id string) (*domain.CardVersion, error) {
	stmt, args, err := r.builder.
		Select(versionColumns...).
		From("memcheck.card_versions").
		Where(squirrel.Eq{"id": strings.TrimSpace(id)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select card version sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetDeletionByCardID retrieves the terminal deletion snapshot for a card.
func (r *CardVersionRepository) GetDeletionByCardID(ctx context.Context, cardID string) (*domain.CardVersion, error) {
	stmt, args, err := r.builder.
		Select(versionColumns...).
		From("memcheck.card_versions").
		Where(squirrel.Eq{
			"card_id":      strings.TrimSpace(cardID),
			"version_type": domain.VersionTypeDeletion,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select deletion snapshot sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *CardVersionRepository) scanOne(row pgx.Row) (*domain.CardVersion, error) {
	var (
		version       domain.CardVersion
		tagIDs        []string
		usersWithView []string
		previous      sql.NullString
	)

	if err := row.Scan(
		&version.ID,
		&version.CardID,
		&version.Content.FrontSide,
		&version.Content.BackSide,
		&version.Content.AdditionalInfo,
		&version.Content.References,
		&version.Content.LanguageID,
		&tagIDs,
		&usersWithView,
		&version.EditorID,
		&version.VersionUTCDate,
		&version.VersionDescription,
		&version.VersionType,
		&previous,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan card version: %w", err)
	}

	version.Content.TagIDs = tagIDs
	version.Content.Visibility = domain.VisibilityFromUserIDs(usersWithView)
	if previous.Valid {
		value := previous.String
		version.PreviousVersionID = &value
	}

	return &version, nil
}
