package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// anyArgs builds n match-anything argument expectations: pgxmock requires
// the expected argument count to equal the actual one, even when the test
// does not care about the values.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func testCard() domain.Card {
	return domain.Card{
		ID: "card-1",
		Content: domain.CardContent{
			FrontSide:  "What is a verb?",
			BackSide:   "An action word",
			LanguageID: "lang-en",
			TagIDs:     []string{"t1"},
		},
		EditorID:           "alice",
		VersionUTCDate:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		VersionDescription: "initial",
		VersionType:        domain.VersionTypeCreation,
	}
}

func TestCardRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCardRepository(mock)
	card := testCard()

	mock.ExpectExec(`INSERT INTO memcheck\.cards`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), card); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCardRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCardRepository(mock)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(cardColumns).AddRow(
		"card-1",
		"What is a verb?",
		"An action word",
		"",
		"",
		"lang-en",
		[]string{"t1"},
		[]string{"alice", "bob"},
		"alice",
		at,
		"initial",
		domain.VersionTypeCreation,
		nil,
	)

	mock.ExpectQuery(`SELECT .+ FROM memcheck\.cards WHERE id = \$1`).
		WithArgs("card-1").
		WillReturnRows(rows)

	card, err := repo.GetByID(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if card.Content.FrontSide != "What is a verb?" {
		t.Fatalf("front side = %q", card.Content.FrontSide)
	}
	if card.PreviousVersionID != nil {
		t.Fatalf("expected nil previous version id")
	}
	if !card.Content.Visibility.CanView("bob") {
		t.Fatalf("visibility must include bob")
	}
	if card.Content.Visibility.CanView("carol") {
		t.Fatalf("visibility must exclude carol")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCardRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCardRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM memcheck\.cards WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCardRepository_UpdateConditionalStaleToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCardRepository(mock)
	card := testCard()

	// The conditional update touches nothing, and the existence probe finds
	// the row: the caller's token is stale.
	mock.ExpectExec(`UPDATE memcheck\.cards SET`).
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM memcheck\.cards WHERE id = \$1`).
		WithArgs(card.ID).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	err = repo.UpdateConditional(context.Background(), card, nil)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCardRepository_UpdateConditionalMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCardRepository(mock)
	card := testCard()

	mock.ExpectExec(`UPDATE memcheck\.cards SET`).
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM memcheck\.cards WHERE id = \$1`).
		WithArgs(card.ID).
		WillReturnError(pgx.ErrNoRows)

	err = repo.UpdateConditional(context.Background(), card, nil)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCardRepository_DeleteConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCardRepository(mock)
	token := "snap-9"

	mock.ExpectExec(`DELETE FROM memcheck\.cards WHERE id = \$1 AND previous_version_id IS NOT DISTINCT FROM \$2`).
		WithArgs("card-1", &token).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.DeleteConditional(context.Background(), "card-1", &token); err != nil {
		t.Fatalf("DeleteConditional returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
