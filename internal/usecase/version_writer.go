package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

var (
	// ErrCardNotFound indicates the card id is unknown or the card was deleted.
	ErrCardNotFound = errors.New("card not found")
	// ErrUserNotFound indicates the acting user id is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrVersionConflict indicates a concurrent edit won the race; the caller
	// should reload the card and retry.
	ErrVersionConflict = errors.New("card was modified concurrently")
	// ErrNoChanges indicates the proposed edit leaves every tracked field
	// unchanged.
	ErrNoChanges = errors.New("edit contains no changes")
	// ErrCardIDRequired indicates the card identifier is missing.
	ErrCardIDRequired = errors.New("card id is required")
)

// VersionTxFunc runs fn inside a single storage transaction, handing it
// repositories bound to that transaction. The snapshot insert and the live-row
// swap must commit or abort together.
type VersionTxFunc func(ctx context.Context, fn func(cards port.CardRepository, versions port.CardVersionRepository, subscriptions port.CardSubscriptionRepository) error) error

// VersionWriterMetrics captures telemetry hooks for version writes.
type VersionWriterMetrics interface {
	IncVersionCreated()
	IncVersionConflict()
	IncCardDeleted()
}

// VersionWriter creates immutable snapshots and advances live cards. Every
// edit pushes the pre-edit state into a new snapshot chained to the existing
// tail, then swaps the live row under an optimistic-concurrency token.
type VersionWriter struct {
	users   port.UserRepository
	tx      VersionTxFunc
	events  port.EventPublisher
	logger  *zap.Logger
	now     func() time.Time
	metrics VersionWriterMetrics
}

// NewVersionWriter constructs the version writer.
func NewVersionWriter(users port.UserRepository, tx VersionTxFunc, events port.EventPublisher) *VersionWriter {
	return &VersionWriter{
		users:  users,
		tx:     tx,
		events: events,
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// WithLogger attaches a structured logger for operational diagnostics.
func (w *VersionWriter) WithLogger(logger *zap.Logger) *VersionWriter {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithNow overrides the clock, primarily for deterministic testing.
func (w *VersionWriter) WithNow(now func() time.Time) *VersionWriter {
	if now != nil {
		w.now = now
	}
	return w
}

// WithMetrics wires telemetry observers for version writes.
func (w *VersionWriter) WithMetrics(metrics VersionWriterMetrics) *VersionWriter {
	if metrics != nil {
		w.metrics = metrics
	}
	return w
}

// CreateCardInput describes a brand new card.
type CreateCardInput struct {
	CreatorID          string
	Content            domain.CardContent
	VersionDescription string
	At                 time.Time
}

// CreateCard persists the first (creation) version of a card. The chain head
// stays nil until the first edit pushes a snapshot.
func (w *VersionWriter) CreateCard(ctx context.Context, input CreateCardInput) (*domain.Card, error) {
	creator, err := w.loadUser(ctx, input.CreatorID)
	if err != nil {
		return nil, err
	}

	if !input.Content.Visibility.CanView(creator.ID) {
		return nil, fmt.Errorf("creator %s: %w", creator.ID, domain.ErrEditorNotInVisibility)
	}

	at := input.At
	if at.IsZero() {
		at = w.now()
	}
	at = at.UTC()

	card := domain.Card{
		ID:                 uuid.NewString(),
		Content:            input.Content,
		EditorID:           creator.ID,
		VersionUTCDate:     at,
		VersionDescription: input.VersionDescription,
		VersionType:        domain.VersionTypeCreation,
	}

	err = w.tx(ctx, func(cards port.CardRepository, _ port.CardVersionRepository, subscriptions port.CardSubscriptionRepository) error {
		if err := cards.Create(ctx, card); err != nil {
			return fmt.Errorf("insert card: %w", err)
		}

		if creator.SubscribeToCardOnEdit {
			subscription := domain.CardSubscription{
				CardID:              card.ID,
				UserID:              creator.ID,
				RegistrationUTCDate: at,
				RegistrationMethod:  domain.RegistrationMethodOnEdit,
			}
			if err := subscriptions.Ensure(ctx, subscription); err != nil {
				return fmt.Errorf("ensure subscription: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if w.metrics != nil {
		w.metrics.IncVersionCreated()
	}

	w.logger.Info("card created",
		zap.String("card_id", card.ID),
		zap.String("creator_id", creator.ID),
	)

	return &card, nil
}

// CreateSnapshotInput describes an edit to an existing card.
type CreateSnapshotInput struct {
	CardID             string
	EditorID           string
	NewContent         domain.CardContent
	VersionDescription string
	// At stamps the new live version; zero means the writer's clock.
	At time.Time
	// ExpectedVersionToken is the live row's PreviousVersionID as observed by
	// the editor's read. The swap only commits while it is still current.
	ExpectedVersionToken *string
}

// CreateSnapshotResult reports the outcome of a committed edit.
type CreateSnapshotResult struct {
	Card          domain.Card
	SnapshotID    string
	ChangedFields []string
}

// CreateSnapshot snapshots the card's current state and advances the live row
// to the proposed content in a single conditional transaction.
func (w *VersionWriter) CreateSnapshot(ctx context.Context, input CreateSnapshotInput) (*CreateSnapshotResult, error) {
	cardID := strings.TrimSpace(input.CardID)
	if cardID == "" {
		return nil, ErrCardIDRequired
	}

	editor, err := w.loadUser(ctx, input.EditorID)
	if err != nil {
		return nil, err
	}

	if !input.NewContent.Visibility.CanView(editor.ID) {
		return nil, fmt.Errorf("editor %s: %w", editor.ID, domain.ErrEditorNotInVisibility)
	}

	at := input.At
	if at.IsZero() {
		at = w.now()
	}
	at = at.UTC()

	var result *CreateSnapshotResult

	err = w.tx(ctx, func(cards port.CardRepository, versions port.CardVersionRepository, subscriptions port.CardSubscriptionRepository) error {
		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("load card: %w", err)
		}

		if !tokensMatch(card.PreviousVersionID, input.ExpectedVersionToken) {
			return ErrVersionConflict
		}

		if card.Content.Equal(input.NewContent) {
			return ErrNoChanges
		}

		snapshot := domain.CardVersion{
			ID:                 uuid.NewString(),
			CardID:             card.ID,
			Content:            card.Content,
			EditorID:           card.EditorID,
			VersionUTCDate:     card.VersionUTCDate,
			VersionDescription: card.VersionDescription,
			VersionType:        card.VersionType,
			// Chain to the existing tail, not to the live row.
			PreviousVersionID: card.PreviousVersionID,
		}

		if err := versions.Insert(ctx, snapshot); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		updated := domain.Card{
			ID:                 card.ID,
			Content:            input.NewContent,
			EditorID:           editor.ID,
			VersionUTCDate:     at,
			VersionDescription: input.VersionDescription,
			VersionType:        domain.VersionTypeChanges,
			PreviousVersionID:  &snapshot.ID,
		}

		if err := cards.UpdateConditional(ctx, updated, input.ExpectedVersionToken); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrVersionConflict
			}
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("swap live card: %w", err)
		}

		if editor.SubscribeToCardOnEdit {
			subscription := domain.CardSubscription{
				CardID:              card.ID,
				UserID:              editor.ID,
				RegistrationUTCDate: at,
				RegistrationMethod:  domain.RegistrationMethodOnEdit,
			}
			if err := subscriptions.Ensure(ctx, subscription); err != nil {
				return fmt.Errorf("ensure subscription: %w", err)
			}
		}

		result = &CreateSnapshotResult{
			Card:          updated,
			SnapshotID:    snapshot.ID,
			ChangedFields: domain.ChangedFieldNames(updated.Content, snapshot.Content),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) && w.metrics != nil {
			w.metrics.IncVersionConflict()
		}
		return nil, err
	}

	if w.metrics != nil {
		w.metrics.IncVersionCreated()
	}

	w.publishVersionCreated(ctx, result)

	w.logger.Info("card version created",
		zap.String("card_id", cardID),
		zap.String("snapshot_id", result.SnapshotID),
		zap.String("editor_id", editor.ID),
		zap.Strings("changed_fields", result.ChangedFields),
	)

	return result, nil
}

// CreateDeletionSnapshotInput describes a card deletion.
type CreateDeletionSnapshotInput struct {
	CardID              string
	DeleterID           string
	DeletionDescription string
	At                  time.Time
}

// CreateDeletionSnapshot appends a terminal deletion snapshot capturing the
// card's final state and removes the live row. The deletion snapshot's
// visibility becomes authoritative for every later deletion query; no further
// edits are possible on the card id afterward.
func (w *VersionWriter) CreateDeletionSnapshot(ctx context.Context, input CreateDeletionSnapshotInput) (string, error) {
	cardID := strings.TrimSpace(input.CardID)
	if cardID == "" {
		return "", ErrCardIDRequired
	}

	deleter, err := w.loadUser(ctx, input.DeleterID)
	if err != nil {
		return "", err
	}

	at := input.At
	if at.IsZero() {
		at = w.now()
	}
	at = at.UTC()

	var snapshotID string
	var deletionVisibility domain.Visibility

	err = w.tx(ctx, func(cards port.CardRepository, versions port.CardVersionRepository, _ port.CardSubscriptionRepository) error {
		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("load card: %w", err)
		}

		if !card.Content.Visibility.CanView(deleter.ID) {
			return fmt.Errorf("deleter %s: %w", deleter.ID, domain.ErrEditorNotInVisibility)
		}

		snapshot := domain.CardVersion{
			ID:                 uuid.NewString(),
			CardID:             card.ID,
			Content:            card.Content,
			EditorID:           deleter.ID,
			VersionUTCDate:     at,
			VersionDescription: input.DeletionDescription,
			VersionType:        domain.VersionTypeDeletion,
			PreviousVersionID:  card.PreviousVersionID,
		}

		if err := versions.Insert(ctx, snapshot); err != nil {
			return fmt.Errorf("insert deletion snapshot: %w", err)
		}

		if err := cards.DeleteConditional(ctx, card.ID, card.PreviousVersionID); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrVersionConflict
			}
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("remove live card: %w", err)
		}

		snapshotID = snapshot.ID
		deletionVisibility = snapshot.Content.Visibility
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) && w.metrics != nil {
			w.metrics.IncVersionConflict()
		}
		return "", err
	}

	if w.metrics != nil {
		w.metrics.IncCardDeleted()
	}

	if w.events != nil {
		event := domain.CardDeletedEvent{
			EventID:             uuid.NewString(),
			CardID:              cardID,
			SnapshotID:          snapshotID,
			DeleterID:           deleter.ID,
			DeletedUTCDate:      at,
			DeletionDescription: input.DeletionDescription,
		}
		if err := w.events.PublishCardDeleted(ctx, event); err != nil {
			w.logger.Warn("failed to publish card deleted event", zap.String("card_id", cardID), zap.Error(err))
		}
	}

	w.logger.Info("card deleted",
		zap.String("card_id", cardID),
		zap.String("snapshot_id", snapshotID),
		zap.String("deleter_id", deleter.ID),
		zap.Bool("restricted", !deletionVisibility.IsPublic()),
	)

	return snapshotID, nil
}

func (w *VersionWriter) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserNotFound
	}

	user, err := w.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.DeletedUTCDate != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (w *VersionWriter) publishVersionCreated(ctx context.Context, result *CreateSnapshotResult) {
	if w.events == nil {
		return
	}

	event := domain.CardVersionCreatedEvent{
		EventID:            uuid.NewString(),
		CardID:             result.Card.ID,
		SnapshotID:         result.SnapshotID,
		EditorID:           result.Card.EditorID,
		VersionUTCDate:     result.Card.VersionUTCDate,
		VersionDescription: result.Card.VersionDescription,
		ChangedFields:      result.ChangedFields,
	}
	if err := w.events.PublishCardVersionCreated(ctx, event); err != nil {
		w.logger.Warn("failed to publish card version event", zap.String("card_id", result.Card.ID), zap.Error(err))
	}
}

func tokensMatch(current, expected *string) bool {
	if current == nil || expected == nil {
		return current == nil && expected == nil
	}
	return *current == *expected
}
