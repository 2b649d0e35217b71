package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// ErrAccessDenied indicates the requesting user fails the visibility check of
// the requested version.
var ErrAccessDenied = errors.New("user may not view this card version")

// ErrBrokenVersionChain indicates a cycle or dangling reference in a card's
// version chain. Chains are append-only and singly linked; this is a storage
// defect, not a caller error.
var ErrBrokenVersionChain = errors.New("card version chain is broken")

// VersionDescriptor annotates one node of a card's version chain.
type VersionDescriptor struct {
	// SnapshotID is empty for the live (newest) node.
	SnapshotID         string
	CardID             string
	EditorID           string
	VersionUTCDate     time.Time
	VersionDescription string
	VersionType        domain.VersionType
	Content            domain.CardContent
	// ChangedFieldNames lists the fields this version changed relative to its
	// predecessor, sorted. For the creation node it lists every field holding
	// non-default content. Nil for a boundary-padding node whose predecessor
	// was not loaded.
	ChangedFieldNames []string
}

// HistoryService walks version chains backward and annotates each step with
// its changed-field set. Reads only; safe to serve concurrently with writes.
type HistoryService struct {
	cards    port.CardRepository
	versions port.CardVersionRepository
	logger   *zap.Logger
}

// NewHistoryService constructs the history reader.
func NewHistoryService(cards port.CardRepository, versions port.CardVersionRepository) *HistoryService {
	return &HistoryService{
		cards:    cards,
		versions: versions,
		logger:   zap.NewNop(),
	}
}

// WithLogger attaches a structured logger.
func (s *HistoryService) WithLogger(logger *zap.Logger) *HistoryService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// GetHistory returns every version of the card, newest first, in chain order.
// The walk starts at the live row, or at the terminal deletion snapshot once
// the card is deleted. Ordering follows the chain, never wall-clock dates.
func (s *HistoryService) GetHistory(ctx context.Context, cardID, requestingUserID string) ([]VersionDescriptor, error) {
	nodes, err := s.walkChain(ctx, cardID, nil)
	if err != nil {
		return nil, err
	}

	if !nodes[0].Content.Visibility.CanView(requestingUserID) {
		return nil, ErrAccessDenied
	}

	return annotate(nodes, false), nil
}

// GetHistorySince returns the versions stamped at or after cutoff, plus
// exactly one older node when one exists. The padding node lets the oldest
// in-range version diff against a real predecessor instead of being reported
// as a pseudo-creation.
func (s *HistoryService) GetHistorySince(ctx context.Context, cardID, requestingUserID string, cutoff time.Time) ([]VersionDescriptor, error) {
	cutoff = cutoff.UTC()
	nodes, err := s.walkChain(ctx, cardID, func(collected []chainNode) bool {
		// Stop once one node older than the cutoff has been collected.
		last := collected[len(collected)-1]
		return last.VersionUTCDate.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}

	if !nodes[0].Content.Visibility.CanView(requestingUserID) {
		return nil, ErrAccessDenied
	}

	padded := len(nodes) > 0 && nodes[len(nodes)-1].VersionUTCDate.Before(cutoff)
	return annotate(nodes, padded), nil
}

// chainNode is the uniform view of a live row or a snapshot during a walk.
type chainNode struct {
	SnapshotID         string
	CardID             string
	EditorID           string
	VersionUTCDate     time.Time
	VersionDescription string
	VersionType        domain.VersionType
	Content            domain.CardContent
	PreviousVersionID  *string
}

// walkChain loads the chain head and follows PreviousVersionID until nil or
// until stop reports the collected prefix is sufficient.
func (s *HistoryService) walkChain(ctx context.Context, cardID string, stop func([]chainNode) bool) ([]chainNode, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, ErrCardIDRequired
	}

	head, err := s.loadHead(ctx, cardID)
	if err != nil {
		return nil, err
	}

	nodes := []chainNode{*head}
	seen := map[string]struct{}{}
	if head.SnapshotID != "" {
		seen[head.SnapshotID] = struct{}{}
	}

	next := head.PreviousVersionID
	for next != nil {
		if stop != nil && stop(nodes) {
			break
		}

		if _, dup := seen[*next]; dup {
			return nil, fmt.Errorf("card %s: cycle at version %s: %w", cardID, *next, ErrBrokenVersionChain)
		}
		seen[*next] = struct{}{}

		version, err := s.versions.GetByID(ctx, *next)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("card %s: dangling reference %s: %w", cardID, *next, ErrBrokenVersionChain)
			}
			return nil, fmt.Errorf("load version %s: %w", *next, err)
		}

		nodes = append(nodes, chainNode{
			SnapshotID:         version.ID,
			CardID:             version.CardID,
			EditorID:           version.EditorID,
			VersionUTCDate:     version.VersionUTCDate,
			VersionDescription: version.VersionDescription,
			VersionType:        version.VersionType,
			Content:            version.Content,
			PreviousVersionID:  version.PreviousVersionID,
		})
		next = version.PreviousVersionID
	}

	return nodes, nil
}

func (s *HistoryService) loadHead(ctx context.Context, cardID string) (*chainNode, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err == nil {
		return &chainNode{
			CardID:             card.ID,
			EditorID:           card.EditorID,
			VersionUTCDate:     card.VersionUTCDate,
			VersionDescription: card.VersionDescription,
			VersionType:        card.VersionType,
			Content:            card.Content,
			PreviousVersionID:  card.PreviousVersionID,
		}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load card: %w", err)
	}

	// No live row: the chain head is the terminal deletion snapshot.
	deletion, err := s.versions.GetDeletionByCardID(ctx, cardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("load deletion snapshot: %w", err)
	}

	return &chainNode{
		SnapshotID:         deletion.ID,
		CardID:             deletion.CardID,
		EditorID:           deletion.EditorID,
		VersionUTCDate:     deletion.VersionUTCDate,
		VersionDescription: deletion.VersionDescription,
		VersionType:        deletion.VersionType,
		Content:            deletion.Content,
		PreviousVersionID:  deletion.PreviousVersionID,
	}, nil
}

// annotate computes the changed-field set of each node against its successor
// in the slice (its chain predecessor). When padded is true the final node's
// own predecessor was not loaded and its set stays nil unless it is the true
// creation node.
func annotate(nodes []chainNode, padded bool) []VersionDescriptor {
	descriptors := make([]VersionDescriptor, 0, len(nodes))
	for i, node := range nodes {
		descriptor := VersionDescriptor{
			SnapshotID:         node.SnapshotID,
			CardID:             node.CardID,
			EditorID:           node.EditorID,
			VersionUTCDate:     node.VersionUTCDate,
			VersionDescription: node.VersionDescription,
			VersionType:        node.VersionType,
			Content:            node.Content,
		}

		switch {
		case i < len(nodes)-1:
			descriptor.ChangedFieldNames = domain.ChangedFieldNames(node.Content, nodes[i+1].Content)
		case node.PreviousVersionID == nil:
			// Oldest node is the creation version: everything present is new.
			descriptor.ChangedFieldNames = domain.NonDefaultFieldNames(node.Content)
		case padded:
			// Boundary-padding node; its predecessor was deliberately not
			// loaded, so no diff is reported for it.
		}

		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}
