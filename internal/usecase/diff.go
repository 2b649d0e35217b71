package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// FieldChange carries the two values of a field that differs between the
// compared versions.
type FieldChange struct {
	Current  string
	Original string
}

// DiffResult maps field names to their changes. A field absent from Changes
// is unchanged; history annotations rely on this contract.
type DiffResult struct {
	Changes map[string]FieldChange
}

// ChangedFieldNames lists the differing fields, sorted.
func (r DiffResult) ChangedFieldNames() []string {
	names := make([]string, 0, len(r.Changes))
	for name := range r.Changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DiffMetrics captures telemetry hooks for diff computations.
type DiffMetrics interface {
	IncDiffComputed()
}

// DiffService computes field-level differences between two card versions.
// Scalar fields compare by exact value, tag and visibility sets compare
// order-independently. Set-valued fields render as sorted, comma-joined name
// lists, resolving ids to names even for users deleted since.
type DiffService struct {
	versions  port.CardVersionRepository
	cards     port.CardRepository
	users     port.UserRepository
	tags      port.TagRepository
	nameCache port.UserNameCache
	cacheTTL  time.Duration
	logger    *zap.Logger
	metrics   DiffMetrics
}

// NewDiffService constructs the diff engine.
func NewDiffService(versions port.CardVersionRepository, cards port.CardRepository, users port.UserRepository, tags port.TagRepository) *DiffService {
	return &DiffService{
		versions: versions,
		cards:    cards,
		users:    users,
		tags:     tags,
		cacheTTL: 15 * time.Minute,
		logger:   zap.NewNop(),
	}
}

// WithLogger attaches a structured logger.
func (s *DiffService) WithLogger(logger *zap.Logger) *DiffService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNameCache wires a cache for user display names, consulted before the
// user repository when rendering visibility changes.
func (s *DiffService) WithNameCache(cache port.UserNameCache, ttl time.Duration) *DiffService {
	s.nameCache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithMetrics wires telemetry observers.
func (s *DiffService) WithMetrics(metrics DiffMetrics) *DiffService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// Diff compares two version contents for the requesting user. Both versions
// must be visible to the user; comparing a version to itself yields an empty
// result.
func (s *DiffService) Diff(ctx context.Context, current, original domain.CardContent, requestingUserID string) (DiffResult, error) {
	if !current.Visibility.CanView(requestingUserID) || !original.Visibility.CanView(requestingUserID) {
		return DiffResult{}, ErrAccessDenied
	}

	result := DiffResult{Changes: map[string]FieldChange{}}

	originalFields := original.Fields()
	for i, field := range current.Fields() {
		originalField := originalFields[i]
		if field.Equal(originalField) {
			continue
		}

		change, err := s.renderChange(ctx, field, originalField)
		if err != nil {
			return DiffResult{}, err
		}
		result.Changes[field.Name] = change
	}

	if s.metrics != nil {
		s.metrics.IncDiffComputed()
	}

	return result, nil
}

// DiffSnapshots loads two snapshots by id and compares them.
func (s *DiffService) DiffSnapshots(ctx context.Context, currentID, originalID, requestingUserID string) (DiffResult, error) {
	current, err := s.loadSnapshot(ctx, currentID)
	if err != nil {
		return DiffResult{}, err
	}
	original, err := s.loadSnapshot(ctx, originalID)
	if err != nil {
		return DiffResult{}, err
	}
	return s.Diff(ctx, current.Content, original.Content, requestingUserID)
}

// DiffAgainstLive compares the live card state with one of its snapshots.
func (s *DiffService) DiffAgainstLive(ctx context.Context, cardID, originalID, requestingUserID string) (DiffResult, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return DiffResult{}, ErrCardNotFound
		}
		return DiffResult{}, fmt.Errorf("load card: %w", err)
	}

	original, err := s.loadSnapshot(ctx, originalID)
	if err != nil {
		return DiffResult{}, err
	}
	if original.CardID != card.ID {
		return DiffResult{}, ErrCardNotFound
	}

	return s.Diff(ctx, card.Content, original.Content, requestingUserID)
}

func (s *DiffService) loadSnapshot(ctx context.Context, id string) (*domain.CardVersion, error) {
	version, err := s.versions.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("load version %s: %w", id, err)
	}
	return version, nil
}

// renderChange turns a differing field pair into its displayable values.
func (s *DiffService) renderChange(ctx context.Context, current, original domain.Field) (FieldChange, error) {
	if current.Kind == domain.FieldKindScalar {
		return FieldChange{Current: current.Scalar, Original: original.Scalar}, nil
	}

	var resolve func(context.Context, []string) (map[string]string, error)
	switch current.Name {
	case domain.FieldTags:
		resolve = s.tags.GetNamesByIDs
	case domain.FieldUsersWithView:
		resolve = s.resolveUserNames
	default:
		return FieldChange{}, fmt.Errorf("no name resolver for set field %s", current.Name)
	}

	ids := make([]string, 0, len(current.Set)+len(original.Set))
	ids = append(ids, current.Set...)
	ids = append(ids, original.Set...)

	names, err := resolve(ctx, ids)
	if err != nil {
		return FieldChange{}, fmt.Errorf("resolve %s names: %w", current.Name, err)
	}

	return FieldChange{
		Current:  joinNames(current.Set, names),
		Original: joinNames(original.Set, names),
	}, nil
}

// resolveUserNames consults the name cache first and falls back to the user
// repository, hydrating the cache on the way out. Cache failures degrade to a
// repository read, never to an error.
func (s *DiffService) resolveUserNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	missed := map[string]struct{}{}
	var misses []string

	for _, id := range ids {
		if _, ok := names[id]; ok {
			continue
		}
		if _, ok := missed[id]; ok {
			continue
		}
		missed[id] = struct{}{}
		if s.nameCache == nil {
			misses = append(misses, id)
			continue
		}
		name, err := s.nameCache.GetUserName(ctx, id)
		if err == nil {
			names[id] = name
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("user name cache lookup failed", zap.String("user_id", id), zap.Error(err))
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return names, nil
	}

	resolved, err := s.users.GetNamesByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}

	for id, name := range resolved {
		names[id] = name
		if s.nameCache != nil {
			if err := s.nameCache.SetUserName(ctx, id, name, s.cacheTTL); err != nil {
				s.logger.Warn("user name cache write failed", zap.String("user_id", id), zap.Error(err))
			}
		}
	}

	return names, nil
}

// joinNames maps ids through the resolved names, keeping the raw id when a
// name is unknown, and renders a sorted comma-joined list.
func joinNames(ids []string, names map[string]string) string {
	rendered := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			rendered = append(rendered, name)
			continue
		}
		rendered = append(rendered, id)
	}
	sort.Strings(rendered)
	return strings.Join(rendered, ",")
}
