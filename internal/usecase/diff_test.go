package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

func newDiffServiceForStore(store *memStore) *DiffService {
	return NewDiffService(store.versionRepo(), store.cardRepo(), store.userRepo(), store.tagRepo())
}

func TestDiffIdenticalContentsIsEmpty(t *testing.T) {
	store := newMemStore()
	service := newDiffServiceForStore(store)

	content := publicContent("Q1", "A1")
	content.TagIDs = []string{"t1"}

	result, err := service.Diff(context.Background(), content, content, "anyone")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if len(result.Changes) != 0 {
		t.Fatalf("diffing a version against itself must be empty, got %v", result.Changes)
	}
}

func TestDiffScalarOrientation(t *testing.T) {
	store := newMemStore()
	service := newDiffServiceForStore(store)

	current := publicContent("Q2", "A1")
	original := publicContent("Q1", "A1")

	result, err := service.Diff(context.Background(), current, original, "anyone")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	change, ok := result.Changes[domain.FieldFrontSide]
	if !ok {
		t.Fatalf("expected a FrontSide change, got %v", result.Changes)
	}
	if change.Current != "Q2" || change.Original != "Q1" {
		t.Fatalf("change orientation wrong: %+v", change)
	}
	if len(result.Changes) != 1 {
		t.Fatalf("unchanged fields must be absent, got %v", result.Changes)
	}
}

func TestDiffSetOrderIndependent(t *testing.T) {
	store := newMemStore()
	service := newDiffServiceForStore(store)

	current := publicContent("Q1", "A1")
	current.TagIDs = []string{"t1", "t2"}
	original := publicContent("Q1", "A1")
	original.TagIDs = []string{"t2", "t1"}

	result, err := service.Diff(context.Background(), current, original, "anyone")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if len(result.Changes) != 0 {
		t.Fatalf("reordered sets must not diff, got %v", result.Changes)
	}
}

func TestDiffRendersTagNamesSorted(t *testing.T) {
	store := newMemStore()
	store.tagNames["t1"] = "grammar"
	store.tagNames["t2"] = "verbs"
	service := newDiffServiceForStore(store)

	current := publicContent("Q1", "A1")
	current.TagIDs = []string{"t1"}
	original := publicContent("Q1", "A1")
	original.TagIDs = []string{"t2", "t1"}

	result, err := service.Diff(context.Background(), current, original, "anyone")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	change, ok := result.Changes[domain.FieldTags]
	if !ok {
		t.Fatalf("expected a Tags change, got %v", result.Changes)
	}
	if change.Current != "grammar" {
		t.Fatalf("current tags = %q, want %q", change.Current, "grammar")
	}
	if change.Original != "grammar,verbs" {
		t.Fatalf("original tags = %q, want %q", change.Original, "grammar,verbs")
	}
}

func TestDiffVisibilityKeepsRawIDForGhostUsers(t *testing.T) {
	store := newMemStore()
	store.addUser("alice", "Alice", false)
	service := newDiffServiceForStore(store)

	current := publicContent("Q1", "A1")
	current.Visibility = domain.VisibilityFromUserIDs([]string{"alice"})
	original := publicContent("Q1", "A1")
	original.Visibility = domain.VisibilityFromUserIDs([]string{"alice", "ghost-7"})

	result, err := service.Diff(context.Background(), current, original, "alice")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	change, ok := result.Changes[domain.FieldUsersWithView]
	if !ok {
		t.Fatalf("expected a UsersWithView change, got %v", result.Changes)
	}
	if change.Current != "Alice" {
		t.Fatalf("current visibility = %q, want %q", change.Current, "Alice")
	}
	// The removed user no longer exists; the raw id stands in for the name.
	if change.Original != "Alice,ghost-7" {
		t.Fatalf("original visibility = %q, want %q", change.Original, "Alice,ghost-7")
	}
}

func TestDiffRequiresVisibilityOnBothVersions(t *testing.T) {
	store := newMemStore()
	service := newDiffServiceForStore(store)

	current := publicContent("Q1", "A1")
	original := publicContent("Q1", "A2")
	original.Visibility = domain.VisibilityFromUserIDs([]string{"alice"})

	if _, err := service.Diff(context.Background(), current, original, "bob"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestDiffUsesNameCacheBeforeRepository(t *testing.T) {
	store := newMemStore()
	cache := newStubNameCache()
	cache.names["alice"] = "CachedAlice"

	service := newDiffServiceForStore(store).WithNameCache(cache, 0)

	current := publicContent("Q1", "A1")
	current.Visibility = domain.VisibilityFromUserIDs([]string{"alice"})
	original := publicContent("Q1", "A1")

	result, err := service.Diff(context.Background(), current, original, "alice")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	change := result.Changes[domain.FieldUsersWithView]
	if change.Current != "CachedAlice" {
		t.Fatalf("cached name must win, got %q", change.Current)
	}
	if cache.getCalls == 0 {
		t.Fatalf("cache must be consulted")
	}
}

func TestDiffCacheFailureFallsBackToRepository(t *testing.T) {
	store := newMemStore()
	store.addUser("alice", "Alice", false)
	cache := newStubNameCache()
	cache.getErr = errors.New("connection refused")

	service := newDiffServiceForStore(store).WithNameCache(cache, 0)

	current := publicContent("Q1", "A1")
	current.Visibility = domain.VisibilityFromUserIDs([]string{"alice"})
	original := publicContent("Q1", "A1")

	result, err := service.Diff(context.Background(), current, original, "alice")
	if err != nil {
		t.Fatalf("cache failures must not surface, got %v", err)
	}
	if result.Changes[domain.FieldUsersWithView].Current != "Alice" {
		t.Fatalf("repository name must be used on cache failure")
	}
	if cache.setCalls == 0 {
		t.Fatalf("resolved names must hydrate the cache")
	}
}

func TestDiffSnapshotsUnknownID(t *testing.T) {
	store := newMemStore()
	service := newDiffServiceForStore(store)

	if _, err := service.DiffSnapshots(context.Background(), "missing-a", "missing-b", "anyone"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestDiffAgainstLiveRejectsForeignSnapshot(t *testing.T) {
	store := newMemStore()
	seedChain(store)
	store.versions["other-snap"] = domain.CardVersion{
		ID:          "other-snap",
		CardID:      "card-2",
		Content:     publicContent("X", "Y"),
		VersionType: domain.VersionTypeCreation,
	}

	service := newDiffServiceForStore(store)

	if _, err := service.DiffAgainstLive(context.Background(), "card-1", "other-snap", "anyone"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("snapshot of another card must not diff, got %v", err)
	}
}

func TestDiffAgainstLive(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	service := newDiffServiceForStore(store)

	result, err := service.DiffAgainstLive(context.Background(), "card-1", "snap-1", "anyone")
	if err != nil {
		t.Fatalf("DiffAgainstLive returned error: %v", err)
	}

	change, ok := result.Changes[domain.FieldFrontSide]
	if !ok {
		t.Fatalf("expected a FrontSide change, got %v", result.Changes)
	}
	if change.Current != "Q3" || change.Original != "Q1" {
		t.Fatalf("change orientation wrong: %+v", change)
	}
}
