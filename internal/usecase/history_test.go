package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
)

// seedChain builds card-1 with three versions: a creation snapshot (Q1,
// January), an edit snapshot (Q2, February) and the live row (Q3, March).
func seedChain(store *memStore) {
	s1 := "snap-1"
	s2 := "snap-2"

	store.versions[s1] = domain.CardVersion{
		ID:                 s1,
		CardID:             "card-1",
		Content:            publicContent("Q1", "A1"),
		EditorID:           "alice",
		VersionUTCDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		VersionDescription: "initial",
		VersionType:        domain.VersionTypeCreation,
	}
	store.versions[s2] = domain.CardVersion{
		ID:                 s2,
		CardID:             "card-1",
		Content:            publicContent("Q2", "A1"),
		EditorID:           "bob",
		VersionUTCDate:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		VersionDescription: "reworded",
		VersionType:        domain.VersionTypeChanges,
		PreviousVersionID:  &s1,
	}
	store.cards["card-1"] = domain.Card{
		ID:                 "card-1",
		Content:            publicContent("Q3", "A1"),
		EditorID:           "carol",
		VersionUTCDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		VersionDescription: "reworded again",
		VersionType:        domain.VersionTypeChanges,
		PreviousVersionID:  &s2,
	}
}

func TestGetHistoryWalksChainNewestFirst(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	descriptors, err := service.GetHistory(context.Background(), "card-1", "anyone")
	if err != nil {
		t.Fatalf("GetHistory returned error: %v", err)
	}

	if len(descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descriptors))
	}

	if descriptors[0].SnapshotID != "" {
		t.Fatalf("live node must have an empty snapshot id, got %q", descriptors[0].SnapshotID)
	}
	if descriptors[0].Content.FrontSide != "Q3" || descriptors[1].Content.FrontSide != "Q2" || descriptors[2].Content.FrontSide != "Q1" {
		t.Fatalf("descriptors out of chain order")
	}

	if want := []string{domain.FieldFrontSide}; !reflect.DeepEqual(descriptors[0].ChangedFieldNames, want) {
		t.Fatalf("live node changed fields = %v, want %v", descriptors[0].ChangedFieldNames, want)
	}
	if want := []string{domain.FieldFrontSide}; !reflect.DeepEqual(descriptors[1].ChangedFieldNames, want) {
		t.Fatalf("middle node changed fields = %v, want %v", descriptors[1].ChangedFieldNames, want)
	}

	// Creation node reports every non-default field as new.
	want := []string{domain.FieldBackSide, domain.FieldFrontSide, domain.FieldLanguage}
	if !reflect.DeepEqual(descriptors[2].ChangedFieldNames, want) {
		t.Fatalf("creation node changed fields = %v, want %v", descriptors[2].ChangedFieldNames, want)
	}
}

func TestGetHistoryStartsAtDeletionSnapshot(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	// Replace the live row with a terminal deletion snapshot.
	live := store.cards["card-1"]
	delete(store.cards, "card-1")
	store.versions["snap-3"] = domain.CardVersion{
		ID:                 "snap-3",
		CardID:             "card-1",
		Content:            live.Content,
		EditorID:           "carol",
		VersionUTCDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		VersionDescription: "obsolete",
		VersionType:        domain.VersionTypeDeletion,
		PreviousVersionID:  live.PreviousVersionID,
	}

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	descriptors, err := service.GetHistory(context.Background(), "card-1", "anyone")
	if err != nil {
		t.Fatalf("GetHistory returned error: %v", err)
	}
	if len(descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descriptors))
	}
	if descriptors[0].VersionType != domain.VersionTypeDeletion {
		t.Fatalf("head of a deleted card must be the deletion snapshot, got %s", descriptors[0].VersionType)
	}
	if descriptors[0].SnapshotID != "snap-3" {
		t.Fatalf("deletion head snapshot id = %q", descriptors[0].SnapshotID)
	}
}

func TestGetHistoryAccessDenied(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	live := store.cards["card-1"]
	live.Content.Visibility = domain.VisibilityFromUserIDs([]string{"alice"})
	store.cards["card-1"] = live

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	if _, err := service.GetHistory(context.Background(), "card-1", "bob"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestGetHistoryUnknownCard(t *testing.T) {
	store := newMemStore()
	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	if _, err := service.GetHistory(context.Background(), "missing", "alice"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestGetHistoryDetectsDanglingReference(t *testing.T) {
	store := newMemStore()
	seedChain(store)
	delete(store.versions, "snap-1")

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	if _, err := service.GetHistory(context.Background(), "card-1", "anyone"); !errors.Is(err, ErrBrokenVersionChain) {
		t.Fatalf("expected ErrBrokenVersionChain, got %v", err)
	}
}

func TestGetHistoryDetectsCycle(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	// Point the oldest snapshot back at its successor.
	s1 := store.versions["snap-1"]
	s2ID := "snap-2"
	s1.PreviousVersionID = &s2ID
	store.versions["snap-1"] = s1

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	if _, err := service.GetHistory(context.Background(), "card-1", "anyone"); !errors.Is(err, ErrBrokenVersionChain) {
		t.Fatalf("expected ErrBrokenVersionChain, got %v", err)
	}
}

func TestGetHistorySinceAddsPaddingNode(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	descriptors, err := service.GetHistorySince(context.Background(), "card-1", "anyone", cutoff)
	if err != nil {
		t.Fatalf("GetHistorySince returned error: %v", err)
	}

	// The live March version is in range; the February snapshot is the one
	// extra older node.
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}
	if descriptors[1].SnapshotID != "snap-2" {
		t.Fatalf("padding node must be the newest out-of-range version, got %q", descriptors[1].SnapshotID)
	}
	if descriptors[1].ChangedFieldNames != nil {
		t.Fatalf("padding node must not report changed fields, got %v", descriptors[1].ChangedFieldNames)
	}
	if want := []string{domain.FieldFrontSide}; !reflect.DeepEqual(descriptors[0].ChangedFieldNames, want) {
		t.Fatalf("in-range node changed fields = %v, want %v", descriptors[0].ChangedFieldNames, want)
	}
}

func TestGetHistorySinceReachingCreation(t *testing.T) {
	store := newMemStore()
	seedChain(store)

	service := NewHistoryService(store.cardRepo(), store.versionRepo())

	// A cutoff before every version walks the whole chain; the creation node
	// still reports its non-default fields.
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	descriptors, err := service.GetHistorySince(context.Background(), "card-1", "anyone", cutoff)
	if err != nil {
		t.Fatalf("GetHistorySince returned error: %v", err)
	}
	if len(descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descriptors))
	}
	if descriptors[2].ChangedFieldNames == nil {
		t.Fatalf("true creation node must report its non-default fields")
	}
}
