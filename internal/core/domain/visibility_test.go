package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestPublicVisibilityAllowsEveryone(t *testing.T) {
	v := PublicVisibility()
	if !v.IsPublic() {
		t.Fatalf("public visibility must report IsPublic")
	}
	if !v.CanView("anyone") {
		t.Fatalf("public visibility must allow every user")
	}
	if v.UserIDs() != nil {
		t.Fatalf("public visibility must have no user ids")
	}
}

func TestZeroValueVisibilityIsPublic(t *testing.T) {
	var v Visibility
	if !v.IsPublic() {
		t.Fatalf("zero value visibility must be public")
	}
}

func TestRestrictedVisibilityRequiresEditor(t *testing.T) {
	if _, err := RestrictedVisibility("alice", []string{"bob", "carol"}); !errors.Is(err, ErrEditorNotInVisibility) {
		t.Fatalf("expected ErrEditorNotInVisibility, got %v", err)
	}

	v, err := RestrictedVisibility("alice", []string{"bob", "alice"})
	if err != nil {
		t.Fatalf("RestrictedVisibility returned error: %v", err)
	}
	if !v.CanView("alice") || !v.CanView("bob") {
		t.Fatalf("members must be able to view")
	}
	if v.CanView("carol") {
		t.Fatalf("non-members must not be able to view")
	}
}

func TestRestrictedVisibilityEmptyListIsPublic(t *testing.T) {
	v, err := RestrictedVisibility("alice", nil)
	if err != nil {
		t.Fatalf("RestrictedVisibility returned error: %v", err)
	}
	if !v.IsPublic() {
		t.Fatalf("an empty user list must collapse to public")
	}
}

func TestVisibilityFromUserIDsNormalizes(t *testing.T) {
	v := VisibilityFromUserIDs([]string{"carol", "alice", "carol", "", "bob"})

	want := []string{"alice", "bob", "carol"}
	if got := v.UserIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("UserIDs() = %v, want %v", got, want)
	}
}

func TestVisibilityEqualComparesAsSets(t *testing.T) {
	a := VisibilityFromUserIDs([]string{"alice", "bob"})
	b := VisibilityFromUserIDs([]string{"bob", "alice"})
	c := VisibilityFromUserIDs([]string{"alice"})

	if !a.Equal(b) {
		t.Fatalf("order must not matter")
	}
	if a.Equal(c) {
		t.Fatalf("different member sets must differ")
	}
	if !PublicVisibility().Equal(Visibility{}) {
		t.Fatalf("public visibilities must be equal")
	}
}
