package domain

import (
	"errors"
	"sort"
)

// ErrEditorNotInVisibility indicates a restricted visibility set that excludes
// the version's own editor. This is an invariant violation, not user input.
var ErrEditorNotInVisibility = errors.New("card visibility excludes its own editor")

// Visibility controls which users may view a card version. The zero value is
// public (everyone may view).
type Visibility struct {
	allowedUserIDs []string
}

// PublicVisibility returns a visibility allowing every user.
func PublicVisibility() Visibility {
	return Visibility{}
}

// RestrictedVisibility builds a visibility limited to the given users. The
// editor must be among them. An empty user list collapses to public.
func RestrictedVisibility(editorID string, userIDs []string) (Visibility, error) {
	if len(userIDs) == 0 {
		return PublicVisibility(), nil
	}

	visibility := VisibilityFromUserIDs(userIDs)
	if !visibility.CanView(editorID) {
		return Visibility{}, ErrEditorNotInVisibility
	}

	return visibility, nil
}

// VisibilityFromUserIDs rebuilds a visibility from stored user ids without
// invariant checks. Used when hydrating historical versions, whose editor may
// no longer exist.
func VisibilityFromUserIDs(userIDs []string) Visibility {
	if len(userIDs) == 0 {
		return Visibility{}
	}

	seen := make(map[string]struct{}, len(userIDs))
	deduped := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	sort.Strings(deduped)

	return Visibility{allowedUserIDs: deduped}
}

// IsPublic reports whether every user may view the version.
func (v Visibility) IsPublic() bool {
	return len(v.allowedUserIDs) == 0
}

// CanView reports whether the given user may view a version carrying this
// visibility.
func (v Visibility) CanView(userID string) bool {
	if v.IsPublic() {
		return true
	}
	for _, id := range v.allowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// UserIDs returns the allowed user ids sorted ascending; nil when public.
func (v Visibility) UserIDs() []string {
	if len(v.allowedUserIDs) == 0 {
		return nil
	}
	out := make([]string, len(v.allowedUserIDs))
	copy(out, v.allowedUserIDs)
	return out
}

// Equal compares two visibilities as sets.
func (v Visibility) Equal(other Visibility) bool {
	if len(v.allowedUserIDs) != len(other.allowedUserIDs) {
		return false
	}
	// Both slices are kept sorted and deduplicated by construction.
	for i, id := range v.allowedUserIDs {
		if other.allowedUserIDs[i] != id {
			return false
		}
	}
	return true
}
