package domain

import "sort"

// FieldKind tells how a field is compared between two versions.
type FieldKind int

const (
	// FieldKindScalar compares by exact value.
	FieldKindScalar FieldKind = iota
	// FieldKindSet compares order-independently.
	FieldKindSet
)

// Canonical field names shared by the no-op guard, history annotations, and
// the diff output.
const (
	FieldFrontSide      = "FrontSide"
	FieldBackSide       = "BackSide"
	FieldAdditionalInfo = "AdditionalInfo"
	FieldReferences     = "References"
	FieldLanguage       = "Language"
	FieldTags           = "Tags"
	FieldUsersWithView  = "UsersWithView"
)

// Field is one comparable component of a card version's content.
type Field struct {
	Name   string
	Kind   FieldKind
	Scalar string
	Set    []string
}

// Fields lists the comparable fields of the content in declaration order.
// Adding a tracked field here propagates to the no-op guard, history
// annotations, and the diff engine at once.
func (c CardContent) Fields() []Field {
	return []Field{
		{Name: FieldFrontSide, Kind: FieldKindScalar, Scalar: c.FrontSide},
		{Name: FieldBackSide, Kind: FieldKindScalar, Scalar: c.BackSide},
		{Name: FieldAdditionalInfo, Kind: FieldKindScalar, Scalar: c.AdditionalInfo},
		{Name: FieldReferences, Kind: FieldKindScalar, Scalar: c.References},
		{Name: FieldLanguage, Kind: FieldKindScalar, Scalar: c.LanguageID},
		{Name: FieldTags, Kind: FieldKindSet, Set: c.TagIDs},
		{Name: FieldUsersWithView, Kind: FieldKindSet, Set: c.Visibility.UserIDs()},
	}
}

// Equal reports whether the field holds the same value as other. Scalar
// fields compare by exact value, set fields ignore order and duplicates.
func (f Field) Equal(other Field) bool {
	if f.Kind != other.Kind {
		return false
	}
	if f.Kind == FieldKindScalar {
		return f.Scalar == other.Scalar
	}
	return setEqual(f.Set, other.Set)
}

// IsZero reports whether the field holds default (empty) content.
func (f Field) IsZero() bool {
	if f.Kind == FieldKindScalar {
		return f.Scalar == ""
	}
	return len(f.Set) == 0
}

func setEqual(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}

	inA := make(map[string]struct{}, len(a))
	for _, v := range a {
		inA[v] = struct{}{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, ok := inA[v]; !ok {
			return false
		}
		inB[v] = struct{}{}
	}
	return len(inA) == len(inB)
}

// Equal reports whether two contents hold identical values for every tracked
// field. An edit proposing equal content is a no-op.
func (c CardContent) Equal(other CardContent) bool {
	otherFields := other.Fields()
	for i, field := range c.Fields() {
		if !field.Equal(otherFields[i]) {
			return false
		}
	}
	return true
}

// ChangedFieldNames returns the names of fields whose values differ between
// the two contents, sorted alphabetically.
func ChangedFieldNames(current, original CardContent) []string {
	originalFields := original.Fields()

	var names []string
	for i, field := range current.Fields() {
		if !field.Equal(originalFields[i]) {
			names = append(names, field.Name)
		}
	}
	sort.Strings(names)
	return names
}

// NonDefaultFieldNames returns the names of fields holding non-default
// content, sorted alphabetically. At creation everything present is "new".
func NonDefaultFieldNames(content CardContent) []string {
	var names []string
	for _, field := range content.Fields() {
		if !field.IsZero() {
			names = append(names, field.Name)
		}
	}
	sort.Strings(names)
	return names
}
