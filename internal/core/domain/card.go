package domain

import "time"

// VersionType discriminates the kind of a card version.
type VersionType string

const (
	VersionTypeCreation VersionType = "creation"
	VersionTypeChanges  VersionType = "changes"
	VersionTypeDeletion VersionType = "deletion"
)

// CardContent groups the fields captured by every card version. A snapshot
// copies the whole struct; the live row always holds the newest values.
type CardContent struct {
	FrontSide      string
	BackSide       string
	AdditionalInfo string
	References     string
	LanguageID     string
	TagIDs         []string
	Visibility     Visibility
}

// Card mirrors the live row in memcheck.cards.
type Card struct {
	ID                 string
	Content            CardContent
	EditorID           string
	VersionUTCDate     time.Time
	VersionDescription string
	// VersionType on a live row is creation or changes, never deletion.
	VersionType VersionType
	// PreviousVersionID is nil only while the card has a single (creation)
	// version. It doubles as the optimistic-concurrency token for edits.
	PreviousVersionID *string
}

// CardVersion is an immutable snapshot in a card's version chain. Following
// PreviousVersionID from any node terminates at the creation version, whose
// PreviousVersionID is nil.
type CardVersion struct {
	ID                 string
	CardID             string
	Content            CardContent
	EditorID           string
	VersionUTCDate     time.Time
	VersionDescription string
	VersionType        VersionType
	PreviousVersionID  *string
}
