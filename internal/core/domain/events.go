package domain

import "time"

// CardVersionCreatedEvent represents the payload for memcheck.card.version.created messages.
type CardVersionCreatedEvent struct {
	EventID            string
	CardID             string
	SnapshotID         string
	EditorID           string
	VersionUTCDate     time.Time
	VersionDescription string
	ChangedFields      []string
	Metadata           map[string]any
}

// CardDeletedEvent represents the payload for memcheck.card.deleted messages.
type CardDeletedEvent struct {
	EventID             string
	CardID              string
	SnapshotID          string
	DeleterID           string
	DeletedUTCDate      time.Time
	DeletionDescription string
	Metadata            map[string]any
}
