package domain

import "time"

// User mirrors the persisted representation in the users table. Identity and
// authentication live in a separate service; this projection carries only
// what versioning and notifications need.
type User struct {
	ID                    string
	UserName              string
	SubscribeToCardOnEdit bool
	RegisteredAt          time.Time
	DeletedUTCDate        *time.Time
}

// Tag is a shared label applied to cards. Referenced from card content by id;
// diffs render tag names.
type Tag struct {
	ID          string
	Name        string
	Description string
}

// Language identifies the language a card is written in.
type Language struct {
	ID   string
	Name string
}
