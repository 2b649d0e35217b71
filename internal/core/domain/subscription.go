package domain

import "time"

// RegistrationMethod records how a card subscription came to exist.
type RegistrationMethod string

const (
	// RegistrationMethodExplicit marks a subscription the user asked for.
	RegistrationMethodExplicit RegistrationMethod = "explicit"
	// RegistrationMethodOnEdit marks a subscription created automatically
	// because the user edited the card.
	RegistrationMethodOnEdit RegistrationMethod = "on-edit"
)

// CardSubscription registers a user's interest in change and deletion
// notifications for a card. Subscriptions are not versioned.
type CardSubscription struct {
	CardID                  string
	UserID                  string
	RegistrationUTCDate     time.Time
	RegistrationMethod      RegistrationMethod
	LastNotificationUTCDate time.Time
}
