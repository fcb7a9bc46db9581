package domain

import "time"

// UserRegisteredEvent represents the payload for account.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	Role         Role
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserLoggedInEvent represents the payload for account.user.logged_in messages.
type UserLoggedInEvent struct {
	EventID    string
	UserID     string
	LoggedInAt time.Time
	ClientIP   *string
	Metadata   map[string]any
}

// PasswordChangedEvent represents the payload for account.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	// ChangedBy is either "self" or the acting administrator id.
	ChangedBy string
	Metadata  map[string]any
}

// ProfileUpdatedEvent represents the payload for account.user.profile.updated messages.
type ProfileUpdatedEvent struct {
	EventID   string
	UserID    string
	Fields    []string
	Version   int64
	UpdatedAt time.Time
	Metadata  map[string]any
}
