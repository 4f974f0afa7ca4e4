package domain

import "time"

// Settings holds per-user preferences.
type Settings struct {
	ID       int64        `json:"id"`
	Currency CurrencyCode `json:"currency"`
}

// SettingsUpdate is the payload of PATCH /settings.
type SettingsUpdate struct {
	Currency *CurrencyCode `json:"currency,omitempty"`
}

// User mirrors the identity provider's profile of a SpendLog user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSync is the payload of POST /users: create the user or refresh its profile.
type UserSync struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UserUpdate is the payload of PUT /users/{id}.
type UserUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Email is only changed by a profile sync from the identity provider.
	Email *string `json:"-"`
}

// Webhook outcomes.
const (
	WebhookCreated = "created"
	WebhookExists  = "exists"
	WebhookIgnored = "ignored"
)

// WebhookResult is the answer to POST /webhooks/auth.
type WebhookResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Event types published on the message bus.
const (
	EventUserDeleted = "user.deleted"
)

// Event is a domain event sent to background workers.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
