package domain

import "time"

// ============================================================
// Identity provider (Supabase GoTrue) shapes
// ============================================================

// AuthUser is the identity provider's view of a user.
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`

	// ExpiresAt is the exp of the token this user was resolved from.
	ExpiresAt time.Time `json:"-"`
}

// FullName returns the display name from the user metadata, if any.
func (u *AuthUser) FullName() string {
	return metadataString(u.UserMetadata, "full_name", "name")
}

// AvatarURL returns the avatar from the user metadata, if any.
func (u *AuthUser) AvatarURL() string {
	return metadataString(u.UserMetadata, "avatar_url", "picture")
}

// Sync builds the POST /users payload for this identity.
func (u *AuthUser) Sync() *UserSync {
	return &UserSync{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName(),
		AvatarURL: u.AvatarURL(),
	}
}

// Session is an authenticated identity provider session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at,omitempty"`
	User         *AuthUser `json:"user"`
}

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthWebhook is the payload the identity provider posts on auth.users changes.
type AuthWebhook struct {
	Type   string         `json:"type"`
	Table  string         `json:"table"`
	Schema string         `json:"schema"`
	Record *WebhookRecord `json:"record"`
}

// WebhookRecord is the auth.users row carried by an AuthWebhook.
type WebhookRecord struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	RawUserMetadata map[string]any `json:"raw_user_meta_data"`
}

// UserSync builds the user to create from a webhook record.
func (r *WebhookRecord) UserSync() *UserSync {
	return &UserSync{
		ID:        r.ID,
		Email:     r.Email,
		FullName:  metadataString(r.RawUserMetadata, "full_name", "name"),
		AvatarURL: metadataString(r.RawUserMetadata, "avatar_url", "picture"),
	}
}

func metadataString(md map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := md[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
