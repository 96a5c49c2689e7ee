package models

import "time"

// RefreshToken is a row of the refresh_tokens ledger. Rows are never
// deleted; RevokedAt is set once, on rotation or logout.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the row can still be consumed at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
