package models

import "time"

// User is a row of the users table.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}

// Public returns the projection that may leave the service.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, UserName: u.UserName, CreatedAt: u.CreatedAt}
}

// PublicUser is a User without its credential.
type PublicUser struct {
	ID        string
	UserName  string
	CreatedAt time.Time
}

// Principal identifies the caller behind a verified access token.
type Principal struct {
	UserID   string
	UserName string
}
