// Package users declares and implements persistence for user credentials.
package users

import (
	"context"

	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

// Repository stores credentials. Usernames match exactly (case-sensitive).
type Repository interface {
	// ExistsByUserName reports whether a user with this name is stored.
	ExistsByUserName(ctx context.Context, userName string) (bool, error)

	// Create inserts user, filling in CreatedAt. A taken username yields
	// common.ErrDuplicateUsername.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin and GetUserByID return common.ErrorNotFound when absent.
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePasswordHash replaces the stored hash. Identity never changes.
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}
