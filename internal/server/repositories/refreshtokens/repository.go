// Package refreshtokens declares the server-side contract for the refresh
// token ledger: an append-only table whose rows are revoked, never deleted.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

// Repository defines the ledger operations.
type Repository interface {
	// Create inserts an active row.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Consume revokes the row matching token and userID if, at now, it is
	// still unrevoked and unexpired. It reports whether exactly one row was
	// revoked. Concurrent callers for the same token see at most one true.
	Consume(ctx context.Context, token string, userID string, now time.Time) (bool, error)

	// Revoke marks the row revoked at now unless it already is. Unknown
	// tokens are not an error.
	Revoke(ctx context.Context, token string, now time.Time) error

	// RevokeAllForUser revokes every active row of the user and returns how
	// many rows changed.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)
}
