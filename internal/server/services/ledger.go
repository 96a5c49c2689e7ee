package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/dbx"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RefreshLedger persists refresh tokens and enforces single use. Every
// method takes the DBTX to run on, so callers can compose ledger writes with
// other statements in one transaction.
type RefreshLedger struct {
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	logger      logging.Logger
}

func NewRefreshLedger(m repomanager.RepositoryManager, issuer *auth.Issuer, logger logging.Logger) *RefreshLedger {
	return &RefreshLedger{
		repomanager: m,
		issuer:      issuer,
		logger:      logger.With("component", "ledger"),
	}
}

// Issue mints a refresh token for userID and records it as active.
func (l *RefreshLedger) Issue(ctx context.Context, db dbx.DBTX, userID string) (string, time.Time, error) {
	token, exp, err := l.issuer.IssueRefresh(userID)
	if err != nil {
		l.logger.Error(ctx, "sign refresh token", "error", err)
		return "", time.Time{}, common.ErrorInternal
	}

	row := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: exp,
	}
	if err := l.repomanager.RefreshTokens(db).Create(ctx, row); err != nil {
		return "", time.Time{}, storeFault(ctx, l.logger, "refresh_tokens.create", err)
	}
	return token, exp, nil
}

// ValidateAndConsume checks the token locally and then revokes its row in a
// single guarded update. The signature must verify, the row must exist for
// the embedded user, and it must be unrevoked and unexpired. Any failed
// check gives the same common.ErrInvalidRefreshToken.
func (l *RefreshLedger) ValidateAndConsume(ctx context.Context, db dbx.DBTX, token string) (string, error) {
	claims, err := l.issuer.VerifyRefresh(token)
	if err != nil {
		return "", common.ErrInvalidRefreshToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return "", common.ErrInvalidRefreshToken
	}

	ok, err := l.repomanager.RefreshTokens(db).Consume(ctx, token, claims.UserID, l.issuer.Now())
	if err != nil {
		return "", storeFault(ctx, l.logger, "refresh_tokens.consume", err)
	}
	if !ok {
		l.logger.Debug(ctx, "refresh token rejected", "user_id", claims.UserID)
		return "", common.ErrInvalidRefreshToken
	}
	return claims.UserID, nil
}

// Revoke marks token revoked. Repeated calls and unknown tokens are no-ops.
func (l *RefreshLedger) Revoke(ctx context.Context, db dbx.DBTX, token string) error {
	if err := l.repomanager.RefreshTokens(db).Revoke(ctx, token, l.issuer.Now()); err != nil {
		return storeFault(ctx, l.logger, "refresh_tokens.revoke", err)
	}
	return nil
}

// RevokeAll revokes every active token of userID.
func (l *RefreshLedger) RevokeAll(ctx context.Context, db dbx.DBTX, userID string) (int64, error) {
	n, err := l.repomanager.RefreshTokens(db).RevokeAllForUser(ctx, userID, l.issuer.Now())
	if err != nil {
		return 0, storeFault(ctx, l.logger, "refresh_tokens.revoke_all", err)
	}
	return n, nil
}
