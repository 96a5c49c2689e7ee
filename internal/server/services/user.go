// Package services contains server-side business logic: the credential
// store, the refresh-token ledger and UserService, which composes them into
// register, login, refresh and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/dbx"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/password"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
)

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             models.PublicUser
}

// UserService is the session orchestrator. Every error it returns is one of
// common.ErrDuplicateUsername, ErrInvalidCredentials, ErrInvalidToken,
// ErrInvalidRefreshToken, ErrStoreUnavailable or ErrorInternal.
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	credentials  *CredentialStore
	ledger       *RefreshLedger
	issuer       *auth.Issuer
	logger       logging.Logger
	recorder     Recorder
	storeTimeout time.Duration
}

// Recorder receives one observation per finished operation. result is
// Outcome of the returned error.
type Recorder interface {
	Observe(op, result string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string, time.Duration) {}

// ServiceOption customises a UserService.
type ServiceOption func(*UserService)

// WithStoreTimeout bounds each operation's store work. Zero disables it.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *UserService) { s.storeTimeout = d }
}

// WithRecorder reports per-operation outcomes and latency to r.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *UserService) { s.recorder = r }
}

// NewUserService wires the credential store, the ledger and the issuer.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher, issuer *auth.Issuer, logger logging.Logger, opts ...ServiceOption) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		credentials: NewCredentialStore(db, m, hasher, logger),
		ledger:      NewRefreshLedger(m, issuer, logger),
		issuer:      issuer,
		logger:      logger.With("component", "sessions"),
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome names err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, common.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, common.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

func (s *UserService) observe(op string, start time.Time, err error) {
	s.recorder.Observe(op, Outcome(err), time.Since(start))
}

func (s *UserService) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Register creates a user and returns its public projection. No tokens are
// issued.
func (s *UserService) Register(ctx context.Context, userName, pw string) (_ *models.PublicUser, err error) {
	defer func(start time.Time) { s.observe("register", start, err) }(time.Now())

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	user, err := s.credentials.Register(ctx, userName, pw)
	if err != nil {
		return nil, boundary(ctx, s.logger, "register", err)
	}
	pub := user.Public()
	return &pub, nil
}

// Login checks credentials and issues a fresh access/refresh pair.
func (s *UserService) Login(ctx context.Context, userName, pw string) (_ *Session, err error) {
	defer func(start time.Time) { s.observe("login", start, err) }(time.Now())

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	user, err := s.credentials.Authenticate(ctx, userName, pw)
	if err != nil {
		return nil, boundary(ctx, s.logger, "login", err)
	}

	sess, err := s.newSession(ctx, s.db, user)
	if err != nil {
		return nil, boundary(ctx, s.logger, "login", err)
	}
	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return sess, nil
}

// Refresh rotates refreshToken: the old token is consumed and its successor
// is stored in the same transaction, so a replay of the old token fails and
// a failed rotation leaves the old token usable.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (_ *Session, err error) {
	defer func(start time.Time) { s.observe("refresh", start, err) }(time.Now())

	// Forged or expired tokens are rejected before a connection is taken.
	if _, err := s.issuer.VerifyRefresh(refreshToken); err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	var sess *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userID, err := s.ledger.ValidateAndConsume(ctx, tx, refreshToken)
		if err != nil {
			return err
		}

		user, err := s.repomanager.Users(tx).GetUserByID(ctx, userID)
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidRefreshToken
		}
		if err != nil {
			return storeFault(ctx, s.logger, "users.get_by_id", err)
		}

		sess, err = s.newSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, boundary(ctx, s.logger, "refresh", err)
	}
	return sess, nil
}

// Logout revokes refreshToken. It always succeeds: unknown, forged and
// already revoked tokens are accepted, and a store failure is only logged.
func (s *UserService) Logout(ctx context.Context, refreshToken string) {
	start := time.Now()
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err := s.ledger.Revoke(ctx, s.db, refreshToken)
	if err != nil {
		s.logger.Warn(ctx, "logout could not revoke refresh token", "error", err)
	}
	s.observe("logout", start, err)
}

// LogoutAll revokes every active refresh token of the user.
func (s *UserService) LogoutAll(ctx context.Context, userID string) (err error) {
	defer func(start time.Time) { s.observe("logout_all", start, err) }(time.Now())

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	n, err := s.ledger.RevokeAll(ctx, s.db, userID)
	if err != nil {
		return boundary(ctx, s.logger, "logout_all", err)
	}
	s.logger.Info(ctx, "revoked all sessions", "user_id", userID, "count", n)
	return nil
}

// VerifyAccess returns the principal behind a valid access token.
func (s *UserService) VerifyAccess(token string) (*models.Principal, error) {
	claims, err := s.issuer.VerifyAccess(token)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	return &models.Principal{UserID: claims.UserID, UserName: claims.UserName}, nil
}

func (s *UserService) newSession(ctx context.Context, db dbx.DBTX, user *models.User) (*Session, error) {
	refresh, refreshExp, err := s.ledger.Issue(ctx, db, user.ID)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.issuer.IssueAccess(user.ID, user.UserName)
	if err != nil {
		s.logger.Error(ctx, "sign access token", "error", err)
		return nil, common.ErrorInternal
	}

	return &Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		User:             user.Public(),
	}, nil
}
