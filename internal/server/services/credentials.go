package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/dbx"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/password"
	"github.com/dmitrijs2005/blogauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CredentialStore owns user credentials: registration and password checks.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
	logger      logging.Logger
}

func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher, logger logging.Logger) *CredentialStore {
	return &CredentialStore{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      logger.With("component", "credentials"),
	}
}

// Register stores a new user. The existence check and the insert share one
// transaction, and the unique constraint on username settles concurrent
// registrations: the loser gets common.ErrDuplicateUsername.
//
// The password is hashed before the transaction opens so no connection is
// held during the slow key derivation.
func (s *CredentialStore) Register(ctx context.Context, userName, pw string) (*models.User, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		return nil, common.ErrorInternal
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.ExistsByUserName(ctx, userName)
		if err != nil {
			return storeFault(ctx, s.logger, "users.exists", err)
		}
		if exists {
			return common.ErrDuplicateUsername
		}

		created, err = repo.Create(ctx, &models.User{ID: uuid.NewString(), UserName: userName, PasswordHash: hash})
		if errors.Is(err, common.ErrDuplicateUsername) {
			return err
		}
		if err != nil {
			return storeFault(ctx, s.logger, "users.create", err)
		}
		return nil
	})
	if err != nil {
		return nil, boundary(ctx, s.logger, "register", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// Authenticate returns the user when pw matches the stored hash. Unknown
// usernames and wrong passwords both yield common.ErrInvalidCredentials, and
// an unknown username still pays for one full hash verification.
func (s *CredentialStore) Authenticate(ctx context.Context, userName, pw string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if errors.Is(err, common.ErrorNotFound) {
		s.hasher.DummyVerify(pw)
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeFault(ctx, s.logger, "users.get_by_login", err)
	}

	if !s.hasher.Verify(pw, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, pw)
	}
	return user, nil
}

// rehash upgrades a hash made with weaker parameters. Failure only costs the
// upgrade; the login already succeeded.
func (s *CredentialStore) rehash(ctx context.Context, user *models.User, pw string) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		s.logger.Warn(ctx, "rehash password", "user_id", user.ID, "error", err)
		return
	}
	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.Warn(ctx, "store rehashed password", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.logger.Debug(ctx, "password rehashed", "user_id", user.ID)
}
