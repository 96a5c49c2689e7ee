package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/dbx"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/auth"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/password"
	refreshtokensrepo "github.com/dmitrijs2005/blogauth/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/blogauth/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

var cheapParams = password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type errBoom struct{}

func (errBoom) Error() string { return "boom: relation \"users\" does not exist" }

// memStore is an in-memory stand-in for both tables. Consume is a
// compare-and-set under the mutex, mirroring the guarded UPDATE.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken

	usersErr  error
	tokensErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*models.User{},
		tokens: map[string]*models.RefreshToken{},
	}
}

func (s *memStore) token(tok string) *models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.tokens[tok]
	if row == nil {
		return nil
	}
	cp := *row
	return &cp
}

func (s *memStore) userByName(name string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserName == name {
			cp := *u
			return &cp
		}
	}
	return nil
}

type memUsers struct{ s *memStore }

func (r memUsers) ExistsByUserName(ctx context.Context, userName string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return false, r.s.usersErr
	}
	for _, u := range r.s.users {
		if u.UserName == userName {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	for _, u := range r.s.users {
		if u.UserName == user.UserName {
			return nil, common.ErrDuplicateUsername
		}
	}
	user.CreatedAt = time.Now().UTC()
	cp := *user
	r.s.users[user.ID] = &cp
	return user, nil
}

func (r memUsers) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	for _, u := range r.s.users {
		if u.UserName == userName {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return r.s.usersErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.tokensErr != nil {
		return r.s.tokensErr
	}
	cp := *token
	r.s.tokens[token.Token] = &cp
	return nil
}

func (r memTokens) Consume(ctx context.Context, token string, userID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.tokensErr != nil {
		return false, r.s.tokensErr
	}
	row, ok := r.s.tokens[token]
	if !ok || row.UserID != userID || !row.Active(now) {
		return false, nil
	}
	revoked := now
	row.RevokedAt = &revoked
	return true, nil
}

func (r memTokens) Revoke(ctx context.Context, token string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.tokensErr != nil {
		return r.s.tokensErr
	}
	if row, ok := r.s.tokens[token]; ok && row.RevokedAt == nil {
		revoked := now
		row.RevokedAt = &revoked
	}
	return nil
}

func (r memTokens) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.tokensErr != nil {
		return 0, r.s.tokensErr
	}
	var n int64
	for _, row := range r.s.tokens {
		if row.UserID == userID && row.Active(now) {
			revoked := now
			row.RevokedAt = &revoked
			n++
		}
	}
	return n, nil
}

type memRepoManager struct{ s *memStore }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository     { return memUsers{m.s} }
func (m *memRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return memTokens{m.s}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixture bundles a UserService over memStore with a sqlmock-backed *sql.DB
// that only ever sees BEGIN/COMMIT/ROLLBACK.
type fixture struct {
	svc    *UserService
	store  *memStore
	mock   sqlmock.Sqlmock
	db     *sql.DB
	clock  *fakeClock
	issuer *auth.Issuer
	hasher *password.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithParams(t, cheapParams)
}

func newFixtureWithParams(t *testing.T, params password.Params) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fakeClock{t: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)}
	issuer, err := auth.NewIssuer(testSecret, 24*time.Hour, 7*24*time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	hasher, err := password.NewHasher(params)
	require.NoError(t, err)

	store := newMemStore()
	svc := NewUserService(db, &memRepoManager{s: store}, hasher, issuer, logging.Nop(), WithStoreTimeout(time.Second))

	return &fixture{svc: svc, store: store, mock: mock, db: db, clock: clock, issuer: issuer, hasher: hasher}
}

func (f *fixture) expectTx(commit bool) {
	f.mock.ExpectBegin()
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}

func (f *fixture) register(t *testing.T, name, pw string) *models.PublicUser {
	t.Helper()
	f.expectTx(true)
	u, err := f.svc.Register(context.Background(), name, pw)
	require.NoError(t, err)
	return u
}
