// Package auth mints and verifies HS256-signed JWTs for access and refresh
// tokens. Access tokens are stateless; refresh tokens are additionally
// recorded in the refresh-token ledger by the services package.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the minimum HMAC key size in bytes (256 bits).
const MinSecretLength = 32

// ErrWeakSecret is returned by NewIssuer for keys shorter than MinSecretLength.
var ErrWeakSecret = errors.New("signing secret shorter than 256 bits")

// Issuer signs and verifies tokens with a fixed secret. The secret is copied
// on construction and never changes afterwards, so an Issuer is safe for
// concurrent use.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now. Tests use it to cross expiry boundaries.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer builds an Issuer for the given secret and token lifetimes.
func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	i := &Issuer{
		secret:     append([]byte(nil), secret...),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Now returns the issuer's notion of the current time.
func (i *Issuer) Now() time.Time { return i.now() }

func (i *Issuer) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

// IssueAccess mints an access token for the user and returns it along with
// its expiry.
func (i *Issuer) IssueAccess(userID, userName string) (string, time.Time, error) {
	claims := AccessClaims{
		RegisteredClaims: i.registered(userID, i.accessTTL),
		UserID:           userID,
		UserName:         userName,
		Type:             TypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssueRefresh mints a refresh token for the user and returns it along with
// its expiry.
func (i *Issuer) IssueRefresh(userID string) (string, time.Time, error) {
	claims := RefreshClaims{
		RegisteredClaims: i.registered(userID, i.refreshTTL),
		UserID:           userID,
		Type:             TypeRefresh,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (i *Issuer) parse(token string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenUnverifiable
	}
	return nil
}

// VerifyAccess checks signature, algorithm, expiry and type. Every failure is
// reported as common.ErrInvalidToken.
func (i *Issuer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(token, claims); err != nil {
		return nil, common.ErrInvalidToken
	}
	if claims.Type != TypeAccess || claims.UserID == "" || claims.UserName == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh checks signature, algorithm, expiry and type. Every failure
// is reported as common.ErrInvalidRefreshToken.
func (i *Issuer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(token, claims); err != nil {
		return nil, common.ErrInvalidRefreshToken
	}
	if claims.Type != TypeRefresh || claims.UserID == "" {
		return nil, common.ErrInvalidRefreshToken
	}
	return claims, nil
}
