package auth

import "github.com/golang-jwt/jwt/v5"

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessClaims is the claim set of a short-lived access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	UserName string `json:"username"`
	Type     string `json:"typ"`
}

// RefreshClaims is the claim set of a refresh token. The jti claim makes two
// tokens minted for the same user in the same second distinct.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Type   string `json:"typ"`
}
