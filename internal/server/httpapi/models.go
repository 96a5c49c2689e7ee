package httpapi

import (
	"time"

	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/services"
)

type credentialsRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionResponse struct {
	AccessToken           string       `json:"accessToken"`
	AccessTokenExpiresAt  time.Time    `json:"accessTokenExpiresAt"`
	RefreshToken          string       `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time    `json:"refreshTokenExpiresAt"`
	User                  userResponse `json:"user"`
}

type meResponse struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
}

func toUserResponse(u models.PublicUser) userResponse {
	return userResponse{ID: u.ID, UserName: u.UserName, CreatedAt: u.CreatedAt.UTC()}
}

func toSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{
		AccessToken:           s.AccessToken,
		AccessTokenExpiresAt:  s.AccessExpiresAt.UTC(),
		RefreshToken:          s.RefreshToken,
		RefreshTokenExpiresAt: s.RefreshExpiresAt.UTC(),
		User:                  toUserResponse(s.User),
	}
}
