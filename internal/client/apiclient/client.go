// Package apiclient is a small HTTP client for the blogauth API. It keeps the
// current access/refresh pair and rotates it transparently when the access
// token expires.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
)

var (
	ErrUnavailable        = errors.New("server unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRequest     = errors.New("invalid request")
)

// User is the public user projection returned by the server.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to one blogauth server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	user         *User
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// User returns the logged-in user, or nil.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Client) Register(ctx context.Context, userName string, password []byte) (*User, error) {
	var u User
	body := map[string]string{"username": userName, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/register", "", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, userName string, password []byte) (*User, error) {
	var s session
	body := map[string]string{"username": userName, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &s); err != nil {
		return nil, err
	}
	c.store(&s)
	return &s.User, nil
}

// Refresh rotates the stored pair. On failure the stored pair is dropped.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	var s session
	err := c.do(ctx, http.MethodPost, "/refresh", "", map[string]string{"refreshToken": refresh}, &s)
	if errors.Is(err, ErrUnauthorized) {
		c.clear()
		return err
	}
	if err != nil {
		return err
	}
	c.store(&s)
	return nil
}

// Me returns the identity behind the access token, refreshing once when the
// server rejects it.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.authorized(ctx, http.MethodGet, "/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout revokes the refresh token on the server and forgets the pair.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	defer c.clear()
	return c.do(ctx, http.MethodPost, "/logout", "", map[string]string{"refreshToken": refresh}, nil)
}

// LogoutAll revokes every session of the user.
func (c *Client) LogoutAll(ctx context.Context) error {
	if err := c.authorized(ctx, http.MethodPost, "/logout/all", nil); err != nil {
		return err
	}
	c.clear()
	return nil
}

func (c *Client) authorized(ctx context.Context, method, path string, out any) error {
	c.mu.Lock()
	access := c.accessToken
	c.mu.Unlock()
	if access == "" {
		return ErrNotLoggedIn
	}

	err := c.do(ctx, method, path, access, nil, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	access = c.accessToken
	c.mu.Unlock()
	return c.do(ctx, method, path, access, nil, out)
}

func (c *Client) store(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = s.AccessToken
	c.refreshToken = s.RefreshToken
	u := s.User
	c.user = &u
}

func (c *Client) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken, c.refreshToken, c.user = "", "", nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)

	switch e.Error.Code {
	case "duplicate_username":
		return ErrDuplicateUsername
	case "invalid_credentials":
		return ErrInvalidCredentials
	case "invalid_token", "invalid_refresh_token":
		return ErrUnauthorized
	case "invalid_request":
		return fmt.Errorf("%w: %s", ErrInvalidRequest, e.Error.Message)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return ErrUnavailable
	}
	return fmt.Errorf("unexpected response: %s", resp.Status)
}
