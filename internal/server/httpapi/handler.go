// Package httpapi exposes the session service over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/dmitrijs2005/blogauth/internal/server/services"
)

const (
	maxUserNameLength = 64
	maxPasswordLength = 1024
	readyTimeout      = 2 * time.Second
)

// Sessions is the subset of services.UserService the handlers call.
type Sessions interface {
	Register(ctx context.Context, userName, pw string) (*models.PublicUser, error)
	Login(ctx context.Context, userName, pw string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	Logout(ctx context.Context, refreshToken string)
	LogoutAll(ctx context.Context, userID string) error
	VerifyAccess(token string) (*models.Principal, error)
}

// Pinger reports store reachability for /readyz. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	sessions Sessions
	pinger   Pinger
	metrics  http.Handler
	logger   logging.Logger
}

// NewHandler builds the HTTP surface. metrics may be nil, in which case
// /metrics is not routed.
func NewHandler(logger logging.Logger, sessions Sessions, pinger Pinger, metrics http.Handler) *Handler {
	return &Handler{
		sessions: sessions,
		pinger:   pinger,
		metrics:  metrics,
		logger:   logger.With("module", "http"),
	}
}

// Routes returns the routed and instrumented handler tree.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /refresh", h.handleRefresh)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.HandleFunc("POST /logout/all", h.handleLogoutAll)
	mux.HandleFunc("GET /me", h.handleMe)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	return h.recoverer(h.requestLogger(mux))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeCredentials(w, r, &req) {
		return
	}

	u, err := h.sessions.Register(r.Context(), req.UserName, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeCredentials(w, r, &req) {
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidRequest(w, "malformed request body")
		return
	}
	if req.RefreshToken == "" {
		writeServiceError(w, common.ErrInvalidRefreshToken)
		return
	}

	sess, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidRequest(w, "malformed request body")
		return
	}
	if req.RefreshToken != "" {
		h.sessions.Logout(r.Context(), req.RefreshToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	if err := h.sessions.LogoutAll(r.Context(), p.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: p.UserID, UserName: p.UserName})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.pinger.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "readiness check failed", "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decodeCredentials parses a username/password body, writing 400 itself
// when the body is unusable.
func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request, req *credentialsRequest) bool {
	if err := decodeJSON(w, r, req); err != nil {
		writeInvalidRequest(w, "malformed request body")
		return false
	}
	switch {
	case req.UserName == "" || req.Password == "":
		writeInvalidRequest(w, "username and password are required")
		return false
	case utf8.RuneCountInString(req.UserName) > maxUserNameLength:
		writeInvalidRequest(w, "username is too long")
		return false
	case len(req.Password) > maxPasswordLength:
		writeInvalidRequest(w, "password is too long")
		return false
	}
	return true
}

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (*models.Principal, bool) {
	token := bearerToken(r)
	if token == "" {
		writeServiceError(w, common.ErrInvalidToken)
		return nil, false
	}
	p, err := h.sessions.VerifyAccess(token)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return p, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
