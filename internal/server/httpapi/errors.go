package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/blogauth/internal/common"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// errorTable maps every sentinel UserService can return. Messages are fixed
// strings so that responses never depend on internal detail.
var errorTable = []errorMapping{
	{common.ErrDuplicateUsername, http.StatusConflict, "duplicate_username", "username already taken"},
	{common.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid username or password"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid or expired access token"},
	{common.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token", "invalid refresh token"},
	{common.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", "temporarily unavailable, retry later"},
}

func writeServiceError(w http.ResponseWriter, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			if m.status == http.StatusServiceUnavailable {
				w.Header().Set("Retry-After", "1")
			}
			writeError(w, m.status, m.code, m.message)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func writeInvalidRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, "invalid_request", msg)
}
