package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/logging"
)

// publicErrors is the complete set of errors UserService returns.
var publicErrors = []error{
	common.ErrDuplicateUsername,
	common.ErrInvalidCredentials,
	common.ErrInvalidToken,
	common.ErrInvalidRefreshToken,
	common.ErrStoreUnavailable,
	common.ErrorInternal,
}

// storeFault logs a repository or transaction failure and replaces it with
// common.ErrStoreUnavailable. Raw driver text stays in the log.
func storeFault(ctx context.Context, log logging.Logger, op string, err error) error {
	log.Error(ctx, "store failure", "op", op, "error", err)
	return common.ErrStoreUnavailable
}

// boundary maps err onto publicErrors. Wrapped sentinels come back bare so
// no wrapping context reaches the caller; anything unrecognised is a store
// fault (begin/commit failures and deadline misses land here).
func boundary(ctx context.Context, log logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, pub := range publicErrors {
		if errors.Is(err, pub) {
			return pub
		}
	}
	return storeFault(ctx, log, op, err)
}
