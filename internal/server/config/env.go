package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by parseEnv.
const (
	EnvHTTPAddr          = "BLOGAUTH_HTTP_ADDR"
	EnvDatabaseDSN       = "BLOGAUTH_DATABASE_DSN"
	EnvSecretKey         = "BLOGAUTH_SECRET_KEY"
	EnvAccessTokenTTL    = "BLOGAUTH_ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL   = "BLOGAUTH_REFRESH_TOKEN_TTL"
	EnvLogLevel          = "BLOGAUTH_LOG_LEVEL"
	EnvDBMaxOpenConns    = "BLOGAUTH_DB_MAX_OPEN_CONNS"
	EnvDBQueryTimeout    = "BLOGAUTH_DB_QUERY_TIMEOUT"
	EnvArgon2MemoryKiB   = "BLOGAUTH_ARGON2_MEMORY_KIB"
	EnvArgon2Iterations  = "BLOGAUTH_ARGON2_ITERATIONS"
	EnvArgon2Parallelism = "BLOGAUTH_ARGON2_PARALLELISM"
)

// parseEnv overlays set, non-blank environment variables onto config.
// A malformed value is an error rather than a silent fallback.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvHTTPAddr); ok {
		config.HTTPAddr = v
	}
	if v, ok := get(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
	if v, ok := get(EnvSecretKey); ok {
		config.SecretKey = v
	}
	if v, ok := get(EnvLogLevel); ok {
		config.LogLevel = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvAccessTokenTTL, &config.AccessTokenValidityDuration},
		{EnvRefreshTokenTTL, &config.RefreshTokenValidityDuration},
		{EnvDBQueryTimeout, &config.DBQueryTimeout},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := get(EnvDBMaxOpenConns); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: not an integer", ErrInvalidConfig, EnvDBMaxOpenConns)
		}
		config.DBMaxOpenConns = n
	}

	uints := []struct {
		key string
		max uint64
		set func(uint64)
	}{
		{EnvArgon2MemoryKiB, math.MaxUint32, func(u uint64) { config.Argon2.MemoryKiB = uint32(u) }},
		{EnvArgon2Iterations, math.MaxUint32, func(u uint64) { config.Argon2.Iterations = uint32(u) }},
		{EnvArgon2Parallelism, math.MaxUint8, func(u uint64) { config.Argon2.Parallelism = uint8(u) }},
	}
	for _, u := range uints {
		v, ok := get(u.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n > u.max {
			return fmt.Errorf("%w: %s: out of range [0..%d]", ErrInvalidConfig, u.key, u.max)
		}
		u.set(n)
	}
	return nil
}
