package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	t.Run("loads every field", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"http_addr":                       "127.0.0.1:9000",
			"database_dsn":                    "postgres://x",
			"secret_key":                      testSecret,
			"access_token_validity_duration":  "1h",
			"refresh_token_validity_duration": "48h",
			"log_level":                       "warn",
			"db_max_open_conns":               7,
			"db_query_timeout":                "2s",
			"shutdown_timeout":                "3s",
			"argon2": map[string]any{
				"memory_kib":  16384,
				"iterations":  2,
				"parallelism": 1,
				"salt_length": 16,
				"key_length":  32,
			},
		})

		cfg := &Config{}
		require.NoError(t, parseJson(cfg, path))

		assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, testSecret, cfg.SecretKey)
		assert.Equal(t, time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 7, cfg.DBMaxOpenConns)
		assert.Equal(t, 2*time.Second, cfg.DBQueryTimeout)
		assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, Argon2{MemoryKiB: 16384, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}, cfg.Argon2)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"log_level": "error"})

		cfg := validConfig()
		before := *cfg
		require.NoError(t, parseJson(cfg, path))

		before.LogLevel = "error"
		assert.Equal(t, before, *cfg)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"endpoint_addr_grpc": ":50051"})
		require.Error(t, parseJson(&Config{}, path))
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		require.Error(t, parseJson(&Config{}, bad))
	})
}
