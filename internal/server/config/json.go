package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/blogauth/internal/timex"
)

// JsonConfig mirrors Config for decoding configuration files. Durations are
// read through timex.Duration so both "24h" and integer nanoseconds work.
// Keys absent from the file keep their current values.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	LogLevel                     string         `json:"log_level"`
	DBMaxOpenConns               int            `json:"db_max_open_conns"`
	DBQueryTimeout               timex.Duration `json:"db_query_timeout"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
	Argon2                       JsonArgon2     `json:"argon2"`
}

type JsonArgon2 struct {
	MemoryKiB   uint32 `json:"memory_kib"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
	SaltLength  uint32 `json:"salt_length"`
	KeyLength   uint32 `json:"key_length"`
}

// parseJson overlays the file at path onto config. Unknown keys are rejected.
func parseJson(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := JsonConfig{
		HTTPAddr:                     config.HTTPAddr,
		DatabaseDSN:                  config.DatabaseDSN,
		SecretKey:                    config.SecretKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: config.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: config.RefreshTokenValidityDuration},
		LogLevel:                     config.LogLevel,
		DBMaxOpenConns:               config.DBMaxOpenConns,
		DBQueryTimeout:               timex.Duration{Duration: config.DBQueryTimeout},
		ShutdownTimeout:              timex.Duration{Duration: config.ShutdownTimeout},
		Argon2: JsonArgon2{
			MemoryKiB:   config.Argon2.MemoryKiB,
			Iterations:  config.Argon2.Iterations,
			Parallelism: config.Argon2.Parallelism,
			SaltLength:  config.Argon2.SaltLength,
			KeyLength:   config.Argon2.KeyLength,
		},
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return err
	}

	config.HTTPAddr = c.HTTPAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.LogLevel = c.LogLevel
	config.DBMaxOpenConns = c.DBMaxOpenConns
	config.DBQueryTimeout = c.DBQueryTimeout.Duration
	config.ShutdownTimeout = c.ShutdownTimeout.Duration
	config.Argon2 = Argon2(c.Argon2)
	return nil
}
