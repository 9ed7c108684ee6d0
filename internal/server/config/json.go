package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophident/internal/flagx"
	"github.com/dmitrijs2005/gophident/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// both "15m" and integer nanoseconds. Absent keys leave the current value.
type JsonConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	SigningAlgorithm            *string         `json:"signing_algorithm"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	HashAlgorithm               *string         `json:"hash_algorithm"`
	HashMaxConcurrent           *int64          `json:"hash_max_concurrent"`
	ShutdownTimeout             *timex.Duration `json:"shutdown_timeout"`
	LogLevel                    *string         `json:"log_level"`
	LogDev                      *bool           `json:"log_dev"`
	LogFile                     *string         `json:"log_file"`
	Production                  *bool           `json:"production"`
}

// parseJson overlays the file named by -c/-config in args, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.SigningAlgorithm, c.SigningAlgorithm)
	set(&config.HashAlgorithm, c.HashAlgorithm)
	set(&config.HashMaxConcurrent, c.HashMaxConcurrent)
	set(&config.LogLevel, c.LogLevel)
	set(&config.LogDev, c.LogDev)
	set(&config.LogFile, c.LogFile)
	set(&config.Production, c.Production)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
