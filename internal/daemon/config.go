// Package daemon wires the protocol services together and runs the HTTP API.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the daemon configuration, loaded from TOML with env overrides.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Protocol ProtocolConfig `toml:"protocol"`
	Resolver ResolverConfig `toml:"resolver"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// Addr returns the listen address.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// DatabaseConfig controls journal persistence. An empty path disables it.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ProtocolConfig holds protocol policy knobs.
type ProtocolConfig struct {
	Admin             string `toml:"admin"`
	MinStakeTime      string `toml:"min_stake_time"` // Go duration, e.g. "24h"
	MaxFeeBps         int64  `toml:"max_fee_bps"`
	MinValidatorStake int64  `toml:"min_validator_stake"`
}

// MinStakeDuration parses the stake timelock, falling back to 24h.
func (c ProtocolConfig) MinStakeDuration() time.Duration {
	d, err := time.ParseDuration(c.MinStakeTime)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ResolverConfig controls the overdue-round sweep.
type ResolverConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"` // Go duration, e.g. "1m"
}

// SweepInterval parses the sweep interval, falling back to 1m.
func (c ResolverConfig) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// DefaultConfig returns the daemon defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8790,
			Metrics: true,
		},
		Database: DatabaseConfig{
			Path: "ajofi.db",
		},
		Protocol: ProtocolConfig{
			Admin:             "admin",
			MinStakeTime:      "24h",
			MaxFeeBps:         1000,
			MinValidatorStake: 100,
		},
		Resolver: ResolverConfig{
			Enabled:  true,
			Interval: "1m",
		},
	}
}

// LoadConfig loads defaults, then the TOML file at path (if it exists), then
// environment overrides. A .env file in the working directory is honored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	// Best-effort: a missing .env is fine.
	_ = godotenv.Load()
	if v := os.Getenv("AJOFI_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("AJOFI_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = p
		}
	}
	if v := os.Getenv("AJOFI_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("AJOFI_ADMIN"); v != "" {
		cfg.Protocol.Admin = v
	}
	return cfg, nil
}
