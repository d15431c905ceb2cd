// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

// Package config manages Showdex configuration with layered sources:
// built-in defaults, an optional YAML file, and environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the Showdex service.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	API     APIConfig     `koanf:"api"`
	Store   StoreConfig   `koanf:"store"`
	Sync    SyncConfig    `koanf:"sync"`
	Network NetworkConfig `koanf:"network"`
	Query   QueryConfig   `koanf:"query"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// APIConfig holds the remote show API settings, including the outbound
// rate-limiter policy. The remote enforces an undocumented request rate,
// observed as HTTP 429; MinRequestInterval caps our throughput below it.
type APIConfig struct {
	BaseURL            string        `koanf:"base_url"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	MinRequestInterval time.Duration `koanf:"min_request_interval"`
	MaxRetries         int           `koanf:"max_retries"`
	BackoffBase        time.Duration `koanf:"backoff_base"`
	BackoffCap         time.Duration `koanf:"backoff_cap"`
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
}

// StoreConfig holds the local persistent store settings.
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SyncConfig holds the sync orchestrator settings.
type SyncConfig struct {
	// FreshnessWindow is the duration after a successful full sync during
	// which re-syncing is skipped.
	FreshnessWindow time.Duration `koanf:"freshness_window"`

	// MaxPages bounds how many listing pages one fetch cycle walks.
	MaxPages int `koanf:"max_pages"`

	// Interval is the cadence of the background sync loop. Zero disables it;
	// sync then runs only on demand.
	Interval time.Duration `koanf:"interval"`
}

// NetworkConfig holds the connectivity observer settings.
type NetworkConfig struct {
	// ProbeURL is the endpoint probed to decide online/offline. Defaults to
	// the API base URL when empty.
	ProbeURL      string        `koanf:"probe_url"`
	ProbeInterval time.Duration `koanf:"probe_interval"`
	ProbeTimeout  time.Duration `koanf:"probe_timeout"`

	// AssumeOnline disables probing and reports permanently online.
	// Useful for tests and air-gapped development.
	AssumeOnline bool `koanf:"assume_online"`
}

// QueryConfig holds the read-side limits.
type QueryConfig struct {
	// GenreListSize caps each per-genre top list.
	GenreListSize int `koanf:"genre_list_size"`

	// LocalSearchLimit caps full-store substring search results.
	LocalSearchLimit int `koanf:"local_search_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplyDerived fills settings whose defaults depend on other settings.
// LoadWithKoanf calls it after all layers are merged, before validation;
// callers assembling a Config by hand must do the same.
func (c *Config) ApplyDerived() {
	if c.Network.ProbeURL == "" {
		c.Network.ProbeURL = c.API.BaseURL
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. It is called by LoadWithKoanf after all layers are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.MinRequestInterval <= 0 {
		return fmt.Errorf("api.min_request_interval must be positive, got %v", c.API.MinRequestInterval)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must not be negative, got %d", c.API.MaxRetries)
	}
	if c.API.BackoffBase <= 0 || c.API.BackoffCap < c.API.BackoffBase {
		return fmt.Errorf("api backoff misconfigured: base=%v cap=%v", c.API.BackoffBase, c.API.BackoffCap)
	}

	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path must be set unless store.in_memory is true")
	}

	if c.Sync.FreshnessWindow <= 0 {
		return fmt.Errorf("sync.freshness_window must be positive, got %v", c.Sync.FreshnessWindow)
	}
	if c.Sync.MaxPages < 1 {
		return fmt.Errorf("sync.max_pages must be at least 1, got %d", c.Sync.MaxPages)
	}

	if !c.Network.AssumeOnline && c.Network.ProbeInterval <= 0 {
		return fmt.Errorf("network.probe_interval must be positive, got %v", c.Network.ProbeInterval)
	}
	if !c.Network.AssumeOnline && c.Network.ProbeURL == "" {
		return fmt.Errorf("network.probe_url must be set when probing is enabled")
	}

	if c.Query.GenreListSize < 1 {
		return fmt.Errorf("query.genre_list_size must be at least 1, got %d", c.Query.GenreListSize)
	}
	if c.Query.LocalSearchLimit < 1 {
		return fmt.Errorf("query.local_search_limit must be at least 1, got %d", c.Query.LocalSearchLimit)
	}

	return nil
}
