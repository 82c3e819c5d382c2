// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package config loads Rendezvous configuration from struct defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Security   SecurityConfig   `koanf:"security"`
	Store      StoreConfig      `koanf:"store"`
	Relay      RelayConfig      `koanf:"relay"`
	MapLink    MapLinkConfig    `koanf:"maplink"`
	Geocode    GeocodeConfig    `koanf:"geocode"`
	NATS       NATSConfig       `koanf:"nats"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config minus the writer.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	Caller    bool `koanf:"caller"`
	Timestamp bool `koanf:"timestamp"`

	// Service is stamped on every entry. Instances sharing a NATS bus should
	// each set their own.
	Service string `koanf:"service"`
}

// SecurityConfig holds CORS, rate limiting and WebSocket origin settings.
// Rooms are unauthenticated shared codes, so there is no credential config.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// WebSocketOrigins restricts the Origin header on /ws upgrades.
	// Empty or "*" accepts any origin.
	WebSocketOrigins []string `koanf:"websocket_origins"`
}

// StoreConfig configures the BadgerDB room store.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`

	// RoomTTL expires every room key this long after its last write.
	// Zero keeps rooms forever.
	RoomTTL time.Duration `koanf:"room_ttl"`

	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`
}

// RelayConfig tunes the presence channel.
type RelayConfig struct {
	SendBuffer     int           `koanf:"send_buffer"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`

	// SessionScopedMembers keys locations by displayName#session instead of
	// the bare display name, so two participants with the same name no longer
	// overwrite each other.
	SessionScopedMembers bool `koanf:"session_scoped_members"`
}

// MapLinkConfig configures redirect resolution for shared map links.
type MapLinkConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	MaxRedirects int           `koanf:"max_redirects"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	UserAgent    string        `koanf:"user_agent"`

	// AllowPrivate lets resolution reach loopback, private and link-local
	// addresses. Leave off unless every link comes from a trusted source.
	AllowPrivate bool `koanf:"allow_private"`
}

// GeocodeConfig configures the Nominatim search proxy.
type GeocodeConfig struct {
	Enabled           bool          `koanf:"enabled"`
	BaseURL           string        `koanf:"base_url"`
	UserAgent         string        `koanf:"user_agent"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	Timeout           time.Duration `koanf:"timeout"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
}

// NATSConfig enables cross-instance fan-out of room broadcasts.
// When disabled, an in-process channel bus is used.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	EmbeddedHost  string        `koanf:"embedded_host"`
	EmbeddedPort  int           `koanf:"embedded_port"`
	Topic         string        `koanf:"topic"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// SupervisorConfig maps onto supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// ConfigError describes an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Load reads configuration using the layered koanf sources.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
