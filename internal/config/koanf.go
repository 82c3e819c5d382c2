// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rendezvous/config.yaml",
	"/etc/rendezvous/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3001,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Caller:    false,
			Timestamp: true,
			Service:   "rendezvous",
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			WebSocketOrigins:  []string{},
		},
		Store: StoreConfig{
			Path:           "/data/rendezvous",
			InMemory:       false,
			SyncWrites:     true,
			RoomTTL:        0,
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Relay: RelayConfig{
			SendBuffer:           256,
			MaxMessageSize:       512 * 1024, // item images travel as data URLs
			WriteWait:            10 * time.Second,
			PongWait:             60 * time.Second,
			SessionScopedMembers: false,
		},
		MapLink: MapLinkConfig{
			Timeout:      10 * time.Second,
			MaxRedirects: 10,
			CacheTTL:     time.Hour,
			UserAgent:    "rendezvous/1.0",
		},
		Geocode: GeocodeConfig{
			Enabled:           true,
			BaseURL:           "https://nominatim.openstreetmap.org",
			UserAgent:         "rendezvous/1.0",
			RequestsPerSecond: 1,
			Burst:             1,
			Timeout:           10 * time.Second,
			CacheTTL:          time.Hour,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			EmbeddedHost:  "127.0.0.1",
			EmbeddedPort:  4222,
			Topic:         "rendezvous.rooms",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration with precedence ENV > file > defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.websocket_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"port":             "server.port",
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"log_level":     "logging.level",
	"log_format":    "logging.format",
	"log_caller":    "logging.caller",
	"log_timestamp": "logging.timestamp",
	"log_service":   "logging.service",

	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"websocket_origins":   "security.websocket_origins",

	"store_path":             "store.path",
	"store_in_memory":        "store.in_memory",
	"store_sync_writes":      "store.sync_writes",
	"room_ttl":               "store.room_ttl",
	"store_gc_interval":      "store.gc_interval",
	"store_gc_discard_ratio": "store.gc_discard_ratio",

	"relay_send_buffer":            "relay.send_buffer",
	"relay_max_message_size":       "relay.max_message_size",
	"relay_write_wait":             "relay.write_wait",
	"relay_pong_wait":              "relay.pong_wait",
	"relay_session_scoped_members": "relay.session_scoped_members",

	"maplink_timeout":       "maplink.timeout",
	"maplink_max_redirects": "maplink.max_redirects",
	"maplink_cache_ttl":     "maplink.cache_ttl",
	"maplink_user_agent":    "maplink.user_agent",
	"maplink_allow_private": "maplink.allow_private",

	"geocode_enabled":    "geocode.enabled",
	"geocode_base_url":   "geocode.base_url",
	"geocode_user_agent": "geocode.user_agent",
	"geocode_rps":        "geocode.requests_per_second",
	"geocode_burst":      "geocode.burst",
	"geocode_timeout":    "geocode.timeout",
	"geocode_cache_ttl":  "geocode.cache_ttl",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded",
	"nats_embedded_host":  "nats.embedded_host",
	"nats_embedded_port":  "nats.embedded_port",
	"nats_topic":          "nats.topic",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps PORT -> server.port, NATS_URL -> nats.url, etc.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
