// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package config

import (
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks the loaded configuration for impossible values.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateGeocode(); err != nil {
		return err
	}
	return c.validateNATS()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Server.Timeout <= 0 {
		return &ConfigError{Field: "server.timeout", Message: "must be positive"}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &ConfigError{Field: "logging.level", Message: "must be one of: trace, debug, info, warn, error"}
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return &ConfigError{Field: "logging.format", Message: "must be one of: json, console"}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 || c.Security.RateLimitReqs > 100000 {
		return &ConfigError{Field: "security.rate_limit_reqs", Message: "must be between 1 and 100000"}
	}
	if c.Security.RateLimitWindow <= 0 {
		return &ConfigError{Field: "security.rate_limit_window", Message: "must be positive"}
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return &ConfigError{Field: "store.path", Message: "required unless store.in_memory is set"}
	}
	if c.Store.RoomTTL < 0 {
		return &ConfigError{Field: "store.room_ttl", Message: "must not be negative"}
	}
	if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
		return &ConfigError{Field: "store.gc_discard_ratio", Message: "must be between 0 and 1 exclusive"}
	}
	return nil
}

func (c *Config) validateRelay() error {
	if c.Relay.SendBuffer < 1 {
		return &ConfigError{Field: "relay.send_buffer", Message: "must be at least 1"}
	}
	if c.Relay.MaxMessageSize < 1024 {
		return &ConfigError{Field: "relay.max_message_size", Message: "must be at least 1024 bytes"}
	}
	if c.Relay.PongWait <= 0 || c.Relay.WriteWait <= 0 {
		return &ConfigError{Field: "relay.pong_wait", Message: "pong and write waits must be positive"}
	}
	return nil
}

func (c *Config) validateGeocode() error {
	if !c.Geocode.Enabled {
		return nil
	}
	u, err := url.Parse(c.Geocode.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "geocode.base_url", Message: "must be an absolute URL"}
	}
	if c.Geocode.RequestsPerSecond <= 0 {
		return &ConfigError{Field: "geocode.requests_per_second", Message: "must be positive"}
	}
	if c.Geocode.UserAgent == "" {
		return &ConfigError{Field: "geocode.user_agent", Message: "required by the Nominatim usage policy"}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.Topic == "" {
		return &ConfigError{Field: "nats.topic", Message: "required when nats.enabled is set"}
	}
	if !c.NATS.Embedded && c.NATS.URL == "" {
		return &ConfigError{Field: "nats.url", Message: "required unless nats.embedded is set"}
	}
	return nil
}
