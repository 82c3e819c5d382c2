// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package models

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidCoordinates is returned for out-of-range or malformed coordinate pairs.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
//
// It encodes as {"latitude":..,"longitude":..}. Decoding also accepts the
// two-element array form [lat, lng] used by older clients.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// Valid reports whether both components are in range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%g,%g", c.Latitude, c.Longitude)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("%w: expected [lat, lng], got %d values", ErrInvalidCoordinates, len(pair))
		}
		c.Latitude, c.Longitude = pair[0], pair[1]
		return nil
	}

	type plain Coordinates
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	*c = Coordinates(p)
	return nil
}
