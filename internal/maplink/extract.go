// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package maplink turns shared map links into coordinates.
//
// Extract searches a string for the first "lat,lng" decimal pair, for
// example the "@-6.200000,106.816666" segment of a map URL. Resolver first
// follows a link's redirects (short links rarely carry coordinates) and then
// applies Extract to the final URL.
package maplink

import (
	"regexp"
	"strconv"

	"github.com/tomtom215/rendezvous/internal/models"
)

// pairPattern matches a signed decimal, a comma and another signed decimal.
// Both numbers need digits on each side of the point.
var pairPattern = regexp.MustCompile(`([-+]?\d+\.\d+),([-+]?\d+\.\d+)`)

// Extract returns the first coordinate pair found in s. A first pair that is
// out of WGS84 range counts as no match; later pairs are not considered.
func Extract(s string) (models.Coordinates, bool) {
	m := pairPattern.FindStringSubmatch(s)
	if m == nil {
		return models.Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	coords := models.Coordinates{Latitude: lat, Longitude: lng}
	if !coords.Valid() {
		return models.Coordinates{}, false
	}
	return coords, true
}
