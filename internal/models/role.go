// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package models

import "strings"

// Role is the part a member plays in a transaction.
type Role string

const (
	RoleSeller      Role = "seller"
	RoleBuyer       Role = "buyer"
	RoleUnspecified Role = "unspecified"
)

// ParseRole is case-insensitive; anything unrecognised is RoleUnspecified.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSeller:
		return RoleSeller
	case RoleBuyer:
		return RoleBuyer
	default:
		return RoleUnspecified
	}
}

func (r Role) String() string {
	if r == "" {
		return string(RoleUnspecified)
	}
	return string(r)
}

// IsSeller reports whether r may mutate the meeting point.
func (r Role) IsSeller() bool {
	return r == RoleSeller
}
