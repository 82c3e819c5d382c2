// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package models

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// JoinRequest is the parsed join_room payload.
//
// Clients send either a bare room string ("TRX-42") or an object:
//
//	{"room": "trx-42 ", "role": "buyer", "displayName": "Bo"}
//
// "username" is accepted in place of "displayName".
type JoinRequest struct {
	Room        string `json:"room"`
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName"`
}

// NormalizeRoomCode trims and upper-cases a room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UnmarshalJSON accepts both payload shapes and normalizes the result.
func (j *JoinRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var room string
		if err := json.Unmarshal(data, &room); err != nil {
			return fmt.Errorf("decode room: %w", err)
		}
		*j = JoinRequest{Room: NormalizeRoomCode(room), Role: RoleUnspecified}
		return nil
	}

	var raw struct {
		Room        string `json:"room"`
		Role        string `json:"role"`
		DisplayName string `json:"displayName"`
		Username    string `json:"username"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode join request: %w", err)
	}

	name := raw.DisplayName
	if name == "" {
		name = raw.Username
	}
	*j = JoinRequest{
		Room:        NormalizeRoomCode(raw.Room),
		Role:        ParseRole(raw.Role),
		DisplayName: strings.TrimSpace(name),
	}
	return nil
}
