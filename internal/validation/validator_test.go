// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type sample struct {
	Username string  `json:"username" validate:"required,max=8"`
	Room     string  `json:"room" validate:"roomcode"`
	Lat      float64 `json:"latitude" validate:"latitude"`
	Role     string  `json:"role" validate:"omitempty,oneof=seller buyer"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      sample
		wantFields []string
	}{
		{
			name:  "valid",
			input: sample{Username: "ana", Room: "TRX-1", Lat: -6.2, Role: "seller"},
		},
		{
			name:       "missing username uses json name",
			input:      sample{Room: "TRX-1"},
			wantFields: []string{"username"},
		},
		{
			name:       "slash in room code",
			input:      sample{Username: "ana", Room: "TRX/1"},
			wantFields: []string{"room"},
		},
		{
			name:       "multiple failures",
			input:      sample{Username: "toolongusername", Room: " ", Lat: 95, Role: "admin"},
			wantFields: []string{"username", "room", "latitude", "role"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			got := err.Fields()
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("Fields() = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(&sample{Room: "TRX-1"})
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != ErrorCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrorCode)
	}
	if apiErr.Message != "username is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "username" {
		t.Errorf("Details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&sample{Room: "", Lat: 100}).ToAPIError()
	if !strings.Contains(multi.Message, ";") {
		t.Errorf("expected joined message for multiple errors, got %q", multi.Message)
	}
	if _, ok := multi.Details["fields"]; !ok {
		t.Errorf("expected fields detail, got %v", multi.Details)
	}
}

func TestValidateVar(t *testing.T) {
	if err := ValidateVar("room", "TRX-42", "roomcode"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateVar("room", "", "roomcode")
	if err == nil {
		t.Fatal("expected error for empty room")
	}
	if err.Error() != "room must be a non-empty room code without '/'" {
		t.Errorf("Error() = %q", err.Error())
	}
}
