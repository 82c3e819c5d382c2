// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import "github.com/tomtom215/rendezvous/internal/validation"

// API error codes returned in the error envelope.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeValidation          = validation.ErrorCode
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeSellerOnly          = "SELLER_ONLY"
	ErrCodeNotPicking          = "NOT_PICKING"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
)
