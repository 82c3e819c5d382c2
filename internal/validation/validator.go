// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide. Field names in errors
// use the json tag, so messages match what clients actually sent:
//
//	type CreateRequest struct {
//	    Username string `json:"username" validate:"required"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrorCode is the API error code for every validation failure.
const ErrorCode = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed field, named by its json tag.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestValidationError collects every failed field of one request.
type RequestValidationError struct {
	Failures []FieldError
}

// Fields returns the json names of every failed field, in struct order.
func (ve *RequestValidationError) Fields() []string {
	fields := make([]string, 0, len(ve.Failures))
	for _, f := range ve.Failures {
		fields = append(fields, f.Field)
	}
	return fields
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Failures) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, f := range ve.Failures {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}

// APIError mirrors models.APIError without importing it.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the failures to the API error shape. A single failure
// is flattened into field and tag details; several are listed under fields.
func (ve *RequestValidationError) ToAPIError() *APIError {
	apiErr := &APIError{Code: ErrorCode, Message: ve.Error()}
	switch len(ve.Failures) {
	case 0:
		apiErr.Message = "Validation failed"
	case 1:
		apiErr.Details = map[string]interface{}{
			"field": ve.Failures[0].Field,
			"tag":   ve.Failures[0].Tag,
		}
	default:
		list := make([]map[string]string, len(ve.Failures))
		for i, f := range ve.Failures {
			list[i] = map[string]string{"field": f.Field, "tag": f.Tag, "message": f.Message}
		}
		apiErr.Details = map[string]interface{}{"fields": list}
	}
	return apiErr
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Store keys are rooms/{code}/... so neither segment may contain a slash.
		_ = validate.RegisterValidation("roomcode", validateKeySegment(64))
		_ = validate.RegisterValidation("memberid", validateKeySegment(128))
	})

	return validate
}

func validateKeySegment(maxLen int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return s != "" && len(s) <= maxLen && !strings.ContainsAny(s, "/\x00")
	}
}

// ValidateStruct returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: s was not a struct.
		return &RequestValidationError{Failures: []FieldError{{Field: "request", Tag: "struct", Message: err.Error()}}}
	}

	out := &RequestValidationError{Failures: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Failures = append(out.Failures, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe.Field(), fe),
		})
	}
	return out
}

// ValidateVar validates a single value against a tag string, e.g. "roomcode".
// field names the value in the message.
func ValidateVar(field string, value interface{}, tag string) *RequestValidationError {
	err := GetValidator().Var(value, tag)
	if err == nil {
		return nil
	}

	failure := FieldError{Field: field, Tag: tag, Message: fmt.Sprintf("%s failed %s validation", field, tag)}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		failure.Tag = fieldErrs[0].Tag()
		failure.Param = fieldErrs[0].Param()
		failure.Message = translateError(field, fieldErrs[0])
	}
	return &RequestValidationError{Failures: []FieldError{failure}}
}

var errorMessageTemplates = map[string]string{
	"required":  "%s is required",
	"latitude":  "%s must be a valid latitude (-90 to 90)",
	"longitude": "%s must be a valid longitude (-180 to 180)",
	"roomcode":  "%s must be a non-empty room code without '/'",
	"memberid":  "%s must be a non-empty member name without '/'",
	"url":       "%s must be a valid URL",
	"datauri":   "%s must be a data URL",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translateError(field string, fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
