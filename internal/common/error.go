// Package common defines shared constants, sentinel errors and the AppError
// domain error used across the client and server layers. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Token verification failed (malformed, wrong secret, expired).
	ErrInvalidToken = errors.New("invalid token")
)

// Code is a machine-readable error code carried in JSON error bodies.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeEmailAlreadyExists  Code = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeRefreshTokenExpired Code = "REFRESH_TOKEN_EXPIRED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInternal            Code = "INTERNAL_SERVER_ERROR"
	CodeUnknown             Code = "UNKNOWN_ERROR"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is a domain error that knows how it is presented to API callers.
// Two AppErrors match under errors.Is when their codes are equal.
type AppError struct {
	Code    Code
	Status  int
	Message string
	Details []FieldError
}

func (e *AppError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e carrying the given field errors.
func (e *AppError) WithDetails(details []FieldError) *AppError {
	c := *e
	c.Details = details
	return &c
}

var (
	ErrValidation          = &AppError{Code: CodeValidation, Status: http.StatusBadRequest, Message: "Invalid input."}
	ErrEmailAlreadyExists  = &AppError{Code: CodeEmailAlreadyExists, Status: http.StatusBadRequest, Message: "Email is already in use."}
	ErrInvalidCredentials  = &AppError{Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "Email or password is incorrect."}
	ErrRefreshTokenExpired = &AppError{Code: CodeRefreshTokenExpired, Status: http.StatusUnauthorized, Message: "Session expired. Please log in again."}
	ErrUnauthorized        = &AppError{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "Login required."}
	ErrNotFound            = &AppError{Code: CodeNotFound, Status: http.StatusNotFound, Message: "The requested resource was not found."}
	ErrInternal            = &AppError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Server error. Please try again later."}
)
