package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound      = errors.New("resource not found") // General not found
	ErrStoryNotFound = errors.New("story not found")

	// Generation Pipeline Errors
	ErrConfiguration = errors.New("configuration error")        // Missing or inactive API key
	ErrRateLimit     = errors.New("rate limited by provider")   // Transient, retryable
	ErrParse         = errors.New("malformed generator output") // Marker or JSON shape violated
	ErrProvider      = errors.New("provider request failed")    // Non-2xx that is not a rate limit
	ErrPersistence   = errors.New("persistence failure")        // Storage write failed

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden          = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenNotFound = errors.New("token not found in storage")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
