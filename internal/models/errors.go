package models

import "errors"

// User related errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters with an uppercase letter, a digit and one of !#%^*")
	ErrMissingField       = errors.New("required field is missing")
)

// Session related errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// URL analysis related errors
var (
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// Board related errors
var (
	ErrReportNotFound    = errors.New("report not found")
	ErrInvalidJudgment   = errors.New("judgment must be LEGITIMATE, MALICIOUS, or PENDING")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)
