package domain

import "errors"

// Business-rule failures shared by services, stores and transport. Adapters
// translate these to status codes; anything else is an unclassified failure.
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateEmail    = errors.New("user already exists")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInvalidCode       = errors.New("invalid OTP")
	ErrExpired           = errors.New("OTP expired")
	// ErrPendingApproval is kept apart from ErrInvalidCredential so clients can
	// show an approval-pending notice instead of a generic login failure.
	ErrPendingApproval = errors.New("your account is pending admin approval")
)
