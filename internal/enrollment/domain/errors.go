package domain

import "errors"

var (
	ErrEnrollmentNotFound  = errors.New("enrollment_not_found")
	ErrMissingEnrollmentID = errors.New("missing_enrollment_id")
	ErrSessionNotPaid      = errors.New("session_not_paid")
	ErrInvalidRequest      = errors.New("invalid_request")
)
