package assessment

import (
	"errors"
	"strings"
)

var (
	// ErrDomain indicates corrupted belief parameters (alpha/beta <= 0).
	// The update formula cannot produce this from valid inputs, so it is
	// treated as fatal data corruption, never retried.
	ErrDomain = errors.New("assessment domain")
	// ErrNotFound indicates an absent session/question/concept.
	ErrNotFound = errors.New("assessment not found")
	// ErrConflict indicates an idempotency-key collision with a different
	// payload, or an optimistic-lock version mismatch.
	ErrConflict = errors.New("assessment conflict")
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("assessment validation")
	// ErrRetryable indicates a transient storage failure the caller may
	// replay with the same idempotency key.
	ErrRetryable = errors.New("assessment retryable")
)

// DomainError tags an error as a belief-parameter corruption.
func DomainError(msg string) error {
	return errors.Join(ErrDomain, errors.New(strings.TrimSpace(msg)))
}

// NotFoundError tags an error as a missing entity.
func NotFoundError(msg string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as a concurrency/idempotency conflict.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// ValidationError tags an error as caller input validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as transient.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}
