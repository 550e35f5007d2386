// Package services defines the business logic for contact submissions, the
// admin message dashboard, and blog posts. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; the
// handler layer translates them into user-facing messages and HTTP status
// codes.
package services

import "errors"

// Submission guard errors.
var (
	// ErrInvalidIdempotencyKey is returned when a supplied Idempotency-Key
	// fails the length/charset policy. Rejected before any store access.
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")

	// ErrProcessing is returned when a concurrent attempt with the same key
	// is still in flight; the caller should retry later.
	ErrProcessing = errors.New("request already processing")

	// ErrStoreUnavailable is returned when the store could not commit the
	// guarded unit of work even after bounded retries.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Submission validation errors (mirrored to HTTP 400 by the handlers).
var (
	// ErrInvalidEmail is returned when the sender address fails shape checks.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrNameLength is returned when the sender name is outside 2-100 runes.
	ErrNameLength = errors.New("name length must be 2-100 characters")

	// ErrMessageLength is returned when the body is outside 10-5000 runes.
	ErrMessageLength = errors.New("message length must be 10-5000 characters")
)

// Admin/blog errors.
var (
	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrPostNotFound indicates that the requested blog post does not exist.
	ErrPostNotFound = errors.New("blog post not found")

	// ErrEmptyTitle is returned when a blog post is created without a title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrEmptyContent is returned when a blog post is created without content.
	ErrEmptyContent = errors.New("content is empty")

	// ErrSlugTaken is returned when a blog post slug is already in use.
	ErrSlugTaken = errors.New("slug already in use")
)
