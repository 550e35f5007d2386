// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes sentinel errors shared by the
// repository functions.
package repo

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist (or has expired,
	// for TTL-bearing tables).
	ErrNotFound = errors.New("not found")

	// ErrDuplicateMessage indicates a message with the same sender and content
	// hash was already accepted inside the suppression window. It is raised by
	// the conditional insert itself, not by a pre-check.
	ErrDuplicateMessage = errors.New("duplicate message")

	// ErrSlugTaken indicates a blog post insert collided on its slug.
	ErrSlugTaken = errors.New("slug already in use")
)
