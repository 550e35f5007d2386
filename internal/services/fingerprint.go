// Package services – request fingerprinting.
//
// A fingerprint is the stable identity of a logical submission attempt. When
// the caller supplies an Idempotency-Key it is used verbatim, scoped by the
// caller's identity so two callers reusing the same raw key never collide.
// Without a key the request is non-idempotent: no replay protection is
// possible and the pipeline runs the rate and duplicate guards only.
package services

import (
	"regexp"
	"strings"
)

// maxIdempotencyKeyLen bounds accepted keys; keys of this length or longer
// are rejected.
const maxIdempotencyKeyLen = 50

// keyPattern is an RFC-7230-ish token plus common safe characters.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Fingerprint identifies one logical submission attempt.
type Fingerprint struct {
	// Owner is the normalized identity of the submitting principal; empty for
	// anonymous callers.
	Owner string
	// Key is the caller-supplied idempotency key, empty when Idempotent is
	// false.
	Key string
	// Idempotent reports whether the ledger guards this request.
	Idempotent bool
}

// ResolveFingerprint validates rawKey and builds the request fingerprint.
// An absent key yields a non-idempotent fingerprint; a malformed key yields
// ErrInvalidIdempotencyKey before any store access.
func ResolveFingerprint(owner, rawKey string) (Fingerprint, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return Fingerprint{Owner: owner}, nil
	}
	if len(rawKey) >= maxIdempotencyKeyLen || !keyPattern.MatchString(rawKey) {
		return Fingerprint{}, ErrInvalidIdempotencyKey
	}
	return Fingerprint{Owner: owner, Key: rawKey, Idempotent: true}, nil
}

// NormalizeSender canonicalizes a sender email for use as owner identity and
// rate-limit key: trimmed and lowercased.
func NormalizeSender(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
