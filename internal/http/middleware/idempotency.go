// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Idempotency-Key transport validation. The durable ledger lives in the
// service layer; this middleware only rejects malformed keys at the edge,
// stashes the validated key in the Gin context, and (when a lookup is wired)
// flags known replays so the edge rate limiter can skip them.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to convey an
// idempotency key for unsafe operations. The value must be stable across
// retries of the same semantic operation.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip edge rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored by
// IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the middleware detected that this request would
// replay a previously completed operation.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation for IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 49, the
	// ledger's own limit.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative token
	// pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Owner derives the ledger owner for replay lookup. When nil, lookup is
	// skipped (the owner may only be known after body parsing, as with
	// contact submissions keyed by sender address).
	Owner func(*gin.Context) string
}

// IdempotencyLookup answers whether a completed, still-valid result exists
// for (owner, key) at the given time. Errors must not block processing.
type IdempotencyLookup func(ctx context.Context, owner, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes it for handlers, and optionally marks detected replays so the edge
// rate limiter lets them through without consuming tokens. The durable replay
// itself is served by the service layer.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 49
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil && opts.Owner != nil {
			if owner := opts.Owner(c); owner != "" {
				now := time.Now().UTC()
				if exists, _ := lookup(c.Request.Context(), owner, key, now); exists {
					c.Set(ctxKeyIdemReplay, true)
					c.Set(ctxKeyRateBypass, true)
				}
			}
		}

		c.Next()
	}
}
