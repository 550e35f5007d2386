// Package domain defines the core persistence models for the application.
// This file holds the two durable guard tables of the submission engine:
// the idempotency ledger and the per-sender rate-limit window.
package domain

import "time"

// Idempotency ledger states. A record transitions InProgress -> Completed
// exactly once and never reverts.
const (
	IdempotencyInProgress = 1
	IdempotencyCompleted  = 2
)

// Idempotency is the durable ledger entry for one logical submission attempt,
// keyed by (owner, key). It records the in-flight state and, once completed,
// the exact response to replay for retried requests.
//
// Owner is the normalized identity of the submitting principal ("" for
// anonymous callers); scoping the key by owner prevents cross-caller
// collisions on the same raw key.
//
// AttemptID is a fencing token: regenerated on every claim and takeover, and
// required to complete or release the row. A worker revived after losing its
// lease therefore cannot overwrite the result of the attempt that replaced it.
type Idempotency struct {
	ID             string    `gorm:"type:char(36);primaryKey"`
	Owner          string    `gorm:"type:varchar(254);not null;uniqueIndex:ux_owner_key,priority:1"`
	Key            string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_key,priority:2"`
	AttemptID      string    `gorm:"type:char(36);not null"`
	State          int       `gorm:"type:INTEGER;not null"`
	ResponseStatus int       `gorm:"type:INTEGER;not null;default:0"`
	ResponseBody   []byte    `gorm:"type:blob"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	ExpiresAt      time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// RateLimitWindow is the durable per-sender counter behind the fixed-window
// rate limiter. Count resets to 1 when a submission arrives after
// WindowStart + window length; within a window it only grows, and never past
// the configured cap (rejected requests do not increment it).
//
// This is deliberately a durable row rather than in-process state so the cap
// holds across multiple worker processes sharing the store.
type RateLimitWindow struct {
	SenderIdentity string    `gorm:"type:varchar(254);primaryKey"`
	Count          int       `gorm:"type:INTEGER;not null"`
	WindowStart    time.Time `gorm:"not null"`
	LastSeenAt     time.Time `gorm:"not null"`
}

// TableName implements the GORM tabler interface.
func (RateLimitWindow) TableName() string { return "rate_limit_windows" }
