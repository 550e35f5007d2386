// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the idempotency ledger: a durable
// mapping from (owner, key) to "in progress" or "completed with response",
// used to make retried submissions replay their original result instead of
// re-executing side effects.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

// BeginOutcome is the result of attempting to claim an idempotency key.
type BeginOutcome int

const (
	// BeginFresh means this caller won the claim and must execute the guarded
	// operation, then call CompleteIdempotency in the same transaction.
	BeginFresh BeginOutcome = iota
	// BeginInProgress means a concurrent attempt holds the key within its
	// lease; the caller should report "processing" and do nothing else.
	BeginInProgress
	// BeginCompleted means the key already resolved; the stored response must
	// be replayed verbatim.
	BeginCompleted
)

// BeginIdempotency atomically claims (owner, key) in the ledger.
//
// The claim is a single INSERT ... ON CONFLICT DO NOTHING, so exactly one of
// any set of concurrent callers wins; the losers observe the existing row and
// never see a constraint violation. An InProgress row older than lease is
// treated as abandoned and taken over via a conditional update; an expired
// Completed row is reclaimed the same way.
func BeginIdempotency(ctx context.Context, db *gorm.DB, owner, key string, lease, ttl time.Duration, now time.Time) (BeginOutcome, *domain.Idempotency, error) {
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		Owner:     owner,
		Key:       key,
		AttemptID: uuid.NewString(),
		State:     domain.IdempotencyInProgress,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "key"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return BeginInProgress, nil, res.Error
	}
	if res.RowsAffected == 1 {
		return BeginFresh, rec, nil
	}

	var existing domain.Idempotency
	err := db.WithContext(ctx).
		Where("owner = ? AND key = ?", owner, key).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Row vanished between insert and read; report in-progress and let the
		// caller's retry settle it.
		return BeginInProgress, nil, nil
	}
	if err != nil {
		return BeginInProgress, nil, err
	}

	if existing.State == domain.IdempotencyCompleted {
		if existing.ExpiresAt.After(now) {
			return BeginCompleted, &existing, nil
		}
		// Expired record: reclaim it for a fresh attempt. The conditional
		// WHERE makes concurrent reclaims resolve to a single winner, and the
		// new attempt id fences out the previous holder.
		attempt := uuid.NewString()
		upd := db.WithContext(ctx).Model(&domain.Idempotency{}).
			Where("owner = ? AND key = ? AND state = ? AND expires_at <= ?",
				owner, key, domain.IdempotencyCompleted, now).
			Updates(map[string]any{
				"attempt_id":      attempt,
				"state":           domain.IdempotencyInProgress,
				"response_status": 0,
				"response_body":   nil,
				"created_at":      now,
				"updated_at":      now,
				"expires_at":      now.Add(ttl),
			})
		if upd.Error != nil {
			return BeginInProgress, nil, upd.Error
		}
		if upd.RowsAffected == 1 {
			existing.AttemptID = attempt
			existing.State = domain.IdempotencyInProgress
			existing.CreatedAt = now
			return BeginFresh, &existing, nil
		}
		return BeginInProgress, &existing, nil
	}

	// InProgress: take over only if the holder's lease has run out, so a
	// crashed worker cannot block the key forever. The rotated attempt id
	// turns the old holder's eventual Complete/Release into a no-op.
	if !existing.CreatedAt.After(now.Add(-lease)) {
		attempt := uuid.NewString()
		upd := db.WithContext(ctx).Model(&domain.Idempotency{}).
			Where("owner = ? AND key = ? AND state = ? AND created_at <= ?",
				owner, key, domain.IdempotencyInProgress, now.Add(-lease)).
			Updates(map[string]any{
				"attempt_id": attempt,
				"created_at": now,
				"updated_at": now,
				"expires_at": now.Add(ttl),
			})
		if upd.Error != nil {
			return BeginInProgress, nil, upd.Error
		}
		if upd.RowsAffected == 1 {
			existing.AttemptID = attempt
			existing.CreatedAt = now
			return BeginFresh, &existing, nil
		}
	}
	return BeginInProgress, &existing, nil
}

// CompleteIdempotency transitions (owner, key) from InProgress to Completed,
// storing the response to replay on retries. It must run inside the same
// transaction as the side effect it guards, and attemptID must be the fencing
// token issued by BeginIdempotency for this attempt.
//
// Zero affected rows means the key was completed or taken over by another
// attempt; the call is then a no-op, never an error.
func CompleteIdempotency(ctx context.Context, tx *gorm.DB, owner, key, attemptID string, status int, body []byte, now time.Time) error {
	return tx.WithContext(ctx).Model(&domain.Idempotency{}).
		Where("owner = ? AND key = ? AND attempt_id = ? AND state = ?",
			owner, key, attemptID, domain.IdempotencyInProgress).
		Updates(map[string]any{
			"state":           domain.IdempotencyCompleted,
			"response_status": status,
			"response_body":   body,
			"updated_at":      now,
		}).Error
}

// GetIdempotency returns a non-expired ledger record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, owner, key string, now time.Time) (*domain.Idempotency, error) {
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("owner = ? AND key = ? AND expires_at > ?", owner, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReleaseIdempotency drops this attempt's own InProgress claim after the
// guarded operation failed, so a client retry does not have to wait out the
// lease. The attempt id fence keeps a stale attempt from dropping a claim a
// successor now holds; Completed records are never touched.
func ReleaseIdempotency(ctx context.Context, db *gorm.DB, owner, key, attemptID string) error {
	return db.WithContext(ctx).
		Where("owner = ? AND key = ? AND attempt_id = ? AND state = ?",
			owner, key, attemptID, domain.IdempotencyInProgress).
		Delete(&domain.Idempotency{}).Error
}
