// Package services – idempotent execution.
//
// ExecuteIdempotent is the reusable wrapper shared by every write endpoint
// that honors Idempotency-Key (contact submissions, admin blog posts). It
// claims the fingerprint in the durable ledger, runs the guarded operation
// inside one transaction together with the ledger completion, and replays the
// stored response for retried requests. Store contention (SQLite busy/locked)
// is retried a bounded number of times before surfacing as
// ErrStoreUnavailable.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/inkwell/go-contact-backend/internal/domain"
	"github.com/inkwell/go-contact-backend/internal/repo"
)

// Response is the caller-visible payload captured by the ledger on
// completion and replayed verbatim on idempotent retry.
type Response struct {
	Status int
	Body   []byte
}

const (
	storeRetryAttempts = 3
	storeRetryBackoff  = 50 * time.Millisecond
)

// isStoreBusy reports whether err looks like transient SQLite contention.
// Only these failures are retried: nothing was durably advanced.
func isStoreBusy(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "database is locked") ||
		strings.Contains(low, "database table is locked") ||
		strings.Contains(low, "sqlite_busy")
}

// withStoreRetry runs fn up to storeRetryAttempts times, backing off between
// attempts, and wraps persistent contention in ErrStoreUnavailable.
func withStoreRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isStoreBusy(err) {
			return err
		}
		time.Sleep(storeRetryBackoff << attempt)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ExecuteIdempotent runs op under the idempotency ledger.
//
// For a non-idempotent fingerprint op simply runs in its own transaction.
// Otherwise:
//   - a completed key returns the stored response with replayed == true;
//   - an in-flight key (within its lease) returns ErrProcessing;
//   - a fresh claim runs op and repo.CompleteIdempotency in one transaction,
//     so the side effect and the ledger entry commit or roll back together.
//
// When op fails, this attempt's InProgress claim is released so an immediate
// client retry does not have to wait out the lease.
func ExecuteIdempotent(ctx context.Context, db *gorm.DB, fp Fingerprint, lease, ttl time.Duration, op func(tx *gorm.DB) (Response, error)) (Response, bool, error) {
	now := time.Now().UTC()

	if !fp.Idempotent {
		var resp Response
		err := withStoreRetry(func() error {
			return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				r, err := op(tx)
				if err != nil {
					return err
				}
				resp = r
				return nil
			})
		})
		return resp, false, err
	}

	var (
		outcome repo.BeginOutcome
		rec     *domain.Idempotency
	)
	err := withStoreRetry(func() error {
		var e error
		outcome, rec, e = repo.BeginIdempotency(ctx, db, fp.Owner, fp.Key, lease, ttl, now)
		return e
	})
	if err != nil {
		return Response{}, false, err
	}

	switch outcome {
	case repo.BeginCompleted:
		return Response{Status: rec.ResponseStatus, Body: rec.ResponseBody}, true, nil
	case repo.BeginInProgress:
		return Response{}, false, ErrProcessing
	}

	var resp Response
	err = withStoreRetry(func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			r, err := op(tx)
			if err != nil {
				return err
			}
			resp = r
			return repo.CompleteIdempotency(ctx, tx, fp.Owner, fp.Key, rec.AttemptID, r.Status, r.Body, time.Now().UTC())
		})
	})
	if err != nil {
		_ = repo.ReleaseIdempotency(ctx, db, fp.Owner, fp.Key, rec.AttemptID)
		return Response{}, false, err
	}
	return resp, false, nil
}
