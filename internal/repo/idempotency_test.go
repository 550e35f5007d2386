package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

func newGuardDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("guard_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

const (
	testLease = 30 * time.Second
	testTTL   = 24 * time.Hour
)

func TestBeginIdempotency_FreshClaim(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	outcome, rec, err := BeginIdempotency(context.Background(), db, "a@example.com", "key-1", testLease, testTTL, now)
	if err != nil {
		t.Fatalf("BeginIdempotency: %v", err)
	}
	if outcome != BeginFresh {
		t.Fatalf("outcome = %v, want BeginFresh", outcome)
	}
	if rec == nil || rec.State != domain.IdempotencyInProgress {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestBeginIdempotency_SecondClaimSeesInProgress(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	ctx := context.Background()

	if outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now); err != nil || outcome != BeginFresh {
		t.Fatalf("first claim: outcome=%v err=%v", outcome, err)
	}

	outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now.Add(time.Second))
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if outcome != BeginInProgress {
		t.Fatalf("outcome = %v, want BeginInProgress", outcome)
	}
}

func TestBeginIdempotency_DistinctOwnersDoNotCollide(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	ctx := context.Background()

	if outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "shared-key", testLease, testTTL, now); err != nil || outcome != BeginFresh {
		t.Fatalf("owner a: outcome=%v err=%v", outcome, err)
	}
	if outcome, _, err := BeginIdempotency(ctx, db, "b@example.com", "shared-key", testLease, testTTL, now); err != nil || outcome != BeginFresh {
		t.Fatalf("owner b: outcome=%v err=%v", outcome, err)
	}
}

func TestBeginIdempotency_CompletedReplays(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	ctx := context.Background()

	_, claim, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	body := []byte(`{"message_id":"m1"}`)
	if err := CompleteIdempotency(ctx, db, "a@example.com", "key-1", claim.AttemptID, 202, body, now); err != nil {
		t.Fatalf("complete: %v", err)
	}

	outcome, rec, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("replay claim: %v", err)
	}
	if outcome != BeginCompleted {
		t.Fatalf("outcome = %v, want BeginCompleted", outcome)
	}
	if rec.ResponseStatus != 202 || string(rec.ResponseBody) != string(body) {
		t.Fatalf("stored response mismatch: status=%d body=%s", rec.ResponseStatus, rec.ResponseBody)
	}
}

func TestBeginIdempotency_LeaseTakeover(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()

	if outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, start); err != nil || outcome != BeginFresh {
		t.Fatalf("initial claim: outcome=%v err=%v", outcome, err)
	}

	// Within the lease the key stays held.
	outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, start.Add(testLease/2))
	if err != nil || outcome != BeginInProgress {
		t.Fatalf("mid-lease: outcome=%v err=%v", outcome, err)
	}

	// After the lease, the abandoned claim is taken over.
	outcome, _, err = BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, start.Add(testLease+time.Second))
	if err != nil {
		t.Fatalf("post-lease: %v", err)
	}
	if outcome != BeginFresh {
		t.Fatalf("outcome = %v, want BeginFresh after lease takeover", outcome)
	}
}

func TestBeginIdempotency_ExpiredCompletedReclaimed(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()
	ttl := time.Hour

	_, claim, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, ttl, start)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := CompleteIdempotency(ctx, db, "a@example.com", "key-1", claim.AttemptID, 202, []byte("{}"), start); err != nil {
		t.Fatalf("complete: %v", err)
	}

	outcome, reclaimed, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, ttl, start.Add(ttl+time.Minute))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if outcome != BeginFresh {
		t.Fatalf("outcome = %v, want BeginFresh for expired record", outcome)
	}
	if reclaimed.AttemptID == claim.AttemptID {
		t.Fatal("reclaim must rotate the attempt id")
	}
}

func TestCompleteIdempotency_NoRowIsNoop(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})

	if err := CompleteIdempotency(context.Background(), db, "a@example.com", "missing", "no-such-attempt", 202, nil, time.Now().UTC()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestGetIdempotency_ExpiredIsNotFound(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()
	ttl := time.Hour

	_, claim, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, ttl, start)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := CompleteIdempotency(ctx, db, "a@example.com", "key-1", claim.AttemptID, 202, nil, start); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "a@example.com", "key-1", start.Add(30*time.Minute)); err != nil {
		t.Fatalf("live record: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "a@example.com", "key-1", start.Add(2*time.Hour)); err != ErrNotFound {
		t.Fatalf("expired record: err=%v, want ErrNotFound", err)
	}
}

func TestReleaseIdempotency_OnlyDropsInProgress(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	_, claim, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ReleaseIdempotency(ctx, db, "a@example.com", "key-1", claim.AttemptID); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Key is free again.
	outcome, claim, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now)
	if err != nil || outcome != BeginFresh {
		t.Fatalf("reclaim after release: outcome=%v err=%v", outcome, err)
	}

	if err := CompleteIdempotency(ctx, db, "a@example.com", "key-1", claim.AttemptID, 202, nil, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := ReleaseIdempotency(ctx, db, "a@example.com", "key-1", claim.AttemptID); err != nil {
		t.Fatalf("release completed: %v", err)
	}
	outcome, _, err = BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, now.Add(time.Second))
	if err != nil || outcome != BeginCompleted {
		t.Fatalf("completed record must survive release: outcome=%v err=%v", outcome, err)
	}
}

func TestCompleteIdempotency_StaleAttemptCannotWinLedger(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()

	// Worker A claims, then goes silent past its lease.
	_, claimA, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, start)
	if err != nil {
		t.Fatalf("claim A: %v", err)
	}

	// Worker B takes over the abandoned claim.
	outcome, claimB, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, start.Add(testLease+time.Second))
	if err != nil || outcome != BeginFresh {
		t.Fatalf("takeover: outcome=%v err=%v", outcome, err)
	}
	if claimB.AttemptID == claimA.AttemptID {
		t.Fatal("takeover must rotate the attempt id")
	}

	// A revives and tries to complete with its pre-takeover token: no-op.
	if err := CompleteIdempotency(ctx, db, "a@example.com", "key-1", claimA.AttemptID, 500, []byte(`{"stale":"A"}`), start.Add(testLease+2*time.Second)); err != nil {
		t.Fatalf("stale complete: %v", err)
	}

	// B's completion must land.
	bodyB := []byte(`{"message_id":"B"}`)
	if err := CompleteIdempotency(ctx, db, "a@example.com", "key-1", claimB.AttemptID, 202, bodyB, start.Add(testLease+3*time.Second)); err != nil {
		t.Fatalf("complete B: %v", err)
	}

	rec, err := GetIdempotency(ctx, db, "a@example.com", "key-1", start.Add(testLease+4*time.Second))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ResponseStatus != 202 || string(rec.ResponseBody) != string(bodyB) {
		t.Fatalf("ledger holds stale result: status=%d body=%s", rec.ResponseStatus, rec.ResponseBody)
	}
}

func TestReleaseIdempotency_StaleAttemptCannotDropSuccessor(t *testing.T) {
	db := newGuardDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()

	_, claimA, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, start)
	if err != nil {
		t.Fatalf("claim A: %v", err)
	}
	takeover := start.Add(testLease + time.Second)
	if outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, takeover); err != nil || outcome != BeginFresh {
		t.Fatalf("takeover: outcome=%v err=%v", outcome, err)
	}

	// A's failure path releases with its stale token; B's claim must survive.
	if err := ReleaseIdempotency(ctx, db, "a@example.com", "key-1", claimA.AttemptID); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	outcome, _, err := BeginIdempotency(ctx, db, "a@example.com", "key-1", testLease, testTTL, takeover.Add(time.Second))
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if outcome != BeginInProgress {
		t.Fatalf("outcome = %v, want BeginInProgress while the successor holds the key", outcome)
	}
}
