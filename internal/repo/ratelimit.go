// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the durable fixed-window rate limiter
// keyed by sender identity.
//
// The window is fixed, not sliding: a sender can use the full quota at the
// tail of one window and again right after the reset. That boundary burst is
// a documented trade-off for keeping every step a single conditional
// statement against the store.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

// TakeRateLimitSlot performs the atomic check-and-increment for sender.
// It reports whether the submission is allowed under maxPerWindow within the
// current window. Rejected calls leave the counter untouched.
//
// Each step is one conditional statement, so two concurrent requests can
// never both read "below cap" and both increment past it:
//  1. insert a fresh window row if the sender has none (count = 1);
//  2. reset the window if it has elapsed (count = 1);
//  3. increment only while count < maxPerWindow inside the live window.
func TakeRateLimitSlot(ctx context.Context, db *gorm.DB, sender string, maxPerWindow int, window time.Duration, now time.Time) (bool, error) {
	if maxPerWindow <= 0 {
		return false, nil
	}

	row := &domain.RateLimitWindow{
		SenderIdentity: sender,
		Count:          1,
		WindowStart:    now,
		LastSeenAt:     now,
	}
	ins := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sender_identity"}},
			DoNothing: true,
		}).
		Create(row)
	if ins.Error != nil {
		return false, ins.Error
	}
	if ins.RowsAffected == 1 {
		return true, nil
	}

	windowFloor := now.Add(-window)

	reset := db.WithContext(ctx).Model(&domain.RateLimitWindow{}).
		Where("sender_identity = ? AND window_start <= ?", sender, windowFloor).
		Updates(map[string]any{
			"count":        1,
			"window_start": now,
			"last_seen_at": now,
		})
	if reset.Error != nil {
		return false, reset.Error
	}
	if reset.RowsAffected == 1 {
		return true, nil
	}

	inc := db.WithContext(ctx).Model(&domain.RateLimitWindow{}).
		Where("sender_identity = ? AND window_start > ? AND count < ?", sender, windowFloor, maxPerWindow).
		Updates(map[string]any{
			"count":        gorm.Expr("count + 1"),
			"last_seen_at": now,
		})
	if inc.Error != nil {
		return false, inc.Error
	}
	return inc.RowsAffected == 1, nil
}

// GetRateLimitWindow returns the current window row for sender, or
// ErrNotFound if the sender has never submitted.
func GetRateLimitWindow(ctx context.Context, db *gorm.DB, sender string) (*domain.RateLimitWindow, error) {
	var row domain.RateLimitWindow
	err := db.WithContext(ctx).
		Where("sender_identity = ?", sender).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
