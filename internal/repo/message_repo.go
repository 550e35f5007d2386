// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the duplicate-suppressing conditional insert used by the
// submission pipeline.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

// InsertMessageUnlessDuplicate inserts a message only if no message from the
// same sender with the same content hash exists inside the suppression
// window. The check and the insert are one statement, so two concurrent
// identical submissions cannot both pass a pre-check and both land.
//
// Returns ErrDuplicateMessage when the insert was suppressed.
func InsertMessageUnlessDuplicate(ctx context.Context, db *gorm.DB, senderEmail, senderName, body, contentHash string, window time.Duration, now time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:          uuid.NewString(),
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Body:        body,
		ContentHash: contentHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := db.WithContext(ctx).Exec(`
		INSERT INTO messages (id, sender_email, sender_name, body, content_hash, is_read, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM messages
			WHERE sender_email = ? AND content_hash = ? AND created_at > ?
		)`,
		m.ID, m.SenderEmail, m.SenderName, m.Body, m.ContentHash, false, m.CreatedAt, m.UpdatedAt,
		senderEmail, contentHash, now.Add(-window),
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateMessage
	}
	return m, nil
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages").Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered newest first
// (CreatedAt DESC, ID DESC) for the admin dashboard.
func ListMessagesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SetMessageRead flips the admin read flag. Returns ErrNotFound when the
// message does not exist.
func SetMessageRead(ctx context.Context, db *gorm.DB, id string, read bool, now time.Time) error {
	res := db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": read, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
