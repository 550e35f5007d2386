// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file records page-visit analytics rows; callers treat
// these writes as fire-and-forget.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

// CreatePageVisit inserts one analytics row.
func CreatePageVisit(ctx context.Context, db *gorm.DB, pagePath, referrerDomain, sessionHash string, durationMS int64, now time.Time) error {
	v := &domain.PageVisit{
		ID:             uuid.NewString(),
		PagePath:       pagePath,
		ReferrerDomain: referrerDomain,
		SessionHash:    sessionHash,
		DurationMS:     durationMS,
		CreatedAt:      now,
	}
	return db.WithContext(ctx).Create(v).Error
}
