// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the BlogPost
// model.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

// CreateBlogPost inserts a new unpublished post. A slug collision surfaces
// as ErrSlugTaken rather than a raw constraint failure.
func CreateBlogPost(ctx context.Context, db *gorm.DB, title, slug, content, excerpt, author string, now time.Time) (*domain.BlogPost, error) {
	p := &domain.BlogPost{
		ID:        uuid.NewString(),
		Title:     title,
		Slug:      slug,
		Content:   content,
		Excerpt:   excerpt,
		Author:    author,
		Published: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return p, nil
}

// PublishBlogPost marks a post live. Returns ErrNotFound for unknown IDs.
func PublishBlogPost(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).Model(&domain.BlogPost{}).
		Where("id = ?", id).
		Updates(map[string]any{"published": true, "published_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBlogPost removes a post. Returns ErrNotFound for unknown IDs.
func DeleteBlogPost(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.BlogPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublishedPosts returns published posts newest first.
func ListPublishedPosts(ctx context.Context, db *gorm.DB, limit int) ([]domain.BlogPost, error) {
	var out []domain.BlogPost
	q := db.WithContext(ctx).
		Where("published = ?", true).
		Order("published_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetBlogPostBySlug fetches a published post by slug or ErrNotFound.
func GetBlogPostBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.BlogPost, error) {
	var p domain.BlogPost
	err := db.WithContext(ctx).
		Where("slug = ? AND published = ?", slug, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
