// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import (
	"time"
)

// Message is a contact submission accepted by the guarded write path.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - SenderEmail: normalized (lowercased, trimmed) sender identity.
//   - SenderName: display name supplied by the sender.
//   - Body: full message text.
//   - ContentHash: SHA-256 hex digest of the normalized body; together with
//     SenderEmail and CreatedAt it backs duplicate suppression.
//   - IsRead: admin dashboard flag, flipped via PATCH /admin/messages.
//
// The composite index on (sender_email, content_hash, created_at) serves the
// duplicate-suppression predicate evaluated at insert time.
type Message struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	SenderEmail string    `json:"sender_email" gorm:"type:varchar(254);not null;index:idx_sender_dupe,priority:1"`
	SenderName  string    `json:"sender_name"  gorm:"type:varchar(100);not null"`
	Body        string    `json:"body"         gorm:"type:text;not null"`
	ContentHash string    `json:"-"            gorm:"type:char(64);not null;index:idx_sender_dupe,priority:2"`
	IsRead      bool      `json:"is_read"      gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_sender_dupe,priority:3"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// BlogPost is an article served by the public blog endpoints and managed via
// the admin API. Posts are created unpublished and flipped live via PATCH.
type BlogPost struct {
	ID          string     `json:"id"        gorm:"type:char(36);primaryKey"`
	Title       string     `json:"title"     gorm:"type:varchar(255);not null"`
	Slug        string     `json:"slug"      gorm:"type:varchar(255);not null;uniqueIndex:ux_blog_slug"`
	Content     string     `json:"content"   gorm:"type:text;not null"`
	Excerpt     string     `json:"excerpt"   gorm:"type:text"`
	Author      string     `json:"author"    gorm:"type:varchar(100);not null"`
	Published   bool       `json:"published" gorm:"not null;default:false;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// TableName returns the database table name for BlogPost.
func (BlogPost) TableName() string { return "blog_posts" }

// PageVisit is a fire-and-forget analytics row recorded by the metrics sink.
// Failures writing these rows never affect request outcomes.
type PageVisit struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	PagePath       string    `json:"page_path"       gorm:"type:varchar(255);not null;index"`
	ReferrerDomain string    `json:"referrer_domain" gorm:"type:varchar(255)"`
	SessionHash    string    `json:"session_hash"    gorm:"type:char(64)"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for PageVisit.
func (PageVisit) TableName() string { return "page_visits" }
