// Package services – BlogService
//
// Blog post lifecycle: idempotent creation (admin POST carries an
// Idempotency-Key, same ledger as contact submissions), publishing, deletion,
// and the public listing. Posts are created unpublished.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/inkwell/go-contact-backend/internal/domain"
	"github.com/inkwell/go-contact-backend/internal/repo"
)

// BlogOwner scopes admin idempotency keys away from contact-form senders in
// the shared ledger.
const BlogOwner = "admin:blog"

// BlogService owns blog post persistence and publishing.
type BlogService struct {
	DB *gorm.DB

	IdempotencyLease time.Duration
	IdempotencyTTL   time.Duration
}

// BlogPostRequest is the admin payload for creating a post.
type BlogPostRequest struct {
	Title          string
	Content        string
	Excerpt        string
	Author         string
	IdempotencyKey string
}

// PostResult carries the (possibly replayed) creation response.
type PostResult struct {
	Status   int
	Body     []byte
	Replayed bool
}

// CreatePost validates and persists a new unpublished post under the
// idempotency ledger, so retried admin POSTs return the original result.
func (s *BlogService) CreatePost(ctx context.Context, req BlogPostRequest) (*PostResult, error) {
	tr := otel.Tracer("services/BlogService")
	ctx, span := tr.Start(ctx, "CreatePost")
	defer span.End()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	author := cases.Title(language.English).String(strings.TrimSpace(req.Author))
	slug := Slugify(title)
	span.SetAttributes(attribute.String("post.slug", slug))

	fp, err := ResolveFingerprint(BlogOwner, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	resp, replayed, err := ExecuteIdempotent(ctx, s.DB, fp, s.IdempotencyLease, s.IdempotencyTTL, func(tx *gorm.DB) (Response, error) {
		p, err := repo.CreateBlogPost(ctx, tx, title, slug, content, strings.TrimSpace(req.Excerpt), author, time.Now().UTC())
		if err != nil {
			return Response{}, err
		}
		b, err := json.Marshal(map[string]string{
			"message": "Post received successfully",
			"post_id": p.ID,
		})
		if err != nil {
			return Response{}, err
		}
		return Response{Status: http.StatusAccepted, Body: b}, nil
	})
	if errors.Is(err, repo.ErrSlugTaken) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, err
	}
	return &PostResult{Status: resp.Status, Body: resp.Body, Replayed: replayed}, nil
}

// Publish marks a post live.
func (s *BlogService) Publish(ctx context.Context, id string) error {
	err := repo.PublishBlogPost(ctx, s.DB, id, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	err := repo.DeleteBlogPost(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}

// ListPublished returns published posts, newest first.
func (s *BlogService) ListPublished(ctx context.Context, limit int) ([]domain.BlogPost, error) {
	return repo.ListPublishedPosts(ctx, s.DB, limit)
}

// GetBySlug returns a single published post.
func (s *BlogService) GetBySlug(ctx context.Context, slug string) (*domain.BlogPost, error) {
	p, err := repo.GetBlogPostBySlug(ctx, s.DB, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

var slugStripRE = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a post title: lowercased, non-alphanumeric
// runs collapsed to single hyphens.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
