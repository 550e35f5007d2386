// Blog endpoints.
//
// Public surface:
//   - GET /api/blog             (published posts, newest first, ETag)
//   - GET /api/blog/:slug       (single published post)
//
// Admin surface (X-Admin-Token guarded):
//   - POST   /api/admin/blog            (idempotent creation)
//   - PATCH  /api/admin/blog/:id/publish
//   - DELETE /api/admin/blog/:id
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkwell/go-contact-backend/internal/domain"
	"github.com/inkwell/go-contact-backend/internal/http/middleware"
	"github.com/inkwell/go-contact-backend/internal/repo"
	"github.com/inkwell/go-contact-backend/internal/services"
)

// CreatePostRequest is the JSON payload for creating a blog post.
type CreatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	Excerpt string `json:"excerpt"`
	Author  string `json:"author"`
}

// ListPostsResponse wraps the published posts listing.
type ListPostsResponse struct {
	Posts []domain.BlogPost `json:"posts"`
}

// ListPosts handles GET /api/blog.
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()

	if h.blogSvc.DB != nil {
		count, maxTS, err := repo.PublishedPostsStats(ctx, h.blogSvc.DB)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"posts:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	posts, err := h.blogSvc.ListPublished(ctx, 50)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{Posts: posts})
}

// GetPost handles GET /api/blog/:slug.
func (h *Handlers) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	p, err := h.blogSvc.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// CreatePost handles POST /api/admin/blog.
func (h *Handlers) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and content are required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey == "" {
		idemKey = c.GetHeader(middleware.HeaderIdempotencyKey)
	}

	result, err := h.blogSvc.CreatePost(ctx, services.BlogPostRequest{
		Title:          req.Title,
		Content:        req.Content,
		Excerpt:        req.Excerpt,
		Author:         req.Author,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyTitle), errors.Is(err, services.ErrEmptyContent):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrInvalidIdempotencyKey):
			fail(c, http.StatusBadRequest, ErrCodeBadIdempotencyKey, "invalid Idempotency-Key")
		case errors.Is(err, services.ErrSlugTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "a post with this slug already exists")
		case errors.Is(err, services.ErrProcessing):
			fail(c, http.StatusConflict, ErrCodeProcessing, "request with this key is still being processed")
		case errors.Is(err, services.ErrStoreUnavailable):
			c.Header("Retry-After", "1")
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store temporarily unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	if result.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	c.Data(result.Status, "application/json; charset=utf-8", result.Body)
}

// PublishPost handles PATCH /api/admin/blog/:id/publish.
func (h *Handlers) PublishPost(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	if err := h.blogSvc.Publish(ctx, id); err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// DeletePost handles DELETE /api/admin/blog/:id.
func (h *Handlers) DeletePost(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a UUID")
		return
	}

	if err := h.blogSvc.Delete(ctx, id); err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
