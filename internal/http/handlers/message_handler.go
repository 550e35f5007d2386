// Admin message dashboard endpoints.
//
//   - GET   /api/admin/messages        (paginated listing, newest first)
//   - PATCH /api/admin/messages/:id    (flip the read flag)
//
// The listing supports conditional requests: a weak ETag derived from the
// row count and newest update timestamp, so dashboard polling is cheap.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkwell/go-contact-backend/internal/domain"
	"github.com/inkwell/go-contact-backend/internal/repo"
	"github.com/inkwell/go-contact-backend/internal/services"
)

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// MarkReadRequest is the JSON payload for PATCH /api/admin/messages/:id.
type MarkReadRequest struct {
	IsRead *bool `json:"is_read" binding:"required"`
}

// ListMessages handles GET /api/admin/messages.
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if h.msgSvc.DB != nil {
		count, maxTS, err := repo.MessagesStats(ctx, h.msgSvc.DB)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// MarkMessageRead handles PATCH /api/admin/messages/:id.
func (h *Handlers) MarkMessageRead(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsRead == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "is_read is required")
		return
	}

	if err := h.msgSvc.SetRead(ctx, id, *req.IsRead); err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
