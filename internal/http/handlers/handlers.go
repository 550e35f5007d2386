// Handler wiring shared by all endpoint files.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/inkwell/go-contact-backend/internal/services"
	"github.com/inkwell/go-contact-backend/internal/utils"
)

// VisitRecorder receives page-visit events. Implementations must be
// fire-and-forget; the handler never waits on them.
type VisitRecorder interface {
	RecordPageVisit(pagePath, referrerDomain, sessionHash string, durationMS int64)
}

// Handlers groups the HTTP endpoints for contact submissions, the admin
// message dashboard, blog posts, and page-visit analytics.
type Handlers struct {
	subSvc  *services.SubmissionService
	msgSvc  *services.MessageService
	blogSvc *services.BlogService
	visits  VisitRecorder
}

// New constructs a Handlers instance bound to the given services.
func New(subSvc *services.SubmissionService, msgSvc *services.MessageService, blogSvc *services.BlogService, visits VisitRecorder) *Handlers {
	return &Handlers{subSvc: subSvc, msgSvc: msgSvc, blogSvc: blogSvc, visits: visits}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
