// Page-visit analytics endpoint.
//
// POST /api/visit accepts a small beacon from the site frontend and hands it
// to the analytics sink. The response is always 202: analytics failures are
// never surfaced to visitors.
package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// VisitRequest is the JSON payload for recording a page visit.
type VisitRequest struct {
	PagePath       string `json:"page_path" binding:"required"`
	ReferrerDomain string `json:"referrer_domain"`
	SessionHash    string `json:"session_hash"`
	DurationMS     int64  `json:"duration_ms"`
}

// RecordVisit handles POST /api/visit.
func (h *Handlers) RecordVisit(c *gin.Context) {
	var req VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "page_path is required")
		return
	}

	path := strings.TrimSpace(req.PagePath)
	if path == "" || !strings.HasPrefix(path, "/") || utf8.RuneCountInString(path) > 512 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "page_path must be a site-relative path")
		return
	}
	if req.DurationMS < 0 {
		req.DurationMS = 0
	}

	if h.visits != nil {
		h.visits.RecordPageVisit(path, strings.TrimSpace(req.ReferrerDomain), strings.TrimSpace(req.SessionHash), req.DurationMS)
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "recorded"})
}
