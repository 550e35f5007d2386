// Contact submission endpoint.
//
// POST /api/contact accepts a visitor message and runs it through the guarded
// pipeline (idempotency ledger, per-sender rate window, duplicate-content
// suppression). The handler is transport-thin: it binds and forwards, then
// writes whatever status/body the pipeline produced. Replays carry the
// Idempotency-Replayed: true header and a byte-identical body.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkwell/go-contact-backend/internal/http/middleware"
	"github.com/inkwell/go-contact-backend/internal/services"
)

// ContactRequest is the JSON payload for submitting a contact message.
type ContactRequest struct {
	Email       string `json:"email" binding:"required"`
	SenderName  string `json:"sender_name" binding:"required"`
	MessageText string `json:"message_text" binding:"required"`
}

// SubmitContact handles POST /api/contact.
func (h *Handlers) SubmitContact(c *gin.Context) {
	ctx := c.Request.Context()

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, sender_name and message_text are required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey == "" {
		// No validator upstream (tests mount handlers directly).
		idemKey = c.GetHeader(middleware.HeaderIdempotencyKey)
	}

	result, err := h.subSvc.Submit(ctx, services.SubmissionRequest{
		Email:          req.Email,
		SenderName:     req.SenderName,
		Body:           req.MessageText,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid email address")
		case errors.Is(err, services.ErrNameLength):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender name must be 2-100 characters")
		case errors.Is(err, services.ErrMessageLength):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must be 10-5000 characters")
		case errors.Is(err, services.ErrInvalidIdempotencyKey):
			fail(c, http.StatusBadRequest, ErrCodeBadIdempotencyKey, "invalid Idempotency-Key")
		case errors.Is(err, services.ErrProcessing):
			fail(c, http.StatusConflict, ErrCodeProcessing, "request with this key is still being processed")
		case errors.Is(err, services.ErrStoreUnavailable):
			c.Header("Retry-After", "1")
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store temporarily unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		}
		return
	}

	if result.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	c.Data(result.Status, "application/json; charset=utf-8", result.Body)
}
