// Package services – SubmissionService
//
// This file implements the guarded write path for contact submissions. Each
// submission runs through a fixed pipeline: fingerprint resolution, the
// idempotency ledger, the per-sender rate limiter, the duplicate-content
// suppressor, and finally the message insert. Everything from the ledger
// claim onward executes inside one transaction, so a mid-pipeline failure
// can neither leak a rate-limit increment without a message row nor leave
// the ledger pointing at a result that never happened.
//
// Guard rejections are results too: they are completed into the ledger under
// the request's key, so a retried rejected request replays the same verdict
// without re-running the guards.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell/go-contact-backend/internal/repo"
)

// Verdict is the terminal outcome of one submission attempt.
type Verdict string

const (
	VerdictAccepted    Verdict = "accepted"
	VerdictRateLimited Verdict = "rate_limited"
	VerdictDuplicate   Verdict = "duplicate"
	VerdictProcessing  Verdict = "processing"
	VerdictReplayed    Verdict = "replayed"
)

// OutcomeRecorder receives terminal pipeline outcomes. Implementations must
// be fire-and-forget: the pipeline ignores their failures entirely.
type OutcomeRecorder interface {
	RecordSubmission(verdict string, sender string)
}

// SubmissionRequest is one inbound contact submission.
type SubmissionRequest struct {
	Email          string
	SenderName     string
	Body           string
	IdempotencyKey string
}

// SubmissionResult is the terminal state of a processed submission. Status
// and Body are exactly what the ledger stores, so a replayed request is
// byte-identical to the original response.
type SubmissionResult struct {
	Verdict   Verdict
	Status    int
	Body      []byte
	MessageID string
	Replayed  bool
}

// SubmissionService orchestrates the submission pipeline against the shared
// durable store.
type SubmissionService struct {
	DB   *gorm.DB
	Sink OutcomeRecorder

	// Guard configuration; all externally supplied.
	MaxPerWindow     int
	RateWindow       time.Duration
	DuplicateWindow  time.Duration
	IdempotencyLease time.Duration
	IdempotencyTTL   time.Duration
}

// emailRE is a deliberately loose shape check; real validation of contact
// addresses happens by replying to them.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Submit runs req through the full pipeline and returns its terminal result.
//
// Errors: validation failures (ErrInvalidEmail, ErrNameLength,
// ErrMessageLength, ErrInvalidIdempotencyKey) surface before any store
// access; ErrProcessing reports a concurrent in-flight attempt with the same
// key; ErrStoreUnavailable reports a store that stayed contended past the
// bounded retry budget.
func (s *SubmissionService) Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.Bool("submission.idempotent", strings.TrimSpace(req.IdempotencyKey) != ""),
		),
	)
	defer span.End()

	sender := NormalizeSender(req.Email)
	if !emailRE.MatchString(sender) {
		return nil, ErrInvalidEmail
	}
	name := strings.TrimSpace(req.SenderName)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return nil, ErrNameLength
	}
	body := normalizeBody(req.Body)
	if n := utf8.RuneCountInString(body); n < 10 || n > 5000 {
		return nil, ErrMessageLength
	}

	fp, err := ResolveFingerprint(sender, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	hash := ContentHash(body)

	var (
		verdict   Verdict
		messageID string
	)
	resp, replayed, err := ExecuteIdempotent(ctx, s.DB, fp, s.IdempotencyLease, s.IdempotencyTTL, func(tx *gorm.DB) (Response, error) {
		now := time.Now().UTC()

		allowed, err := repo.TakeRateLimitSlot(ctx, tx, sender, s.MaxPerWindow, s.RateWindow, now)
		if err != nil {
			return Response{}, err
		}
		if !allowed {
			verdict = VerdictRateLimited
			return rejectionResponse(http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
		}

		m, err := repo.InsertMessageUnlessDuplicate(ctx, tx, sender, name, body, hash, s.DuplicateWindow, now)
		if errors.Is(err, repo.ErrDuplicateMessage) {
			verdict = VerdictDuplicate
			return rejectionResponse(http.StatusConflict, "duplicate_message", "duplicate message detected")
		}
		if err != nil {
			return Response{}, err
		}

		verdict = VerdictAccepted
		messageID = m.ID
		return acceptedResponse(m.ID)
	})
	if errors.Is(err, ErrProcessing) {
		s.record(VerdictProcessing, sender)
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if replayed {
		verdict = VerdictReplayed
	}
	span.SetAttributes(attribute.String("submission.verdict", string(verdict)))
	s.record(verdict, sender)

	return &SubmissionResult{
		Verdict:   verdict,
		Status:    resp.Status,
		Body:      resp.Body,
		MessageID: messageID,
		Replayed:  replayed,
	}, nil
}

func (s *SubmissionService) record(v Verdict, sender string) {
	if s.Sink != nil {
		s.Sink.RecordSubmission(string(v), sender)
	}
}

// ContentHash returns the hex SHA-256 digest of the normalized body, used as
// the duplicate-suppression fingerprint.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// normalizeBody canonicalizes line endings and trims surrounding whitespace
// so trivially reformatted resubmissions hash identically.
func normalizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

type submissionAck struct {
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}

type submissionRejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func acceptedResponse(messageID string) (Response, error) {
	b, err := json.Marshal(submissionAck{
		Message:   "Message received successfully",
		MessageID: messageID,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Status: http.StatusAccepted, Body: b}, nil
}

func rejectionResponse(status int, code, msg string) (Response, error) {
	b, err := json.Marshal(submissionRejection{Code: code, Message: msg})
	if err != nil {
		return Response{}, err
	}
	return Response{Status: status, Body: b}, nil
}
