// Package analytics is the fire-and-forget metrics/analytics sink consumed
// by the submission pipeline and the public visit endpoint. Nothing in here
// may influence a request's outcome: failures are logged and dropped.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/inkwell/go-contact-backend/internal/repo"
)

// submissionOutcomes counts terminal pipeline states by verdict. Verdicts
// are a small fixed set, so label cardinality stays bounded.
var submissionOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "submission_outcomes_total",
		Help: "Terminal contact-submission outcomes by verdict.",
	},
	[]string{"verdict"},
)

func init() {
	prometheus.MustRegister(submissionOutcomes)
}

type visit struct {
	pagePath       string
	referrerDomain string
	sessionHash    string
	durationMS     int64
	at             time.Time
}

// Sink records submission outcomes and page visits asynchronously. Visits
// flow through a bounded queue to a single writer goroutine; when the queue
// is full new visits are dropped (and counted in logs), never blocked on.
type Sink struct {
	db     *gorm.DB
	logger zerolog.Logger
	visits chan visit
	done   chan struct{}
}

// NewSink constructs a Sink and starts its writer goroutine.
func NewSink(db *gorm.DB) *Sink {
	s := &Sink{
		db:     db,
		logger: log.With().Str("component", "analytics").Logger(),
		visits: make(chan visit, 256),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Close drains the queue and stops the writer goroutine.
func (s *Sink) Close() {
	close(s.visits)
	<-s.done
}

// RecordSubmission counts a terminal pipeline outcome. The sender identity is
// hashed before logging; raw addresses never reach the log stream.
func (s *Sink) RecordSubmission(verdict string, sender string) {
	submissionOutcomes.WithLabelValues(verdict).Inc()
	s.logger.Debug().
		Str("verdict", verdict).
		Str("sender_hash", shortHash(sender)).
		Msg("submission outcome")
}

// RecordPageVisit queues one analytics row. Non-blocking.
func (s *Sink) RecordPageVisit(pagePath, referrerDomain, sessionHash string, durationMS int64) {
	v := visit{
		pagePath:       pagePath,
		referrerDomain: referrerDomain,
		sessionHash:    sessionHash,
		durationMS:     durationMS,
		at:             time.Now().UTC(),
	}
	select {
	case s.visits <- v:
	default:
		s.logger.Warn().Str("page_path", pagePath).Msg("visit queue full, dropping event")
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for v := range s.visits {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := repo.CreatePageVisit(ctx, s.db, v.pagePath, v.referrerDomain, v.sessionHash, v.durationMS, v.at)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("page_path", v.pagePath).Msg("failed to record page visit")
		}
	}
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}
