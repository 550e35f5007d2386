// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and edge rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/inkwell/go-contact-backend/internal/config"
	"github.com/inkwell/go-contact-backend/internal/http/handlers"
	"github.com/inkwell/go-contact-backend/internal/http/middleware"
	"github.com/inkwell/go-contact-backend/internal/repo"
	"github.com/inkwell/go-contact-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip compression
//  8. Idempotency validator (before the rate limiter to allow replay bypass)
//  9. Edge rate limiter (Redis-backed when configured, else token buckets)
//  10. CORS and security headers
//
// rdb may be nil; the edge limiter then runs process-local only. visits may
// be nil in tests.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, visits handlers.VisitRecorder, sink services.OutcomeRecorder, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB: largest legal payload is a 5000-rune
	// message plus envelope)
	r.Use(limitBody(64 << 10))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compress list-shaped responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) Idempotency-Key shape validation. Replay lookup only works where the
	// ledger owner is known before body parsing, i.e. the admin blog surface;
	// contact submissions are keyed by sender address and resolve replays in
	// the service layer.
	adminBlogPrefix := cfg.APIBasePath + "/admin/blog"
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			Owner: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && strings.HasPrefix(c.Request.URL.Path, adminBlogPrefix) {
					return services.BlogOwner
				}
				return ""
			},
		},
		func(ctx context.Context, owner, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, owner, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Edge rate limiter per client IP. The durable per-sender window is
	// enforced inside the submission transaction; this layer only sheds load.
	local := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	if rdb != nil {
		shared := middleware.NewRedisWindowLimiter(rdb, "contact", cfg.RateBurst, time.Second, local, middleware.KeyByIP())
		r.Use(shared.Handler())
	} else {
		r.Use(local.Handler())
	}

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderAdminToken, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Idempotency-Replayed", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderAdminToken, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Idempotency-Replayed", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health_check", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db/config
	subSvc := &services.SubmissionService{
		DB:               db,
		Sink:             sink,
		MaxPerWindow:     cfg.Guard.MaxPerWindow,
		RateWindow:       cfg.Guard.RateWindow,
		DuplicateWindow:  cfg.Guard.DuplicateWindow,
		IdempotencyLease: cfg.Guard.IdempotencyLease,
		IdempotencyTTL:   cfg.Guard.IdempotencyTTL,
	}
	msgSvc := &services.MessageService{DB: db}
	blogSvc := &services.BlogService{
		DB:               db,
		IdempotencyLease: cfg.Guard.IdempotencyLease,
		IdempotencyTTL:   cfg.Guard.IdempotencyTTL,
	}
	h := handlers.New(subSvc, msgSvc, blogSvc, visits)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Public
		api.POST("/contact", h.SubmitContact)
		api.POST("/visit", h.RecordVisit)
		api.GET("/blog", h.ListPosts)
		api.GET("/blog/:slug", h.GetPost)

		// Admin
		admin := api.Group("/admin", middleware.AdminAuth(cfg.AdminToken))
		{
			admin.GET("/messages", h.ListMessages)
			admin.PATCH("/messages/:id", h.MarkMessageRead)
			admin.POST("/blog", h.CreatePost)
			admin.PATCH("/blog/:id/publish", h.PublishPost)
			admin.DELETE("/blog/:id", h.DeletePost)
		}
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
