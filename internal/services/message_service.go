// Package services – MessageService
//
// Admin-facing operations over accepted messages: paginated listing for the
// dashboard and flipping the read flag. These are plain reads/updates with no
// guard coupling; the interesting write path lives in SubmissionService.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell/go-contact-backend/internal/domain"
	"github.com/inkwell/go-contact-backend/internal/repo"
)

// MessageService exposes the admin dashboard's view of stored messages.
type MessageService struct {
	DB *gorm.DB
}

// ListPage returns a page of messages, newest first, plus the total count.
func (s *MessageService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMessages(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// SetRead flips the read flag on a message.
func (s *MessageService) SetRead(ctx context.Context, id string, read bool) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "SetRead",
		trace.WithAttributes(attribute.String("message.id", id)),
	)
	defer span.End()

	err := repo.SetMessageRead(ctx, s.DB, id, read, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}
