package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/inkwell/go-contact-backend/internal/repo"
)

func TestMessageListPage(t *testing.T) {
	db := newServiceDB(t)
	svc := &MessageService{DB: db}
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 25; i++ {
		hash := fmt.Sprintf("%064d", i)
		if _, err := repo.InsertMessageUnlessDuplicate(ctx, db, "a@example.com", "Alice", fmt.Sprintf("message body number %02d", i), hash, time.Hour, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	items, total, err := svc.ListPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 25 || len(items) != 10 {
		t.Fatalf("total=%d len=%d", total, len(items))
	}

	items, _, err = svc.ListPage(ctx, 3, 10)
	if err != nil {
		t.Fatalf("ListPage p3: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("last page len = %d, want 5", len(items))
	}

	// Out-of-range page parameters fall back to sane values.
	items, total, err = svc.ListPage(ctx, 0, -1)
	if err != nil {
		t.Fatalf("ListPage clamped: %v", err)
	}
	if total != 25 || len(items) == 0 {
		t.Fatalf("clamped page: total=%d len=%d", total, len(items))
	}
}

func TestMessageListPage_Empty(t *testing.T) {
	svc := &MessageService{DB: newServiceDB(t)}

	items, total, err := svc.ListPage(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("total=%d items=%v", total, items)
	}
}

func TestMessageSetRead(t *testing.T) {
	db := newServiceDB(t)
	svc := &MessageService{DB: db}
	ctx := context.Background()

	m, err := repo.InsertMessageUnlessDuplicate(ctx, db, "a@example.com", "Alice", "a message body here", "d000000000000000000000000000000000000000000000000000000000000000", time.Hour, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := svc.SetRead(ctx, m.ID, true); err != nil {
		t.Fatalf("SetRead: %v", err)
	}
	if err := svc.SetRead(ctx, "missing", true); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}
}
