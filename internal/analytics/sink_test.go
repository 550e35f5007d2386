package analytics

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell/go-contact-backend/internal/domain"
)

func newSinkDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("sink_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.PageVisit{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSink_RecordPageVisitPersists(t *testing.T) {
	db := newSinkDB(t)
	s := NewSink(db)

	s.RecordPageVisit("/blog/hello", "example.org", "abcd1234", 1500)
	s.RecordPageVisit("/about", "", "", 0)
	s.Close()

	var visits []domain.PageVisit
	if err := db.Order("page_path asc").Find(&visits).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("visits = %d, want 2", len(visits))
	}
	if visits[1].PagePath != "/blog/hello" || visits[1].ReferrerDomain != "example.org" || visits[1].DurationMS != 1500 {
		t.Fatalf("visit = %+v", visits[1])
	}
}

func TestSink_RecordSubmissionDoesNotPanic(t *testing.T) {
	s := NewSink(newSinkDB(t))
	defer s.Close()

	for _, verdict := range []string{"accepted", "rate_limited", "duplicate", "processing"} {
		s.RecordSubmission(verdict, "alice@example.com")
	}
}

func TestShortHash(t *testing.T) {
	a := shortHash("alice@example.com")
	b := shortHash("bob@example.com")
	if len(a) != 8 || a == b {
		t.Fatalf("shortHash = %q / %q", a, b)
	}
	if a != shortHash("alice@example.com") {
		t.Fatal("shortHash not stable")
	}
}
