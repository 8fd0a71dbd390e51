package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	model "github.com/nkhandel/MeetingMind/models"
)

// FixedTime is used to patch time.Now in tests.
var FixedTime = time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

// newTestDB opens an in-memory sqlite database with the full schema. The
// connection pool is pinned to one connection so every query sees the same
// in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Recording{},
		&model.Transcript{},
		&model.Summary{},
		&model.ActionItem{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

// stubTranscriber returns canned transcription results.
type stubTranscriber struct {
	text     string
	err      error
	duration *int
}

func (s *stubTranscriber) TranscribeAudio(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func (s *stubTranscriber) AudioDuration(_ string) *int {
	return s.duration
}

// stubSummarizer returns a canned summary and extracted items.
type stubSummarizer struct {
	result *SummaryResult
	err    error
	items  []ActionItemData
}

func (s *stubSummarizer) GenerateSummary(_ context.Context, text string) (*SummaryResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &SummaryResult{ExecutiveSummary: "stub summary"}, nil
}

func (s *stubSummarizer) ExtractActionItems(_ *SummaryResult) []ActionItemData {
	return s.items
}

var errStub = errors.New("stub failure")

func intPtr(v int) *int { return &v }

// seedRecording inserts a recording with the given status.
func seedRecording(t *testing.T, db *gorm.DB, title, status string) *model.Recording {
	t.Helper()
	rec := &model.Recording{
		Title:    title,
		FilePath: "meetings/audio/" + title + ".mp3",
		FileSize: 1024,
		Status:   status,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to seed recording: %v", err)
	}
	return rec
}
