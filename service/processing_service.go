package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	model "github.com/nkhandel/MeetingMind/models"
)

// maxErrorMessageLength bounds the failure message stored on a recording.
const maxErrorMessageLength = 500

// Transcriber converts stored audio into text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audioPath string) (string, error)
	AudioDuration(audioPath string) *int
}

// Summarizer turns a transcript into structured meeting notes.
type Summarizer interface {
	GenerateSummary(ctx context.Context, transcriptText string) (*SummaryResult, error)
	ExtractActionItems(result *SummaryResult) []ActionItemData
}

// TranscriptIndexer mirrors transcripts into the search backend.
type TranscriptIndexer interface {
	IndexTranscript(rec *model.Recording, transcript *model.Transcript)
}

// ProcessingService runs the transcription and summarization pipeline for a
// recording and records the outcome on its status column.
type ProcessingService struct {
	db          *gorm.DB
	transcriber Transcriber
	summarizer  Summarizer
	indexer     TranscriptIndexer
	recordings  *RecordingService
	workers     chan struct{}
}

// NewProcessingService wires the pipeline. The indexer may be nil when no
// search backend is configured. PROCESSING_WORKERS caps the number of
// recordings processed concurrently, defaulting to 4.
func NewProcessingService(db *gorm.DB, transcriber Transcriber, summarizer Summarizer, indexer TranscriptIndexer, recordings *RecordingService) *ProcessingService {
	workers := 4
	if v := os.Getenv("PROCESSING_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}
	return &ProcessingService{
		db:          db,
		transcriber: transcriber,
		summarizer:  summarizer,
		indexer:     indexer,
		recordings:  recordings,
		workers:     make(chan struct{}, workers),
	}
}

// EnqueueRecording dispatches pipeline execution to a background goroutine.
// A counting semaphore bounds how many recordings process at once; the
// recording stays pending until a slot frees up.
func (s *ProcessingService) EnqueueRecording(id string) {
	go func() {
		s.workers <- struct{}{}
		defer func() { <-s.workers }()
		s.ProcessRecording(id)
	}()
}

// ProcessRecording runs the full pipeline for one recording and returns
// whether it completed. Every pipeline error is absorbed: the recording is
// marked failed with a truncated message and false is returned, so a caller
// never has to distinguish error kinds.
func (s *ProcessingService) ProcessRecording(id string) bool {
	var rec model.Recording
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		log.Printf("ERROR processing: recording %s not found: %v", id, err)
		return false
	}

	// Only pending and failed recordings may enter the pipeline. This keeps
	// a double enqueue or a reprocess of a completed recording from
	// clobbering its existing transcript and summary.
	if rec.Status != model.StatusPending && rec.Status != model.StatusFailed {
		log.Printf("WARNING recording %s has status %s, refusing to process", rec.ID, rec.Status)
		return false
	}

	if err := s.setStatus(&rec, model.StatusProcessing, ""); err != nil {
		log.Printf("ERROR updating recording %s to processing: %v", rec.ID, err)
		return false
	}
	log.Printf("Processing recording %s (%s)", rec.ID, rec.Title)

	if err := s.runPipeline(&rec); err != nil {
		msg := err.Error()
		if len(msg) > maxErrorMessageLength {
			msg = msg[:maxErrorMessageLength]
		}
		log.Printf("ERROR processing recording %s: %v", rec.ID, err)
		if uerr := s.setStatus(&rec, model.StatusFailed, msg); uerr != nil {
			log.Printf("ERROR marking recording %s as failed: %v", rec.ID, uerr)
		}
		return false
	}

	if err := s.setStatus(&rec, model.StatusCompleted, ""); err != nil {
		log.Printf("ERROR marking recording %s as completed: %v", rec.ID, err)
		return false
	}
	log.Printf("Recording %s completed", rec.ID)
	return true
}

func (s *ProcessingService) runPipeline(rec *model.Recording) error {
	ctx := context.Background()
	audioPath := s.recordings.AudioPath(rec)

	if duration := s.transcriber.AudioDuration(audioPath); duration != nil {
		if err := s.db.Model(rec).Update("duration", *duration).Error; err != nil {
			log.Printf("WARNING failed to store duration for %s: %v", rec.ID, err)
		} else {
			rec.Duration = duration
		}
	}

	text, err := s.transcriber.TranscribeAudio(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("transcription returned empty text")
	}

	transcript := model.Transcript{
		RecordingID: rec.ID,
		Text:        text,
		Language:    "en",
	}
	if err := s.db.Create(&transcript).Error; err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	log.Printf("Transcript saved for %s: %d words", rec.ID, transcript.WordCount)

	if s.indexer != nil {
		s.indexer.IndexTranscript(rec, &transcript)
	}

	summary, err := s.summarizer.GenerateSummary(ctx, text)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}

	record := model.Summary{
		RecordingID:      rec.ID,
		ExecutiveSummary: summary.ExecutiveSummary,
		KeyDecisions:     model.StringList(summary.KeyDecisions),
		DiscussionTopics: model.StringList(summary.DiscussionTopics),
		Participants:     model.StringList(summary.Participants),
		Insights:         model.StringList(summary.Insights),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	s.createActionItems(rec, s.summarizer.ExtractActionItems(summary))
	return nil
}

// createActionItems persists extracted items one by one. A bad item is
// logged and skipped so a single malformed entry never fails the pipeline.
func (s *ProcessingService) createActionItems(rec *model.Recording, items []ActionItemData) {
	for _, data := range items {
		assignee := strings.TrimSpace(data.Assignee)
		if assignee == "" {
			assignee = model.DefaultAssignee
		}
		item := model.ActionItem{
			RecordingID: rec.ID,
			Title:       model.TruncateTitle(data.Task),
			Task:        data.Task,
			Assignee:    assignee,
			Priority:    model.NormalizePriority(data.Priority),
			Deadline:    parseDeadline(data.Deadline),
		}
		if err := s.db.Create(&item).Error; err != nil {
			log.Printf("WARNING skipping action item for %s: %v", rec.ID, err)
			continue
		}
	}
}

// parseDeadline parses a YYYY-MM-DD deadline, returning nil for anything the
// model produced that does not parse.
func parseDeadline(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		log.Printf("WARNING unparseable deadline %q, storing without one", value)
		return nil
	}
	return &t
}

func (s *ProcessingService) setStatus(rec *model.Recording, status, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	if err := s.db.Model(rec).Updates(updates).Error; err != nil {
		return err
	}
	rec.Status = status
	rec.ErrorMessage = errorMessage
	return nil
}
