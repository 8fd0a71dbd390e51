package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "github.com/nkhandel/MeetingMind/models"
)

// Upload constraints enforced at the form layer. The extension set is
// narrower than what the storage layer tolerates; the size ceiling matches
// the transcription provider's hard limit so uploads that would provably
// fail transcription are rejected up front.
const MaxUploadSize = MaxAudioFileSize

var allowedUploadExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
}

// PageSize is the fixed page size of the recordings list.
const PageSize = 9

// RecordingService handles recording CRUD, upload storage and action items.
type RecordingService struct {
	db        *gorm.DB
	mediaRoot string
}

// NewRecordingService initializes the service. MEDIA_ROOT configures where
// uploaded audio is stored, defaulting to ./media.
func NewRecordingService(db *gorm.DB) *RecordingService {
	mediaRoot := os.Getenv("MEDIA_ROOT")
	if mediaRoot == "" {
		mediaRoot = "media"
	}
	return &RecordingService{db: db, mediaRoot: mediaRoot}
}

// AudioPath resolves the absolute local path of a recording's stored audio.
func (s *RecordingService) AudioPath(rec *model.Recording) string {
	return filepath.Join(s.mediaRoot, rec.FilePath)
}

// CreateFromUpload validates the uploaded file, stores it under the media
// root and creates a pending Recording. The title defaults to the filename
// stem when none is given.
func (s *RecordingService) CreateFromUpload(header *multipart.FileHeader, title, notes string) (*model.Recording, error) {
	log.Printf("Handling upload: Name=%s, Size=%d", header.Filename, header.Size)

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported audio format %q (allowed: mp3, wav, m4a)", ErrValidation, ext)
	}
	if header.Size > MaxUploadSize {
		return nil, fmt.Errorf(
			"%w: file size (%.2f MB) exceeds the %d MB upload limit",
			ErrValidation, float64(header.Size)/(1024*1024), MaxUploadSize/(1024*1024),
		)
	}

	storedName := fmt.Sprintf("%s_%s", uuid.NewString(), filepath.Base(header.Filename))
	relPath := filepath.Join("meetings", "audio", storedName)
	absPath := filepath.Join(s.mediaRoot, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create stored file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to write stored file: %w", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		base := filepath.Base(header.Filename)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	rec := model.Recording{
		Title:    title,
		FilePath: relPath,
		FileSize: header.Size,
		Status:   model.StatusPending,
		Notes:    notes,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		_ = os.Remove(absPath)
		log.Printf("ERROR saving recording to database: %v", err)
		return nil, fmt.Errorf("failed to save recording: %w", err)
	}

	log.Printf("Recording saved with ID: %s, Title: %s", rec.ID, rec.Title)
	return &rec, nil
}

// GetRecording loads one recording with its children preloaded.
func (s *RecordingService) GetRecording(id string) (*model.Recording, error) {
	var rec model.Recording
	err := s.db.
		Preload("Transcripts").
		Preload("Summary").
		Preload("ActionItems", func(db *gorm.DB) *gorm.DB {
			return db.Order(model.DisplayOrder)
		}).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: recording %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recording %s: %w", id, err)
	}
	return &rec, nil
}

// ListOptions are the query parameters of the recordings list.
type ListOptions struct {
	Status string // pending | processing | completed | failed
	Filter string // all | starred | recent
	Search string // title substring, case-insensitive
	Sort   string // date-desc | date-asc | title-asc | title-desc | duration-desc | duration-asc
	Page   int
}

// ListResult is one page of recordings plus aggregate statistics computed
// over the full (unfiltered) set.
type ListResult struct {
	Recordings         []model.Recording `json:"recordings"`
	TotalCount         int64             `json:"total_count"`
	Page               int               `json:"page"`
	TotalPages         int               `json:"total_pages"`
	TotalDurationHours float64           `json:"total_duration_hours"`
	TotalParticipants  int               `json:"total_participants"`
	TotalActionItems   int64             `json:"total_action_items"`
}

// ListRecordings returns a filtered, sorted, paginated page of recordings.
// Out-of-range pages are clamped to the last page rather than erroring.
func (s *RecordingService) ListRecordings(opts ListOptions) (*ListResult, error) {
	query := s.db.Model(&model.Recording{}).Preload("Summary")

	switch opts.Status {
	case model.StatusPending, model.StatusProcessing, model.StatusCompleted, model.StatusFailed:
		query = query.Where("status = ?", opts.Status)
	}

	switch opts.Filter {
	case "starred":
		query = query.Where("is_starred = ?", true)
	case "recent":
		query = query.Where("created_at >= ?", time.Now().AddDate(0, 0, -7))
	}

	if opts.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}

	// Count before ordering: GORM's Count mutates the statement's clauses.
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count recordings: %w", err)
	}

	switch opts.Sort {
	case "date-asc":
		query = query.Order("created_at ASC")
	case "title-asc":
		query = query.Order("title ASC")
	case "title-desc":
		query = query.Order("title DESC")
	case "duration-desc":
		query = query.Order("duration DESC")
	case "duration-asc":
		query = query.Order("duration ASC")
	default:
		query = query.Order("created_at DESC")
	}

	totalPages := int(math.Ceil(float64(total) / float64(PageSize)))
	if totalPages == 0 {
		totalPages = 1
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	var recordings []model.Recording
	if err := query.Offset((page - 1) * PageSize).Limit(PageSize).Find(&recordings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recordings: %w", err)
	}

	result := &ListResult{
		Recordings: recordings,
		TotalCount: total,
		Page:       page,
		TotalPages: totalPages,
	}
	if err := s.addAggregates(result); err != nil {
		log.Printf("WARNING failed to compute list statistics: %v", err)
	}
	return result, nil
}

// addAggregates fills the stats block shown above the list: total recorded
// hours, detected participants and extracted action items across all
// recordings.
func (s *RecordingService) addAggregates(result *ListResult) error {
	var all []model.Recording
	if err := s.db.Preload("Summary").Find(&all).Error; err != nil {
		return err
	}

	totalSeconds := 0
	participants := 0
	for _, rec := range all {
		if rec.Duration != nil {
			totalSeconds += *rec.Duration
		}
		if rec.Summary != nil {
			participants += len(rec.Summary.ParticipantList())
		}
	}
	result.TotalDurationHours = float64(totalSeconds) / 3600
	result.TotalParticipants = participants

	return s.db.Model(&model.ActionItem{}).Count(&result.TotalActionItems).Error
}

// DeleteRecording removes a recording, its child rows and the backing audio
// file. The file removal is best-effort: a missing file is tolerated.
// Deleting a nonexistent id returns ErrNotFound, never panics.
func (s *RecordingService) DeleteRecording(id string) error {
	var rec model.Recording
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: recording %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to fetch recording %s: %w", id, err)
	}

	if path := s.AudioPath(&rec); path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("WARNING error deleting audio file %s: %v", path, err)
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Explicit child deletes keep cascade semantics on databases where
		// the migration-level ON DELETE CASCADE is not in force.
		if err := tx.Where("recording_id = ?", rec.ID).Delete(&model.ActionItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recording_id = ?", rec.ID).Delete(&model.Summary{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recording_id = ?", rec.ID).Delete(&model.Transcript{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return err
		}
		log.Printf("Recording %s deleted with all child records", rec.ID)
		return nil
	})
}

// ToggleStar flips the starred flag and returns the new value.
func (s *RecordingService) ToggleStar(id string) (bool, error) {
	var rec model.Recording
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: recording %s", ErrNotFound, id)
		}
		return false, fmt.Errorf("failed to fetch recording %s: %w", id, err)
	}

	rec.IsStarred = !rec.IsStarred
	if err := s.db.Model(&rec).Update("is_starred", rec.IsStarred).Error; err != nil {
		return false, fmt.Errorf("failed to update starred flag: %w", err)
	}
	return rec.IsStarred, nil
}

// statusPercentage maps processing status onto the completion percentage
// shown by the polling endpoint.
var statusPercentage = map[string]int{
	model.StatusPending:    10,
	model.StatusProcessing: 50,
	model.StatusCompleted:  100,
	model.StatusFailed:     0,
}

// StatusInfo is the payload of the status polling endpoint.
type StatusInfo struct {
	RecordingID  string `json:"recording_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Percentage   int    `json:"percentage"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// RecordingStatus reports the current processing status of one recording.
func (s *RecordingService) RecordingStatus(id string) (*StatusInfo, error) {
	var rec model.Recording
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: recording %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch recording %s: %w", id, err)
	}

	info := &StatusInfo{
		RecordingID: rec.ID,
		Title:       rec.Title,
		Status:      rec.Status,
		Percentage:  statusPercentage[rec.Status],
	}
	if rec.Status == model.StatusFailed {
		info.ErrorMessage = rec.ErrorMessage
		if info.ErrorMessage == "" {
			info.ErrorMessage = "Processing failed. Please try again."
		}
	}
	return info, nil
}

// Statistics aggregates recording and action item counts for the dashboard.
type Statistics struct {
	TotalRecordings      int64 `json:"total_recordings"`
	CompletedRecordings  int64 `json:"completed_recordings"`
	PendingRecordings    int64 `json:"pending_recordings"`
	FailedRecordings     int64 `json:"failed_recordings"`
	TotalActionItems     int64 `json:"total_action_items"`
	CompletedActionItems int64 `json:"completed_action_items"`
}

// GetStatistics computes overall counts across all recordings.
func (s *RecordingService) GetStatistics() (*Statistics, error) {
	stats := &Statistics{}
	db := s.db.Model(&model.Recording{})
	if err := db.Count(&stats.TotalRecordings).Error; err != nil {
		return nil, err
	}
	counts := map[string]*int64{
		model.StatusCompleted: &stats.CompletedRecordings,
		model.StatusPending:   &stats.PendingRecordings,
		model.StatusFailed:    &stats.FailedRecordings,
	}
	for status, dst := range counts {
		if err := s.db.Model(&model.Recording{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, err
		}
	}
	if err := s.db.Model(&model.ActionItem{}).Count(&stats.TotalActionItems).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&model.ActionItem{}).Where("is_completed = ?", true).Count(&stats.CompletedActionItems).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
