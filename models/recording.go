package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Processing status values for a recording. Transitions are forward-only:
// pending -> processing -> completed or failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Recording represents one uploaded meeting audio file and its processing state.
type Recording struct {
	// ID is a unique identifier for the recording, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Title is the meeting title, defaulting to the uploaded filename stem.
	Title string `gorm:"size:200;not null;default:'Untitled Meeting'" json:"title"`

	// FilePath is the stored audio file path relative to the media root.
	FilePath string `gorm:"size:500;not null" json:"file_path"`

	// Duration is the audio length in seconds, nil until probed.
	Duration *int `json:"duration"`

	// FileSize is the uploaded file size in bytes.
	FileSize int64 `json:"file_size"`

	// Status tracks the processing workflow, indexed for status queries.
	Status string `gorm:"size:20;not null;default:'pending';index" json:"status"`

	// Notes holds optional free-text notes for the meeting.
	Notes string `json:"notes"`

	// ErrorMessage records why processing failed, truncated to 500 characters.
	ErrorMessage string `json:"error_message,omitempty"`

	// IsStarred marks the recording as a favorite.
	IsStarred bool `gorm:"not null;default:false" json:"is_starred"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Transcripts []Transcript `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE" json:"transcripts,omitempty"`
	Summary     *Summary     `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE" json:"summary,omitempty"`
	ActionItems []ActionItem `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE" json:"action_items,omitempty"`
}

// BeforeCreate is a GORM hook assigning a UUID when the database does not.
func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// DurationDisplay returns the duration formatted as MM:SS, or "N/A" when unknown.
func (r *Recording) DurationDisplay() string {
	if r.Duration == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d:%02d", *r.Duration/60, *r.Duration%60)
}

// FileSizeDisplay returns the file size formatted in MB or KB.
func (r *Recording) FileSizeDisplay() string {
	if r.FileSize <= 0 {
		return "N/A"
	}
	if r.FileSize >= 1024*1024 {
		return fmt.Sprintf("%.2f MB", float64(r.FileSize)/(1024*1024))
	}
	return fmt.Sprintf("%.1f KB", float64(r.FileSize)/1024)
}

// IsCompleted reports whether processing finished successfully.
func (r *Recording) IsCompleted() bool { return r.Status == StatusCompleted }

// IsFailed reports whether processing ended in failure.
func (r *Recording) IsFailed() bool { return r.Status == StatusFailed }

// IsProcessing reports whether the pipeline currently owns this recording.
func (r *Recording) IsProcessing() bool { return r.Status == StatusProcessing }
