package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transcript stores the text produced by transcribing a recording's audio.
type Transcript struct {
	// ID is a unique identifier for the transcript, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// RecordingID references the owning recording.
	RecordingID string `gorm:"type:uuid;not null;index" json:"recording_id"`

	// Text is the full transcript text.
	Text string `gorm:"not null" json:"text"`

	// Language is the detected language code, e.g. "en".
	Language string `gorm:"size:10;not null;default:'en'" json:"language"`

	// WordCount is derived from Text on every save; never set it directly.
	WordCount int `gorm:"not null;default:0" json:"word_count"`

	// ConfidenceScore is the optional ASR confidence, 0.0 to 1.0.
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook assigning a UUID when the database does not.
func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave is a GORM hook recomputing WordCount from the current text.
func (t *Transcript) BeforeSave(tx *gorm.DB) error {
	t.WordCount = len(strings.Fields(t.Text))
	return nil
}

// Excerpt returns the first maxWords words of the transcript, with an
// ellipsis when the text was cut.
func (t *Transcript) Excerpt(maxWords int) string {
	words := strings.Fields(t.Text)
	if len(words) <= maxWords {
		return t.Text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// CharacterCount returns the number of characters in the transcript text.
func (t *Transcript) CharacterCount() int { return len(t.Text) }
