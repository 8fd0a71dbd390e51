package models

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Summary stores the AI-generated analysis of a meeting. There is at most
// one summary per recording, enforced by the unique index on RecordingID.
type Summary struct {
	// ID is a unique identifier for the summary, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// RecordingID references the owning recording, one summary per recording.
	RecordingID string `gorm:"type:uuid;not null;uniqueIndex" json:"recording_id"`

	// ExecutiveSummary is the brief prose overview of the meeting.
	ExecutiveSummary string `gorm:"not null" json:"executive_summary"`

	// KeyDecisions is a JSON array of decision strings.
	KeyDecisions datatypes.JSON `json:"key_decisions"`

	// DiscussionTopics is a JSON array of topic strings.
	DiscussionTopics datatypes.JSON `json:"discussion_topics"`

	// Participants is a JSON array of participant strings. Older rows may
	// store null; readers must treat that as an empty list.
	Participants datatypes.JSON `json:"participants"`

	// Insights is a JSON array of insight strings, same null handling as
	// Participants.
	Insights datatypes.JSON `json:"insights"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook assigning a UUID when the database does not.
func (s *Summary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// KeyDecisionList returns the decisions as a string slice, never nil.
func (s *Summary) KeyDecisionList() []string { return decodeStringList(s.KeyDecisions) }

// DiscussionTopicList returns the topics as a string slice, never nil.
func (s *Summary) DiscussionTopicList() []string { return decodeStringList(s.DiscussionTopics) }

// ParticipantList returns the participants as a string slice, never nil.
func (s *Summary) ParticipantList() []string { return decodeStringList(s.Participants) }

// InsightList returns the insights as a string slice, never nil.
func (s *Summary) InsightList() []string { return decodeStringList(s.Insights) }

// SummaryExcerpt returns the first maxChars characters of the executive summary.
func (s *Summary) SummaryExcerpt(maxChars int) string {
	if len(s.ExecutiveSummary) <= maxChars {
		return s.ExecutiveSummary
	}
	return s.ExecutiveSummary[:maxChars] + "..."
}

// StringList marshals a string slice into a JSON column value. A nil slice
// is stored as an empty array, not null.
func StringList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		log.Printf("[StringList] Error marshaling list: %v", err)
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
