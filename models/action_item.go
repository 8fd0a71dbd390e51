package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Priority levels for action items. Anything else is normalized to medium.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// DefaultAssignee is used when the summarizer did not name a person.
const DefaultAssignee = "Unassigned"

// ActionItemTitleLimit bounds the title derived from the task text.
const ActionItemTitleLimit = 300

// DisplayOrder is the SQL ordering clause for action items: high priority
// first, then earliest deadline (nulls last), then newest created.
const DisplayOrder = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, deadline IS NULL, deadline ASC, created_at DESC"

// ActionItem is a task extracted from a meeting summary.
type ActionItem struct {
	// ID is a unique identifier for the action item, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// RecordingID references the owning recording.
	RecordingID string `gorm:"type:uuid;not null;index" json:"recording_id"`

	// Title is the task text truncated to 300 characters.
	Title string `gorm:"size:300;not null;default:'Untitled Task'" json:"title"`

	// Task is the full task description.
	Task string `gorm:"type:text;not null" json:"task"`

	// Assignee is the person responsible, "Unassigned" when unknown.
	Assignee string `gorm:"size:100;not null;default:'Unassigned'" json:"assignee"`

	// Priority is high, medium or low, indexed for priority queries.
	Priority string `gorm:"size:10;not null;default:'medium';index" json:"priority"`

	// Deadline is the optional due date.
	Deadline *time.Time `json:"deadline"`

	// IsCompleted and CompletedAt change together: completing a task sets
	// both, reopening clears both.
	IsCompleted bool       `gorm:"not null;default:false;index" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`

	// Notes holds optional context for the task.
	Notes string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook assigning a UUID when the database does not.
func (a *ActionItem) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// NormalizePriority lowercases the priority and coerces unknown values to medium.
func NormalizePriority(priority string) string {
	switch p := strings.ToLower(priority); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityMedium
	}
}

// TruncateTitle derives an action item title from task text.
func TruncateTitle(task string) string {
	if task == "" {
		return "Untitled Task"
	}
	if len(task) > ActionItemTitleLimit {
		return task[:ActionItemTitleLimit]
	}
	return task
}

// IsOverdue reports whether the deadline has passed for an open task.
func (a *ActionItem) IsOverdue() bool {
	if a.Deadline == nil || a.IsCompleted {
		return false
	}
	return a.Deadline.Before(time.Now().Truncate(24 * time.Hour))
}

// DaysUntilDeadline returns days remaining (negative when overdue), or nil
// when no deadline is set.
func (a *ActionItem) DaysUntilDeadline() *int {
	if a.Deadline == nil {
		return nil
	}
	days := int(time.Until(*a.Deadline).Hours() / 24)
	return &days
}
