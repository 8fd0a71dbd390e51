package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	model "github.com/nkhandel/MeetingMind/models"
)

// ActionItemService manages action item completion state and listings.
type ActionItemService struct {
	db *gorm.DB
}

func NewActionItemService(db *gorm.DB) *ActionItemService {
	return &ActionItemService{db: db}
}

// PendingActionItem is an open item joined with its recording's title for
// display outside the recording detail page.
type PendingActionItem struct {
	model.ActionItem
	RecordingTitle string `json:"recording_title"`
}

// ListPending returns all open action items across recordings, ordered by
// priority then deadline, each annotated with its recording title.
func (s *ActionItemService) ListPending() ([]PendingActionItem, error) {
	var items []model.ActionItem
	err := s.db.
		Where("is_completed = ?", false).
		Order(model.DisplayOrder).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending action items: %w", err)
	}
	if len(items) == 0 {
		return []PendingActionItem{}, nil
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		if !seen[item.RecordingID] {
			seen[item.RecordingID] = true
			ids = append(ids, item.RecordingID)
		}
	}

	var recordings []model.Recording
	if err := s.db.Select("id", "title").Where("id IN ?", ids).Find(&recordings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recording titles: %w", err)
	}
	titles := make(map[string]string, len(recordings))
	for _, rec := range recordings {
		titles[rec.ID] = rec.Title
	}

	result := make([]PendingActionItem, 0, len(items))
	for _, item := range items {
		result = append(result, PendingActionItem{
			ActionItem:     item,
			RecordingTitle: titles[item.RecordingID],
		})
	}
	return result, nil
}

// ListByRecording returns a recording's action items in display order.
func (s *ActionItemService) ListByRecording(recordingID string) ([]model.ActionItem, error) {
	var items []model.ActionItem
	err := s.db.
		Where("recording_id = ?", recordingID).
		Order(model.DisplayOrder).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch action items for recording %s: %w", recordingID, err)
	}
	return items, nil
}

// Complete marks an action item done, stamping the completion time.
func (s *ActionItemService) Complete(id string) (*model.ActionItem, error) {
	return s.setCompleted(id, true)
}

// Reopen clears an action item's completed state.
func (s *ActionItemService) Reopen(id string) (*model.ActionItem, error) {
	return s.setCompleted(id, false)
}

func (s *ActionItemService) setCompleted(id string, completed bool) (*model.ActionItem, error) {
	var item model.ActionItem
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: action item %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch action item %s: %w", id, err)
	}

	item.IsCompleted = completed
	if completed {
		now := time.Now()
		item.CompletedAt = &now
	} else {
		item.CompletedAt = nil
	}

	// Both columns move together so a completed item always carries its
	// completion time and a reopened one never does.
	updates := map[string]interface{}{
		"is_completed": item.IsCompleted,
		"completed_at": item.CompletedAt,
	}
	if err := s.db.Model(&item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update action item %s: %w", id, err)
	}
	log.Printf("Action item %s completed=%t", item.ID, completed)
	return &item, nil
}
