package controller

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	service "github.com/nkhandel/MeetingMind/service"

	"github.com/gin-gonic/gin"

	model "github.com/nkhandel/MeetingMind/models"
)

// RecordingController manages HTTP requests for recordings
type RecordingController struct {
	recordings *service.RecordingService
	processing *service.ProcessingService
	search     *service.SearchService
}

// NewRecordingController initializes the controller with its services
func NewRecordingController(recordings *service.RecordingService, processing *service.ProcessingService, search *service.SearchService) *RecordingController {
	return &RecordingController{recordings: recordings, processing: processing, search: search}
}

// UploadRecording handles the audio upload request and enqueues processing
func (c *RecordingController) UploadRecording(ctx *gin.Context) {
	header, err := ctx.FormFile("audio_file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get audio file from request"})
		return
	}

	title := ctx.PostForm("title")
	notes := ctx.PostForm("notes")

	rec, err := c.recordings.CreateFromUpload(header, title, notes)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Error saving uploaded recording: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.processing.EnqueueRecording(rec.ID)

	ctx.JSON(http.StatusCreated, gin.H{
		"message":   "Recording uploaded successfully. Processing started.",
		"recording": rec,
	})
}

// GetRecordings retrieves a filtered, paginated page of recordings
func (c *RecordingController) GetRecordings(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	opts := service.ListOptions{
		Status: ctx.Query("status"),
		Filter: ctx.DefaultQuery("filter", "all"),
		Search: ctx.Query("search"),
		Sort:   ctx.DefaultQuery("sort", "date-desc"),
		Page:   page,
	}

	result, err := c.recordings.ListRecordings(opts)
	if err != nil {
		log.Printf("Error fetching recordings: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve recordings",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetRecording retrieves one recording with transcript, summary and action
// items. A recording still in flight answers 409 with a pointer to the
// status endpoint so clients poll instead of rendering a half-built page.
func (c *RecordingController) GetRecording(ctx *gin.Context) {
	id := ctx.Param("id")

	rec, err := c.recordings.GetRecording(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if rec.Status != model.StatusCompleted {
		ctx.JSON(http.StatusConflict, gin.H{
			"error":      "Recording is not ready yet",
			"status":     rec.Status,
			"status_url": "/api/recordings/" + rec.ID + "/status",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"recording": rec})
}

// GetRecordingStatus reports processing progress for polling clients
func (c *RecordingController) GetRecordingStatus(ctx *gin.Context) {
	info, err := c.recordings.RecordingStatus(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// DeleteRecording removes a recording and its stored audio
func (c *RecordingController) DeleteRecording(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.recordings.DeleteRecording(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		log.Printf("Error deleting recording %s: %v", id, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Recording deleted successfully"})
}

// ToggleStar flips the starred flag on a recording
func (c *RecordingController) ToggleStar(ctx *gin.Context) {
	starred, err := c.recordings.ToggleStar(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"is_starred": starred})
}

// ReprocessRecording re-runs the pipeline for a failed recording
func (c *RecordingController) ReprocessRecording(ctx *gin.Context) {
	id := ctx.Param("id")
	rec, err := c.recordings.GetRecording(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if rec.Status != model.StatusPending && rec.Status != model.StatusFailed {
		ctx.JSON(http.StatusConflict, gin.H{
			"error":  "Only pending or failed recordings can be reprocessed",
			"status": rec.Status,
		})
		return
	}

	c.processing.EnqueueRecording(rec.ID)
	ctx.JSON(http.StatusAccepted, gin.H{"message": "Reprocessing started", "recording_id": rec.ID})
}

// SearchTranscripts runs a full-text search across indexed transcripts
func (c *RecordingController) SearchTranscripts(ctx *gin.Context) {
	if c.search == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not configured"})
		return
	}

	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := c.search.SearchTranscripts(query)
	if err != nil {
		log.Printf("Error searching transcripts: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"results": results,
	})
}

// GetStatistics returns dashboard counters
func (c *RecordingController) GetStatistics(ctx *gin.Context) {
	stats, err := c.recordings.GetStatistics()
	if err != nil {
		log.Printf("Error computing statistics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
