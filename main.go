package main

import (
	"log"
	"net/http"

	controller "github.com/nkhandel/MeetingMind/controller"
	"github.com/nkhandel/MeetingMind/initializers"
	middleware "github.com/nkhandel/MeetingMind/middleware"
	service "github.com/nkhandel/MeetingMind/service"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Printf("WARNING no .env file loaded: %s", err)
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	transcriber, err := service.NewTranscriptionService()
	if err != nil {
		log.Fatalf("Failed to initialize transcription service: %s", err)
	}
	summarizer, err := service.NewSummarizationService()
	if err != nil {
		log.Fatalf("Failed to initialize summarization service: %s", err)
	}

	searchService := service.NewSearchService()
	recordingService := service.NewRecordingService(initializers.DB)
	actionService := service.NewActionItemService(initializers.DB)

	var indexer service.TranscriptIndexer
	if searchService != nil {
		indexer = searchService
	}
	processingService := service.NewProcessingService(
		initializers.DB, transcriber, summarizer, indexer, recordingService)

	recordingController := controller.NewRecordingController(recordingService, processingService, searchService)
	actionController := controller.NewActionItemController(actionService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Upload is the expensive path, keep it behind the strict limiter
	router.POST("/upload",
		middleware.StrictRateLimiter.Limit(),
		recordingController.UploadRecording)

	router.GET("/recordings", recordingController.GetRecordings)
	router.GET("/recordings/:id", recordingController.GetRecording)
	router.GET("/recordings/:id/status", recordingController.GetRecordingStatus)
	router.DELETE("/recordings/:id", recordingController.DeleteRecording)
	router.POST("/recordings/:id/star", recordingController.ToggleStar)
	router.POST("/recordings/:id/reprocess",
		middleware.StrictRateLimiter.Limit(),
		recordingController.ReprocessRecording)

	router.GET("/action-items", actionController.GetPendingActionItems)
	router.PUT("/action-items/:id/complete",
		middleware.StrictRateLimiter.Limit(),
		actionController.CompleteActionItem)
	router.PUT("/action-items/:id/reopen",
		middleware.StrictRateLimiter.Limit(),
		actionController.ReopenActionItem)

	router.GET("/search", recordingController.SearchTranscripts)
	router.GET("/statistics", recordingController.GetStatistics)

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.Run(":8080")
}
