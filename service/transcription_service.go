package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// MaxAudioFileSize is the hard upload ceiling of the Whisper API (25 MB).
const MaxAudioFileSize = 25 * 1024 * 1024

// supportedAudioFormats are the extensions the Whisper API accepts.
var supportedAudioFormats = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".m4a":  true,
	".wav":  true,
	".webm": true,
}

// TranscriptionSegment is one timed span of a verbose transcription.
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionWord is one timed word of a verbose transcription.
type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// VerboseTranscription is the richer response shape of TranscribeWithTimestamps.
// Segments and Words are always non-nil, empty when the provider omits them.
type VerboseTranscription struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
	Segments []TranscriptionSegment `json:"segments"`
	Words    []TranscriptionWord    `json:"words"`
}

// TranscriptionService wraps a Whisper-compatible speech-to-text API.
//
// Provider selection happens once at construction: the free Groq endpoint is
// preferred whenever GROQ_API_KEY is set, otherwise the OpenAI-compatible
// endpoint configured through OPENAI_API_KEY/OPENAI_BASE_URL is used.
type TranscriptionService struct {
	client *openai.Client
	model  string
}

// NewTranscriptionService initializes the service from environment configuration.
func NewTranscriptionService() (*TranscriptionService, error) {
	var apiKey, baseURL, model string

	if groqKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY")); groqKey != "" {
		apiKey = groqKey
		baseURL = os.Getenv("GROQ_BASE_URL")
		if baseURL == "" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		model = os.Getenv("GROQ_WHISPER_MODEL")
		if model == "" {
			model = "whisper-large-v3"
		}
		log.Printf("TranscriptionService initialized with Groq API: %s", baseURL)
	} else {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		baseURL = os.Getenv("OPENAI_BASE_URL")
		model = os.Getenv("OPENAI_WHISPER_MODEL")
		if model == "" {
			model = "whisper-1"
		}
		if baseURL != "" {
			log.Printf("TranscriptionService initialized with custom base_url: %s", baseURL)
		}
	}

	if apiKey == "" {
		return nil, fmt.Errorf("API key not configured: set GROQ_API_KEY or OPENAI_API_KEY")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: apiTimeout()}

	log.Printf("TranscriptionService initialized with model: %s", model)
	return &TranscriptionService{client: openai.NewClientWithConfig(config), model: model}, nil
}

// apiTimeout reads the per-call timeout for outbound API requests,
// defaulting to 5 minutes.
func apiTimeout() time.Duration {
	if raw := os.Getenv("OPENAI_TIMEOUT"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 300 * time.Second
}

// ValidateAudioFile checks that the file exists, is a regular file, fits the
// Whisper size limit and carries a supported extension. It returns false
// with a human-readable reason when any check fails.
func (s *TranscriptionService) ValidateAudioFile(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		reason := fmt.Sprintf("Audio file not found: %s", path)
		log.Printf("ERROR %s", reason)
		return false, reason
	}

	if !info.Mode().IsRegular() {
		reason := fmt.Sprintf("Path is not a file: %s", path)
		log.Printf("ERROR %s", reason)
		return false, reason
	}

	if info.Size() > MaxAudioFileSize {
		reason := fmt.Sprintf(
			"File size (%.2f MB) exceeds Whisper API limit (%d MB)",
			float64(info.Size())/(1024*1024), MaxAudioFileSize/(1024*1024),
		)
		log.Printf("ERROR %s", reason)
		return false, reason
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedAudioFormats[ext] {
		reason := fmt.Sprintf("Unsupported file format: %s", ext)
		log.Printf("ERROR %s", reason)
		return false, reason
	}

	return true, ""
}

// TranscribeAudio sends the audio file to the Whisper API and returns the
// plain transcript text. Validation problems wrap ErrValidation; transport
// and API failures are returned as-is for the caller to classify.
func (s *TranscriptionService) TranscribeAudio(ctx context.Context, path string) (string, error) {
	log.Printf("Starting transcription for: %s", path)

	if ok, reason := s.ValidateAudioFile(path); !ok {
		return "", fmt.Errorf("%w: audio file validation failed: %s", ErrValidation, reason)
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed for %s: %w", path, err)
	}

	log.Printf("Transcription completed successfully. Transcript length: %d characters", len(resp.Text))
	return resp.Text, nil
}

// TranscribeWithTimestamps requests a verbose transcription with word and
// segment level timestamps. Optional response fields missing from the
// provider default to empty slices.
func (s *TranscriptionService) TranscribeWithTimestamps(ctx context.Context, path string) (*VerboseTranscription, error) {
	log.Printf("Starting transcription with timestamps for: %s", path)

	if ok, reason := s.ValidateAudioFile(path); !ok {
		return nil, fmt.Errorf("%w: audio file validation failed: %s", ErrValidation, reason)
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("transcription with timestamps failed for %s: %w", path, err)
	}

	result := &VerboseTranscription{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: []TranscriptionSegment{},
		Words:    []TranscriptionWord{},
	}
	if result.Language == "" {
		result.Language = "unknown"
	}

	for idx, seg := range resp.Segments {
		result.Segments = append(result.Segments, TranscriptionSegment{
			ID:    idx,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	for _, word := range resp.Words {
		result.Words = append(result.Words, TranscriptionWord{
			Word:  word.Word,
			Start: word.Start,
			End:   word.End,
		})
	}

	log.Printf(
		"Transcription with timestamps completed. Language: %s, Duration: %.2fs, Segments: %d, Words: %d",
		result.Language, result.Duration, len(result.Segments), len(result.Words),
	)
	return result, nil
}

// AudioDuration probes the local audio file for its duration in seconds
// using ffprobe. This is best-effort: every failure is swallowed and
// reported as nil.
func (s *TranscriptionService) AudioDuration(path string) *int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		log.Printf("WARNING could not determine audio duration: %v", err)
		return nil
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		log.Printf("WARNING could not parse ffprobe output: %v", err)
		return nil
	}

	duration := int(seconds)
	log.Printf("Audio duration: %d seconds", duration)
	return &duration
}
