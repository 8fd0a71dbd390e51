package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTranscriptionTestService points a transcription service at a local HTTP
// server that plays the Whisper API.
func newTranscriptionTestService(t *testing.T, handler http.HandlerFunc) *TranscriptionService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = srv.URL + "/v1"

	return &TranscriptionService{
		client: openai.NewClientWithConfig(config),
		model:  "whisper-test",
	}
}

// writeAudioFixture creates a small fake audio file in a temp dir.
func writeAudioFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func TestValidateAudioFile(t *testing.T) {
	svc := &TranscriptionService{}

	t.Run("valid mp3", func(t *testing.T) {
		ok, reason := svc.ValidateAudioFile(writeAudioFixture(t, "meeting.mp3"))
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("missing file", func(t *testing.T) {
		ok, reason := svc.ValidateAudioFile(filepath.Join(t.TempDir(), "nope.mp3"))
		assert.False(t, ok)
		assert.Contains(t, reason, "not found")
	})

	t.Run("directory instead of file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "audio.mp3")
		require.NoError(t, os.Mkdir(dir, 0o755))
		ok, reason := svc.ValidateAudioFile(dir)
		assert.False(t, ok)
		assert.Contains(t, reason, "not a file")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		ok, reason := svc.ValidateAudioFile(writeAudioFixture(t, "notes.txt"))
		assert.False(t, ok)
		assert.Contains(t, reason, "Unsupported file format")
	})

	t.Run("oversized file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "huge.wav")
		f, err := os.Create(path)
		require.NoError(t, err)
		// Sparse file: no need to write 25 MB of real bytes.
		require.NoError(t, f.Truncate(MaxAudioFileSize+1))
		require.NoError(t, f.Close())

		ok, reason := svc.ValidateAudioFile(path)
		assert.False(t, ok)
		assert.Contains(t, reason, "exceeds Whisper API limit")
	})
}

func TestTranscribeAudio_Success(t *testing.T) {
	svc := newTranscriptionTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/audio/transcriptions")
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Hello from the meeting"))
	})

	text, err := svc.TranscribeAudio(context.Background(), writeAudioFixture(t, "meeting.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "Hello from the meeting", text)
}

func TestTranscribeAudio_ValidationError(t *testing.T) {
	svc := newTranscriptionTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected for invalid input")
	})

	_, err := svc.TranscribeAudio(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTranscribeAudio_APIError(t *testing.T) {
	svc := newTranscriptionTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "bad audio"}}`, http.StatusBadRequest)
	})

	_, err := svc.TranscribeAudio(context.Background(), writeAudioFixture(t, "meeting.mp3"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestTranscribeWithTimestamps(t *testing.T) {
	svc := newTranscriptionTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "Hello world",
			"language": "en",
			"duration": 2.5,
			"segments": [{"start": 0.0, "end": 2.5, "text": "Hello world"}],
			"words": [
				{"word": "Hello", "start": 0.0, "end": 1.0},
				{"word": "world", "start": 1.1, "end": 2.5}
			]
		}`))
	})

	result, err := svc.TranscribeWithTimestamps(context.Background(), writeAudioFixture(t, "meeting.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, 2.5, result.Duration)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, 2.5, result.Segments[0].End)
	require.Len(t, result.Words, 2)
	assert.Equal(t, "world", result.Words[1].Word)
}

func TestTranscribeWithTimestamps_DefaultsForMissingFields(t *testing.T) {
	svc := newTranscriptionTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "bare"}`))
	})

	result, err := svc.TranscribeWithTimestamps(context.Background(), writeAudioFixture(t, "meeting.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.Language)
	assert.NotNil(t, result.Segments)
	assert.Empty(t, result.Segments)
	assert.NotNil(t, result.Words)
	assert.Empty(t, result.Words)
}

func TestAudioDuration_ProbeFailure(t *testing.T) {
	svc := &TranscriptionService{}
	// ffprobe fails on a nonexistent path; every failure maps to nil.
	assert.Nil(t, svc.AudioDuration(filepath.Join(t.TempDir(), "missing.mp3")))
}

func TestAPITimeout(t *testing.T) {
	t.Setenv("OPENAI_TIMEOUT", "")
	assert.Equal(t, "5m0s", apiTimeout().String())

	t.Setenv("OPENAI_TIMEOUT", "45")
	assert.Equal(t, "45s", apiTimeout().String())

	t.Setenv("OPENAI_TIMEOUT", "not-a-number")
	assert.Equal(t, "5m0s", apiTimeout().String())
}

func TestNewTranscriptionService_ProviderSelection(t *testing.T) {
	t.Run("no key configured", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		_, err := NewTranscriptionService()
		require.Error(t, err)
	})

	t.Run("groq preferred over openai", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "groq-key")
		t.Setenv("OPENAI_API_KEY", "openai-key")
		t.Setenv("GROQ_WHISPER_MODEL", "")
		svc, err := NewTranscriptionService()
		require.NoError(t, err)
		assert.Equal(t, "whisper-large-v3", svc.model)
	})

	t.Run("openai fallback", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "openai-key")
		t.Setenv("OPENAI_WHISPER_MODEL", "")
		svc, err := NewTranscriptionService()
		require.NoError(t, err)
		assert.Equal(t, "whisper-1", svc.model)
	})
}
