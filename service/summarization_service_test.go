package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatTestService points a summarization service at a local HTTP server
// that plays the chat-completion API.
func newChatTestService(t *testing.T, handler http.HandlerFunc) (*SummarizationService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = srv.URL + "/v1"

	return &SummarizationService{
		client:     openai.NewClientWithConfig(config),
		model:      "test-model",
		maxRetries: 3,
		retryDelay: time.Millisecond,
	}, srv
}

// chatResponse wraps content into the chat-completion response envelope.
func chatResponse(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
	return body
}

const validSummaryJSON = `{
	"executive_summary": "The team agreed on the Q3 roadmap.",
	"key_decisions": ["Decision: Ship the beta in July"],
	"action_items": [{"task": "Write release notes", "assignee": "Dana", "priority": "high", "deadline": "2025-07-01"}],
	"discussion_topics": ["Roadmap"],
	"participants": ["Dana (PM)"],
	"insights": ["Beta scope is tight"]
}`

func TestGenerateSummary_Success(t *testing.T) {
	var calls int
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, validSummaryJSON))
	})

	result, err := svc.GenerateSummary(context.Background(), "some transcript text")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "The team agreed on the Q3 roadmap.", result.ExecutiveSummary)
	assert.Equal(t, []string{"Decision: Ship the beta in July"}, result.KeyDecisions)
	assert.Equal(t, []string{"Roadmap"}, result.DiscussionTopics)
	assert.Equal(t, []string{"Dana (PM)"}, result.Participants)
	assert.Equal(t, []string{"Beta scope is tight"}, result.Insights)
	require.Len(t, result.RawActionItems, 1)
	assert.Equal(t, "Write release notes", result.RawActionItems[0]["task"])
}

func TestGenerateSummary_RepairsJSONWrappedInProse(t *testing.T) {
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		content := "Here is the result: " + validSummaryJSON + " Thanks!"
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, content))
	})

	result, err := svc.GenerateSummary(context.Background(), "some transcript text")
	require.NoError(t, err)
	assert.Equal(t, "The team agreed on the Q3 roadmap.", result.ExecutiveSummary)
}

func TestGenerateSummary_FallbackAfterExhaustedRetries(t *testing.T) {
	var calls int
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Missing key_decisions, so structure validation fails every attempt.
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, `{"executive_summary": "x", "action_items": [], "discussion_topics": []}`))
	})

	result, err := svc.GenerateSummary(context.Background(), "some transcript text")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, fallbackExecutiveSummary, result.ExecutiveSummary)
	assert.Empty(t, result.KeyDecisions)
	assert.Empty(t, result.RawActionItems)
}

func TestGenerateSummary_EmptyTranscript(t *testing.T) {
	var calls int
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	for _, text := range []string{"", "   \n\t "} {
		_, err := svc.GenerateSummary(context.Background(), text)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 0, calls, "no API call should be made for empty input")
}

func TestGenerateSummary_RetriesAPIErrors(t *testing.T) {
	var calls int
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatResponse(t, validSummaryJSON))
	})

	result, err := svc.GenerateSummary(context.Background(), "some transcript text")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "The team agreed on the Q3 roadmap.", result.ExecutiveSummary)
}

func TestValidateSummaryStructure(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "all keys valid",
			payload: validSummaryJSON,
		},
		{
			name:    "optional keys absent",
			payload: `{"executive_summary": "x", "key_decisions": [], "action_items": [], "discussion_topics": []}`,
		},
		{
			name:    "missing executive summary",
			payload: `{"key_decisions": [], "action_items": [], "discussion_topics": []}`,
			wantErr: "missing key executive_summary",
		},
		{
			name:    "executive summary wrong type",
			payload: `{"executive_summary": 42, "key_decisions": [], "action_items": [], "discussion_topics": []}`,
			wantErr: "executive_summary must be a string",
		},
		{
			name:    "action items not an array",
			payload: `{"executive_summary": "x", "key_decisions": [], "action_items": "none", "discussion_topics": []}`,
			wantErr: "action_items must be an array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &payload))

			err := validateSummaryStructure(payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExtractActionItems(t *testing.T) {
	result := &SummaryResult{
		RawActionItems: []map[string]interface{}{
			{"task": "Ship beta", "assignee": "Dana", "priority": "URGENT", "deadline": "2025-07-01"},
			{"task": "Review docs", "assignee": "Lee", "priority": "low", "deadline": nil},
			{"task": "No assignee", "priority": "high"},
			{"task": "Bad priority type", "assignee": "Kim", "priority": 3},
		},
	}

	items := ExtractActionItems(result)
	require.Len(t, items, 2)

	assert.Equal(t, "Ship beta", items[0].Task)
	assert.Equal(t, "medium", items[0].Priority, "unknown priority coerces to medium")
	assert.Equal(t, "2025-07-01", items[0].Deadline)

	assert.Equal(t, "low", items[1].Priority)
	assert.Equal(t, "", items[1].Deadline)
}

func TestExtractActionItems_Empty(t *testing.T) {
	assert.Empty(t, ExtractActionItems(nil))
	assert.Empty(t, ExtractActionItems(&SummaryResult{}))
}

func TestParseSummaryJSON_NoObject(t *testing.T) {
	_, err := parseSummaryJSON("there is no JSON here")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object found")
}

func TestStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringSlice([]interface{}{"a", "b"}))
	assert.Equal(t, []string{"a"}, stringSlice([]interface{}{"a", 1, nil}))
	assert.Equal(t, []string{}, stringSlice(nil))
	assert.Equal(t, []string{}, stringSlice("not a list"))
}

func ExampleExtractActionItems() {
	result := &SummaryResult{
		RawActionItems: []map[string]interface{}{
			{"task": "Send minutes", "assignee": "Ana", "priority": "High"},
		},
	}
	items := ExtractActionItems(result)
	fmt.Println(items[0].Priority)
	// Output: high
}
