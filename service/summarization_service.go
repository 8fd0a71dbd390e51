package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	model "github.com/nkhandel/MeetingMind/models"
)

// summaryPrompt is the fixed instruction template sent with every transcript.
// The model is asked for a JSON object with exactly these keys; anything
// else is treated as a retryable failure.
const summaryPrompt = `You are a meeting analysis expert specializing in extracting actionable insights from meeting transcripts.

Your task is to analyze the following meeting transcript and extract structured information in JSON format.

EXTRACTION REQUIREMENTS:

1. executive_summary (string): A concise 3-4 sentence overview of the meeting covering main topics, key outcomes, and next steps.
2. key_decisions (array of strings): All important decisions made during the meeting, with context. Format: "Decision: Description with context".
3. action_items (array of objects): Every task, assignment or follow-up mentioned. Each item MUST include:
   - task (string): What needs to be done
   - assignee (string): Person responsible
   - priority (string): "high", "medium" or "low"
   - deadline (string or null): Date in "YYYY-MM-DD" format, or null if not mentioned
4. discussion_topics (array of strings): Main themes discussed, grouped under meaningful topic names.
5. participants (array of strings): Names of people in the meeting, with roles if mentioned, e.g. "John Doe (VP Engineering)".
6. insights (array of strings): Key learnings, concerns, risks or opportunities raised.

OUTPUT FORMAT (JSON ONLY):

{
  "executive_summary": "Brief overview of the meeting.",
  "key_decisions": ["Decision 1: Description with context"],
  "action_items": [{"task": "Task description", "assignee": "Person Name", "priority": "high", "deadline": "2025-10-20"}],
  "discussion_topics": ["Topic 1"],
  "participants": ["John Doe (VP Engineering)"],
  "insights": ["Key insight or observation"]
}

IMPORTANT RULES:
- Return ONLY valid JSON, no additional text or markdown
- All fields are REQUIRED (use empty arrays [] if no data found)
- Priority must be exactly: "high", "medium", or "low" (lowercase)
- Deadline must be "YYYY-MM-DD" format or null
- Be factual - extract only information present in the transcript

MEETING TRANSCRIPT:
%s

Return your analysis as a JSON object following the exact format above.`

// fallbackExecutiveSummary replaces the model output when every attempt failed.
const fallbackExecutiveSummary = "Summary generation encountered errors. The meeting transcript was processed but detailed analysis could not be completed. Please review the transcript directly."

// jsonObjectPattern locates the outermost {...} span when the model wraps
// its JSON in prose.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// SummaryResult is the structured outcome of a summarization call. The
// informational list fields are always non-nil. RawActionItems keeps the
// model's untyped item objects for ExtractActionItems to filter.
type SummaryResult struct {
	ExecutiveSummary string
	KeyDecisions     []string
	DiscussionTopics []string
	Participants     []string
	Insights         []string
	RawActionItems   []map[string]interface{}
}

// ActionItemData is one validated, normalized action item. Deadline is a
// "YYYY-MM-DD" string or empty when the model reported null.
type ActionItemData struct {
	Task     string
	Assignee string
	Priority string
	Deadline string
}

// SummarizationService wraps a chat-completion API to turn transcripts into
// structured meeting analyses. Configuration is read once at construction
// and immutable for the service's lifetime.
type SummarizationService struct {
	client     *openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewSummarizationService initializes the OpenAI-compatible client from
// environment configuration.
func NewSummarizationService() (*SummarizationService, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	baseURL := os.Getenv("OPENAI_BASE_URL")

	if apiKey == "" {
		// Same precedence rule as transcription: the Groq credential also
		// serves the chat endpoint when no OpenAI key is configured.
		apiKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
		if baseURL == "" {
			baseURL = os.Getenv("GROQ_BASE_URL")
			if baseURL == "" {
				baseURL = "https://api.groq.com/openai/v1"
			}
		}
	}

	if apiKey == "" {
		log.Println("ERROR: no chat-completion API key found in environment")
		return nil, fmt.Errorf("API key is required: set OPENAI_API_KEY or GROQ_API_KEY")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
		log.Printf("SummarizationService initialized with custom base_url: %s", baseURL)
	}
	config.HTTPClient = &http.Client{Timeout: apiTimeout()}

	gptModel := os.Getenv("OPENAI_GPT_MODEL")
	if gptModel == "" {
		gptModel = "meta-llama/llama-3.1-8b-instruct"
	}
	log.Printf("SummarizationService initialized with model: %s", gptModel)

	return &SummarizationService{
		client:     openai.NewClientWithConfig(config),
		model:      gptModel,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}, nil
}

// GenerateSummary analyzes the transcript and returns a structured summary.
//
// An empty or whitespace-only transcript fails immediately with a
// validation error and no retry. Past that point the method never fails:
// API, parsing and structure errors are retried up to maxRetries attempts
// with a fixed delay, and exhausted retries yield a fixed fallback result
// with empty list fields.
func (s *SummarizationService) GenerateSummary(ctx context.Context, transcriptText string) (*SummaryResult, error) {
	log.Println("Starting summary generation")

	if strings.TrimSpace(transcriptText) == "" {
		log.Println("ERROR transcript text cannot be empty")
		return nil, fmt.Errorf("%w: transcript text cannot be empty", ErrValidation)
	}

	prompt := fmt.Sprintf(summaryPrompt, transcriptText)

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		log.Printf("Sending request to %s for summary generation (attempt %d/%d)", s.model, attempt, s.maxRetries)

		result, err := s.requestSummary(ctx, prompt)
		if err == nil {
			log.Printf(
				"Summary generation completed successfully. Decisions: %d, Action items: %d, Topics: %d",
				len(result.KeyDecisions), len(result.RawActionItems), len(result.DiscussionTopics),
			)
			return result, nil
		}

		lastErr = err
		log.Printf("WARNING attempt %d/%d failed: %v", attempt, s.maxRetries, err)
		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	log.Printf("ERROR summary generation failed after %d attempts: %v", s.maxRetries, lastErr)
	log.Println("WARNING returning fallback summary due to repeated failures")

	return &SummaryResult{
		ExecutiveSummary: fallbackExecutiveSummary,
		KeyDecisions:     []string{},
		DiscussionTopics: []string{},
		Participants:     []string{},
		Insights:         []string{},
		RawActionItems:   []map[string]interface{}{},
	}, nil
}

// requestSummary performs one chat-completion round trip: call, parse,
// repair, validate. Any error is retryable from the caller's perspective.
func (s *SummarizationService) requestSummary(ctx context.Context, prompt string) (*SummaryResult, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a meeting analysis expert specializing in extracting insights from meeting transcripts.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("received empty response from API")
	}
	content := resp.Choices[0].Message.Content

	payload, err := parseSummaryJSON(content)
	if err != nil {
		return nil, err
	}

	if err := validateSummaryStructure(payload); err != nil {
		return nil, err
	}

	return buildSummaryResult(payload), nil
}

// parseSummaryJSON decodes the model output, falling back to extracting the
// outermost JSON object when the model wrapped it in prose.
func parseSummaryJSON(content string) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		return payload, nil
	} else {
		log.Printf("WARNING initial JSON parse failed: %v", err)
	}

	span := jsonObjectPattern.FindString(content)
	if span == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var payload2 map[string]interface{}
	if err := json.Unmarshal([]byte(span), &payload2); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	log.Println("Successfully extracted JSON from response")
	return payload2, nil
}

// validateSummaryStructure checks required keys and their types.
// participants and insights may be absent; the other four keys must be
// present and correctly typed.
func validateSummaryStructure(payload map[string]interface{}) error {
	requiredLists := []string{"key_decisions", "action_items", "discussion_topics"}

	raw, ok := payload["executive_summary"]
	if !ok {
		return fmt.Errorf("summary structure validation failed: missing key executive_summary")
	}
	if _, ok := raw.(string); !ok {
		return fmt.Errorf("summary structure validation failed: executive_summary must be a string")
	}

	for _, key := range requiredLists {
		raw, ok := payload[key]
		if !ok {
			return fmt.Errorf("summary structure validation failed: missing key %s", key)
		}
		if _, ok := raw.([]interface{}); !ok {
			return fmt.Errorf("summary structure validation failed: %s must be an array", key)
		}
	}

	return nil
}

// buildSummaryResult converts a validated payload into a SummaryResult.
func buildSummaryResult(payload map[string]interface{}) *SummaryResult {
	result := &SummaryResult{
		ExecutiveSummary: payload["executive_summary"].(string),
		KeyDecisions:     stringSlice(payload["key_decisions"]),
		DiscussionTopics: stringSlice(payload["discussion_topics"]),
		Participants:     stringSlice(payload["participants"]),
		Insights:         stringSlice(payload["insights"]),
		RawActionItems:   []map[string]interface{}{},
	}

	items, _ := payload["action_items"].([]interface{})
	for _, raw := range items {
		if item, ok := raw.(map[string]interface{}); ok {
			result.RawActionItems = append(result.RawActionItems, item)
		}
	}

	return result
}

// stringSlice coerces a JSON array value into a string slice, skipping
// non-string entries. Absent or mistyped values yield an empty slice.
func stringSlice(raw interface{}) []string {
	out := []string{}
	list, ok := raw.([]interface{})
	if !ok {
		return out
	}
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExtractActionItems filters and normalizes the raw action items of a
// summary result. An item is kept only when task, assignee and priority are
// all present; priority is lowercased and coerced to medium when it is not
// a known level; deadline passes through unmodified.
func (s *SummarizationService) ExtractActionItems(result *SummaryResult) []ActionItemData {
	return ExtractActionItems(result)
}

// ExtractActionItems is the package-level implementation shared with the
// pipeline's test doubles.
func ExtractActionItems(result *SummaryResult) []ActionItemData {
	log.Println("Extracting action items from summary")

	formatted := []ActionItemData{}
	if result == nil {
		return formatted
	}

	for idx, item := range result.RawActionItems {
		task, hasTask := item["task"].(string)
		assignee, hasAssignee := item["assignee"].(string)
		priority, hasPriority := item["priority"].(string)

		if !hasTask || !hasAssignee || !hasPriority {
			log.Printf("WARNING action item %d missing required fields, skipping: %+v", idx, item)
			continue
		}

		normalized := model.NormalizePriority(priority)
		if normalized != strings.ToLower(priority) {
			log.Printf("WARNING invalid priority %q for action item, setting to 'medium'", priority)
		}

		deadline, _ := item["deadline"].(string)

		formatted = append(formatted, ActionItemData{
			Task:     task,
			Assignee: assignee,
			Priority: normalized,
			Deadline: deadline,
		})
	}

	log.Printf("Extracted %d valid action items", len(formatted))
	return formatted
}
