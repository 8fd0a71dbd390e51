package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	model "github.com/nkhandel/MeetingMind/models"
)

const transcriptIndex = "transcripts"

// SearchService mirrors transcripts into Elasticsearch for full-text search.
// It is optional: when ELASTICSEARCH_URL is unset the service is nil and the
// rest of the application carries on without search.
type SearchService struct {
	esClient *elasticsearch.Client
}

// NewSearchService builds the search service, or returns nil when no
// Elasticsearch URL is configured or the client cannot be created.
func NewSearchService() *SearchService {
	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		log.Println("ELASTICSEARCH_URL not set. Transcript search disabled.")
		return nil
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		log.Printf("WARNING failed to create Elasticsearch client: %v", err)
		return nil
	}
	return &SearchService{esClient: esClient}
}

// IndexTranscript indexes a transcript for search. Indexing is best-effort
// and never fails the processing pipeline: every error is logged and
// swallowed.
func (s *SearchService) IndexTranscript(rec *model.Recording, transcript *model.Transcript) {
	doc := map[string]interface{}{
		"recording_id": rec.ID,
		"title":        rec.Title,
		"text":         transcript.Text,
		"word_count":   transcript.WordCount,
		"timestamp":    time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		log.Printf("WARNING failed to marshal transcript for indexing: %v", err)
		return
	}

	res, err := s.esClient.Index(
		transcriptIndex,
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(transcript.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("WARNING Elasticsearch indexing error: %v", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("WARNING Elasticsearch indexing failed: %s", res.String())
		return
	}
	log.Printf("Transcript %s indexed for search", transcript.ID)
}

// SearchTranscripts runs a multi_match query over transcript text and
// recording titles and returns the matching documents.
func (s *SearchService) SearchTranscripts(query string) ([]map[string]interface{}, error) {
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"text", "title"},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex(transcriptIndex),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var matches []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		matches = append(matches, source)
	}
	return matches, nil
}
