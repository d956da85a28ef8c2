package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/logger"
	"github.com/telcolog/backend/internal/metrics"
	"github.com/telcolog/backend/internal/storage"
)

// KeywordRelevance labels results produced by the substring fallback.
const KeywordRelevance = "Keyword match"

// SearchResult is one ranked hit. The shape is identical for the vector and
// keyword paths so callers never branch on the degradation mode.
type SearchResult struct {
	LogID     uint    `json:"logId"`
	Filename  string  `json:"filename"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	Relevance string  `json:"relevance"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Summary string         `json:"summary"`
}

// SearchService orchestrates query embedding, vector search, result
// enrichment and LLM summarization, degrading to keyword search when the
// vector store is unreachable. Only total persistence failure propagates as
// an error.
type SearchService struct {
	store    storage.Store
	embedder *EmbeddingClient
	index    *VectorIndex
	engine   *AnalysisEngine
	cfg      config.SearchConfig
}

func NewSearchService(store storage.Store, embedder *EmbeddingClient, index *VectorIndex,
	engine *AnalysisEngine, cfg config.SearchConfig) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
		index:    index,
		engine:   engine,
		cfg:      cfg,
	}
}

func (s *SearchService) Search(ctx context.Context, query string) (*SearchResponse, error) {
	vector := s.embedder.Embed(ctx, query)

	hits, err := s.index.Search(ctx, vector, s.cfg.TopK)
	if err != nil {
		logger.WithSearch(query).WithField("error", err.Error()).
			Warn("vector search unavailable, falling back to keyword search")
		return s.keywordSearch(query)
	}

	metrics.SearchesTotal.WithLabelValues("vector").Inc()

	filenames := make(map[uint]string)
	results := make([]SearchResult, 0, len(hits))
	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		filename, ok := filenames[hit.LogID]
		if !ok {
			if record, err := s.store.GetLog(hit.LogID); err == nil {
				filename = record.Filename
			}
			filenames[hit.LogID] = filename
		}
		results = append(results, SearchResult{
			LogID:     hit.LogID,
			Filename:  filename,
			Text:      hit.Text,
			Score:     hit.Score,
			Relevance: s.relevanceLabel(hit.Score),
		})
		texts = append(texts, hit.Text)
	}

	summary := s.engine.SemanticSearch(ctx, query, texts)
	return &SearchResponse{Results: results, Summary: summary}, nil
}

// relevanceLabel buckets a similarity score into a coarse human-readable
// label using the configured bands.
func (s *SearchService) relevanceLabel(score float64) string {
	switch {
	case score >= s.cfg.HighRelevance:
		return "high"
	case score >= s.cfg.MediumRelevance:
		return "medium"
	default:
		return "low"
	}
}

// keywordSearch is the degraded path: a case-insensitive substring scan over
// all stored log content, returning a fixed-size context window around the
// first match per log. Persistence failure here is the only error the whole
// service propagates.
func (s *SearchService) keywordSearch(query string) (*SearchResponse, error) {
	records, err := s.store.ListLogs()
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for keyword search: %w", err)
	}

	metrics.SearchesTotal.WithLabelValues("keyword").Inc()

	needle := strings.ToLower(query)
	window := s.cfg.KeywordWindow
	results := make([]SearchResult, 0)
	for _, record := range records {
		idx := strings.Index(strings.ToLower(record.Content), needle)
		if idx < 0 {
			continue
		}
		start := idx - window
		if start < 0 {
			start = 0
		}
		end := idx + len(query) + window
		if end > len(record.Content) {
			end = len(record.Content)
		}
		results = append(results, SearchResult{
			LogID:     record.ID,
			Filename:  record.Filename,
			Text:      record.Content[start:end],
			Score:     s.cfg.FallbackScore,
			Relevance: KeywordRelevance,
		})
	}

	summary := fmt.Sprintf("Vector search is unavailable; showing %d keyword matches for %q.",
		len(results), query)
	return &SearchResponse{Results: results, Summary: summary}, nil
}
