package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/logger"
	"github.com/telcolog/backend/internal/metrics"
)

// VectorIndex wraps the Milvus HTTP API. Unlike the embedding and analysis
// clients it does NOT swallow failures: insert and search errors propagate so
// the orchestration layer can pick the right fallback, because an insert
// failure has different consequences than a query failure.
type VectorIndex struct {
	baseURL    string
	collection string
	dimension  int
	client     *http.Client

	mu      sync.Mutex
	ensured bool
}

// VectorSegment pairs a text chunk with its embedding for insertion.
type VectorSegment struct {
	Text   string
	Vector []float32
}

// Hit is one similarity-search result.
type Hit struct {
	LogID uint    `json:"logId"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type milvusResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func NewVectorIndex(cfg *config.MilvusConfig, dimension int) *VectorIndex {
	if dimension <= 0 {
		dimension = 384
	}
	return &VectorIndex{
		baseURL:    cfg.URL,
		collection: cfg.Collection,
		dimension:  dimension,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// EnsureCollection creates and loads the backing collection if absent.
// Idempotent and safe to call concurrently; once a call succeeds, later
// calls are no-ops.
func (vi *VectorIndex) EnsureCollection(ctx context.Context) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	if vi.ensured {
		return nil
	}

	var hasData struct {
		Has bool `json:"has"`
	}
	if err := vi.post(ctx, "/v2/vectordb/collections/has", map[string]interface{}{
		"collectionName": vi.collection,
	}, &hasData); err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !hasData.Has {
		create := map[string]interface{}{
			"collectionName": vi.collection,
			"schema": map[string]interface{}{
				"autoID": true,
				"fields": []map[string]interface{}{
					{
						"fieldName": "id",
						"dataType":  "Int64",
						"isPrimary": true,
					},
					{
						"fieldName": "log_id",
						"dataType":  "Int64",
					},
					{
						"fieldName": "text",
						"dataType":  "VarChar",
						"elementTypeParams": map[string]interface{}{
							"max_length": 65535,
						},
					},
					{
						"fieldName": "vector",
						"dataType":  "FloatVector",
						"elementTypeParams": map[string]interface{}{
							"dim": vi.dimension,
						},
					},
				},
			},
			"indexParams": []map[string]interface{}{
				{
					"fieldName":  "vector",
					"indexName":  "vector_idx",
					"metricType": "COSINE",
				},
			},
		}
		if err := vi.post(ctx, "/v2/vectordb/collections/create", create, nil); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.WithBackend("milvus").WithField("collection", vi.collection).
			Info("created vector collection")
	}

	if err := vi.post(ctx, "/v2/vectordb/collections/load", map[string]interface{}{
		"collectionName": vi.collection,
	}, nil); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	vi.ensured = true
	return nil
}

// Insert bulk-inserts segment vectors for a log and returns the
// store-assigned ids. Errors propagate to the caller.
func (vi *VectorIndex) Insert(ctx context.Context, logID uint, segments []VectorSegment) ([]string, error) {
	if err := vi.EnsureCollection(ctx); err != nil {
		metrics.VectorStoreErrors.WithLabelValues("insert").Inc()
		return nil, err
	}

	rows := make([]map[string]interface{}, len(segments))
	for i, seg := range segments {
		rows[i] = map[string]interface{}{
			"log_id": int64(logID),
			"text":   seg.Text,
			"vector": seg.Vector,
		}
	}

	var insertData struct {
		InsertCount int               `json:"insertCount"`
		InsertIDs   []json.RawMessage `json:"insertIds"`
	}
	if err := vi.post(ctx, "/v2/vectordb/entities/insert", map[string]interface{}{
		"collectionName": vi.collection,
		"data":           rows,
	}, &insertData); err != nil {
		metrics.VectorStoreErrors.WithLabelValues("insert").Inc()
		return nil, fmt.Errorf("failed to insert vectors: %w", err)
	}

	ids := make([]string, len(insertData.InsertIDs))
	for i, raw := range insertData.InsertIDs {
		// Milvus returns ids as numbers or strings depending on the pk type.
		ids[i] = string(bytes.Trim(raw, `"`))
	}
	return ids, nil
}

// Search runs an approximate nearest-neighbor query and returns hits ranked
// by descending cosine similarity. Errors propagate; the caller falls back
// to keyword search.
func (vi *VectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if err := vi.EnsureCollection(ctx); err != nil {
		metrics.VectorStoreErrors.WithLabelValues("search").Inc()
		return nil, err
	}

	var rows []map[string]interface{}
	if err := vi.post(ctx, "/v2/vectordb/entities/search", map[string]interface{}{
		"collectionName": vi.collection,
		"data":           [][]float32{vector},
		"annsField":      "vector",
		"limit":          limit,
		"outputFields":   []string{"log_id", "text"},
	}, &rows); err != nil {
		metrics.VectorStoreErrors.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		hit := Hit{}
		if v, ok := row["log_id"].(float64); ok {
			hit.LogID = uint(v)
		}
		if v, ok := row["text"].(string); ok {
			hit.Text = v
		}
		if v, ok := row["distance"].(float64); ok {
			// COSINE metric: the reported distance is already a similarity.
			hit.Score = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (vi *VectorIndex) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vi.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := vi.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("milvus returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var wrapper milvusResponse
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if wrapper.Code != 0 {
		return fmt.Errorf("milvus returned code %d: %s", wrapper.Code, wrapper.Message)
	}
	if out != nil && len(wrapper.Data) > 0 {
		if err := json.Unmarshal(wrapper.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
