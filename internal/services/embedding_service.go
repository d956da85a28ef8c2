package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"math/rand"
	"net/http"

	"github.com/telcolog/backend/internal/cache"
	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/logger"
	"github.com/telcolog/backend/internal/metrics"
)

// EmbeddingClient wraps the remote embedding endpoint. It never returns an
// error to callers: any transport failure flips the health state and the
// client serves a deterministic pseudo-embedding instead, so fallback-mode
// similarity search keeps internally consistent rankings.
type EmbeddingClient struct {
	url       string
	model     string
	dimension int
	client    *http.Client
	health    *HealthState
	cache     *cache.EmbeddingCache
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewEmbeddingClient builds a client from config. The cache may be nil.
func NewEmbeddingClient(cfg *config.EmbeddingConfig, embCache *cache.EmbeddingCache) *EmbeddingClient {
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 384
	}
	return &EmbeddingClient{
		url:       cfg.URL,
		model:     cfg.Model,
		dimension: dimension,
		client:    &http.Client{Timeout: cfg.Timeout},
		health:    NewHealthState(cfg.ProbeCooldown),
		cache:     embCache,
	}
}

// Embed returns a fixed-length vector for text. On any backend failure it
// returns the deterministic fallback vector for the same text.
func (ec *EmbeddingClient) Embed(ctx context.Context, text string) []float32 {
	if vec := ec.cache.Get(ctx, text); vec != nil {
		return vec
	}

	if !ec.health.ShouldAttempt() {
		metrics.EmbeddingFallbacks.Inc()
		return ec.fallbackEmbedding(text)
	}

	vec, err := ec.callEmbedding(ctx, text)
	if err != nil {
		logger.WithBackend("embedding").WithField("error", err.Error()).
			Warn("embedding request failed, using deterministic fallback")
		ec.health.MarkDegraded()
		metrics.EmbeddingFallbacks.Inc()
		return ec.fallbackEmbedding(text)
	}

	ec.health.MarkHealthy()
	ec.cache.Put(ctx, text, vec)
	return vec
}

// EmbedBatch applies Embed to each text independently.
func (ec *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = ec.Embed(ctx, text)
	}
	return vectors
}

// Degraded reports whether the client is currently serving fallbacks.
func (ec *EmbeddingClient) Degraded() bool {
	return ec.health.Degraded()
}

func (ec *EmbeddingClient) callEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Model: ec.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ec.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned an empty vector")
	}
	return result.Embedding, nil
}

// fallbackEmbedding derives a reproducible unit vector from the text: the
// FNV-64a hash of the text seeds a PRNG that fills the vector with uniform
// values, then the vector is normalized. Identical text always yields the
// identical vector.
func (ec *EmbeddingClient) fallbackEmbedding(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, ec.dimension)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
