package services

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/models"
	"github.com/telcolog/backend/internal/storage"
)

const unreachableURL = "http://127.0.0.1:1"

func newTestPipeline(t *testing.T, store storage.Store, milvusURL, llmURL string) *IngestionPipeline {
	t.Helper()
	embedder := NewEmbeddingClient(embeddingConfig(unreachableURL, 0), nil)
	index := NewVectorIndex(&config.MilvusConfig{
		URL:        milvusURL,
		Collection: "telecom_log_vectors",
		Timeout:    2 * time.Second,
	}, 384)
	engine := analysisEngine(llmURL)

	p := NewIngestionPipeline(store, embedder, index, engine, config.PipelineConfig{
		Workers:     1,
		QueueSize:   10,
		ChunkSize:   512,
		EmbedFanout: 2,
	})
	t.Cleanup(p.Stop)
	return p
}

func uploadTestLog(t *testing.T, store storage.Store, content string) uint {
	t.Helper()
	record := &models.LogRecord{
		Filename: "bts12.log",
		Content:  content,
		Size:     int64(len(content)),
	}
	if err := store.CreateLog(record); err != nil {
		t.Fatalf("failed to create log record: %v", err)
	}
	return record.ID
}

func activityTypes(t *testing.T, store storage.Store) []models.ActivityType {
	t.Helper()
	recent, err := store.ListRecentActivities(20)
	if err != nil {
		t.Fatalf("failed to list activities: %v", err)
	}
	// ListRecentActivities returns newest first; reverse into event order.
	types := make([]models.ActivityType, len(recent))
	for i, a := range recent {
		types[len(recent)-1-i] = a.Type
	}
	return types
}

func TestProcessVectorStoreDownLLMUp(t *testing.T) {
	llm := completionServer(t, `{
		"issues": [{"title": "Authentication failure burst", "description": "Repeated token rejections", "severity": "high", "firstOccurrence": "2024-01-15 08:23:11", "status": "pending"}],
		"recommendations": [{"title": "Rotate credentials", "description": "Reissue the station token", "category": "authentication", "autoResolved": false, "docLink": ""}],
		"summary": "Repeated authentication failures on BTS-12.",
		"severity": "high"
	}`)
	defer llm.Close()

	store := storage.NewMemoryStore()
	p := newTestPipeline(t, store, unreachableURL, llm.URL)

	content := "2024-01-15 08:23:11 ERROR auth: token rejected for BTS-12\n" +
		"2024-01-15 08:23:12 ERROR auth: token rejected for BTS-12\n"
	id := uploadTestLog(t, store, content)

	p.Process(context.Background(), id)

	record, err := store.GetLog(id)
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if record.Status != models.StatusCompletedWithoutVectors {
		t.Errorf("expected status %q, got %q", models.StatusCompletedWithoutVectors, record.Status)
	}

	// The analysis is full quality even though the vector store is down.
	analysis, err := store.GetAnalysisByLogID(id)
	if err != nil {
		t.Fatalf("expected an analysis result: %v", err)
	}
	if analysis.Severity != models.SeverityHigh {
		t.Errorf("expected severity high, got %q", analysis.Severity)
	}
	if len(analysis.Issues) != 1 || analysis.Issues[0].Title != "Authentication failure burst" {
		t.Errorf("expected the LLM-produced issue, got %+v", analysis.Issues)
	}
	if analysis.ResolutionStatus != models.ResolutionPending {
		t.Errorf("expected resolution status pending, got %q", analysis.ResolutionStatus)
	}

	// Segments are kept with placeholder ids for later re-indexing.
	embeddings, err := store.ListEmbeddingsByLogID(id)
	if err != nil {
		t.Fatalf("failed to list embeddings: %v", err)
	}
	if len(embeddings) == 0 {
		t.Fatal("expected embedding records despite the vector store being down")
	}
	for _, e := range embeddings {
		if !e.IsPlaceholder() {
			t.Errorf("expected placeholder vector id, got %q", e.VectorID)
		}
	}

	types := activityTypes(t, store)
	want := []models.ActivityType{
		models.ActivityUpload,
		models.ActivityProcessing,
		models.ActivityError,
		models.ActivityAnalysis,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d activities, got %d: %v", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("activity %d: expected %q, got %q", i, want[i], types[i])
		}
	}
}

func TestProcessLLMDownVectorsUp(t *testing.T) {
	fake := &fakeMilvus{}
	milvus := httptest.NewServer(fake.handler())
	defer milvus.Close()

	store := storage.NewMemoryStore()
	p := newTestPipeline(t, store, milvus.URL, unreachableURL)

	id := uploadTestLog(t, store, strings.Repeat("error: carrier lock lost\n", 12))
	p.Process(context.Background(), id)

	record, _ := store.GetLog(id)
	if record.Status != models.StatusCompleted {
		t.Errorf("expected status %q, got %q", models.StatusCompleted, record.Status)
	}

	// Heuristic analysis still lands, with severity from the thresholds.
	analysis, err := store.GetAnalysisByLogID(id)
	if err != nil {
		t.Fatalf("expected an analysis result: %v", err)
	}
	if analysis.Severity != models.SeverityHigh {
		t.Errorf("expected heuristic severity high for 12 errors, got %q", analysis.Severity)
	}
	if !strings.Contains(analysis.Summary, "Heuristic") {
		t.Errorf("expected a heuristic summary, got %q", analysis.Summary)
	}

	embeddings, _ := store.ListEmbeddingsByLogID(id)
	if len(embeddings) == 0 {
		t.Fatal("expected embedding records")
	}
	for _, e := range embeddings {
		if e.IsPlaceholder() {
			t.Errorf("expected a real vector id with the store up, got %q", e.VectorID)
		}
	}

	types := activityTypes(t, store)
	want := []models.ActivityType{
		models.ActivityUpload,
		models.ActivityProcessing,
		models.ActivityAnalysis,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d activities, got %d: %v", len(want), len(types), types)
	}
}

func TestProcessBothBackendsDown(t *testing.T) {
	store := storage.NewMemoryStore()
	p := newTestPipeline(t, store, unreachableURL, unreachableURL)

	id := uploadTestLog(t, store, "error: link down\nwarning follows\n")
	p.Process(context.Background(), id)

	record, _ := store.GetLog(id)
	if record.Status != models.StatusCompletedWithoutVectors {
		t.Errorf("expected status %q, got %q", models.StatusCompletedWithoutVectors, record.Status)
	}
	if _, err := store.GetAnalysisByLogID(id); err != nil {
		t.Errorf("expected a heuristic analysis even with every backend down: %v", err)
	}
}

func TestProcessEmptyContent(t *testing.T) {
	store := storage.NewMemoryStore()
	p := newTestPipeline(t, store, unreachableURL, unreachableURL)

	id := uploadTestLog(t, store, "")
	p.Process(context.Background(), id)

	record, _ := store.GetLog(id)
	if record.Status != models.StatusCompleted {
		t.Errorf("expected empty content to complete without touching the vector store, got %q", record.Status)
	}
	embeddings, _ := store.ListEmbeddingsByLogID(id)
	if len(embeddings) != 0 {
		t.Errorf("expected no embedding records for empty content, got %d", len(embeddings))
	}
}

func TestEnqueueProcessesInBackground(t *testing.T) {
	fake := &fakeMilvus{}
	milvus := httptest.NewServer(fake.handler())
	defer milvus.Close()

	store := storage.NewMemoryStore()
	p := newTestPipeline(t, store, milvus.URL, unreachableURL)

	id := uploadTestLog(t, store, "error: one\nerror: two\n")
	if err := p.Enqueue(id); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		record, err := store.GetLog(id)
		if err != nil {
			t.Fatalf("failed to load record: %v", err)
		}
		if record.Status.IsTerminal() {
			if record.Status != models.StatusCompleted {
				t.Errorf("expected terminal status %q, got %q", models.StatusCompleted, record.Status)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("record never reached a terminal status, last status %q", record.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEnqueueFailsWhenQueueFull(t *testing.T) {
	store := storage.NewMemoryStore()
	embedder := NewEmbeddingClient(embeddingConfig(unreachableURL, 0), nil)
	index := NewVectorIndex(&config.MilvusConfig{URL: unreachableURL, Timeout: time.Second}, 384)
	engine := analysisEngine(unreachableURL)

	p := NewIngestionPipeline(store, embedder, index, engine, config.PipelineConfig{
		Workers:   1,
		QueueSize: 2,
	})
	// Stop the workers so nothing drains the queue.
	p.Stop()

	if err := p.Enqueue(1); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := p.Enqueue(2); err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}
	if err := p.Enqueue(3); err == nil {
		t.Fatal("expected an error when the queue is full")
	}
}
