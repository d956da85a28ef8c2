package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/models"
	"github.com/telcolog/backend/internal/services"
	"github.com/telcolog/backend/internal/storage"
)

func newTestRouter(t *testing.T, store storage.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	embedder := services.NewEmbeddingClient(&config.EmbeddingConfig{
		URL:       "http://127.0.0.1:1",
		Dimension: 8,
		Timeout:   time.Second,
	}, nil)
	index := services.NewVectorIndex(&config.MilvusConfig{
		URL:        "http://127.0.0.1:1",
		Collection: "telecom_log_vectors",
		Timeout:    time.Second,
	}, 8)
	engine := services.NewAnalysisEngine(&config.LLMConfig{
		URL:     "http://127.0.0.1:1",
		Timeout: time.Second,
	}, cfg.Analysis)
	pipeline := services.NewIngestionPipeline(store, embedder, index, engine, config.PipelineConfig{
		Workers:   1,
		QueueSize: 10,
	})
	t.Cleanup(pipeline.Stop)

	lc := NewLogController(store, pipeline, cfg.Upload, cfg.Pipeline.SampleSize)

	r := gin.New()
	r.POST("/api/logs/upload", lc.UploadLog)
	r.GET("/api/logs", lc.ListLogs)
	r.PATCH("/api/analysis/:id/status", lc.UpdateResolutionStatus)
	return r
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("logfile", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	router := newTestRouter(t, storage.NewMemoryStore())

	body, contentType := multipartUpload(t, "capture.pcap", "binary stuff")
	req := httptest.NewRequest(http.MethodPost, "/api/logs/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a .pcap upload, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUploadRejectsNonTelecomContent(t *testing.T) {
	router := newTestRouter(t, storage.NewMemoryStore())

	content := "just some prose\nnothing resembling a log line\nmore prose\nand more\nstill nothing\n"
	body, contentType := multipartUpload(t, "notes.txt", content)
	req := httptest.NewRequest(http.MethodPost, "/api/logs/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for non-log content, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUploadAcceptsValidLog(t *testing.T) {
	store := storage.NewMemoryStore()
	router := newTestRouter(t, store)

	content := "2024-01-15 08:23:11 ERROR auth: token rejected\n" +
		"2024-01-15 08:23:12 INFO auth: retry scheduled\n"
	body, contentType := multipartUpload(t, "bts12.log", content)
	req := httptest.NewRequest(http.MethodPost, "/api/logs/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	records, err := store.ListLogs()
	if err != nil {
		t.Fatalf("ListLogs failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(records))
	}
	if records[0].Filename != "bts12.log" || records[0].Content != content {
		t.Errorf("stored record does not match the upload: %+v", records[0])
	}
}

func TestUpdateResolutionStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	router := newTestRouter(t, store)

	analysis := &models.AnalysisResult{LogID: 1, Severity: models.SeverityLow}
	if err := store.CreateAnalysis(analysis); err != nil {
		t.Fatalf("CreateAnalysis failed: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"status": "resolved"})
	req := httptest.NewRequest(http.MethodPatch, "/api/analysis/1/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	updated, err := store.GetAnalysis(analysis.ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if updated.ResolutionStatus != models.ResolutionResolved {
		t.Errorf("expected resolution resolved, got %q", updated.ResolutionStatus)
	}
	if updated.ResolvedAt == nil {
		t.Error("resolving must set the resolution time")
	}

	// The transition lands in the activity feed.
	activities, err := store.ListRecentActivities(5)
	if err != nil {
		t.Fatalf("ListRecentActivities failed: %v", err)
	}
	found := false
	for _, a := range activities {
		if a.Type == models.ActivityStatusChange && strings.Contains(a.Description, "resolved") {
			found = true
		}
	}
	if !found {
		t.Error("expected a status_change activity for the transition")
	}
}

func TestUpdateResolutionStatusRejectsUnknownValue(t *testing.T) {
	store := storage.NewMemoryStore()
	router := newTestRouter(t, store)
	if err := store.CreateAnalysis(&models.AnalysisResult{LogID: 1}); err != nil {
		t.Fatalf("CreateAnalysis failed: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"status": "done"})
	req := httptest.NewRequest(http.MethodPatch, "/api/analysis/1/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown status, got %d", w.Code)
	}
}
