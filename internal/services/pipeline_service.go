package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/logger"
	"github.com/telcolog/backend/internal/metrics"
	"github.com/telcolog/backend/internal/models"
	"github.com/telcolog/backend/internal/parser"
	"github.com/telcolog/backend/internal/storage"
)

// IngestionPipeline runs the processing state machine for uploaded logs:
// validate -> segment -> embed -> index -> analyze -> finalize. Ingestions
// are handed to a bounded worker pool so background processing is supervised
// and a crash lands in the record's terminal status instead of being lost.
//
// Vector availability and analysis quality degrade independently: a log can
// get a full analysis while the vector store is down, and vectors can be
// stored and searchable while the LLM is down. The terminal status reports
// only the vector-search capability.
type IngestionPipeline struct {
	store    storage.Store
	embedder *EmbeddingClient
	index    *VectorIndex
	engine   *AnalysisEngine

	chunkSize int
	fanout    int

	queue    chan uint
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewIngestionPipeline(store storage.Store, embedder *EmbeddingClient, index *VectorIndex,
	engine *AnalysisEngine, cfg config.PipelineConfig) *IngestionPipeline {

	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = parser.DefaultChunkSize
	}
	fanout := cfg.EmbedFanout
	if fanout <= 0 {
		fanout = 1
	}

	p := &IngestionPipeline{
		store:     store,
		embedder:  embedder,
		index:     index,
		engine:    engine,
		chunkSize: chunkSize,
		fanout:    fanout,
		queue:     make(chan uint, queueSize),
		stopChan:  make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Enqueue hands a pending log record to the worker pool. Fails when the
// queue is full rather than blocking the upload response.
func (p *IngestionPipeline) Enqueue(logID uint) error {
	select {
	case p.queue <- logID:
		return nil
	default:
		return fmt.Errorf("ingestion queue is full")
	}
}

// Stop shuts the worker pool down and waits for in-flight ingestions.
func (p *IngestionPipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

func (p *IngestionPipeline) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case logID := <-p.queue:
			p.runSupervised(logID)
		case <-p.stopChan:
			logger.Info("ingestion worker stopping", map[string]interface{}{"workerID": id})
			return
		}
	}
}

// runSupervised wraps Process so a panic in one ingestion is reflected in
// the record's terminal status instead of killing the worker.
func (p *IngestionPipeline) runSupervised(logID uint) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingestion panicked", map[string]interface{}{
				"log_id": logID,
				"panic":  fmt.Sprintf("%v", r),
			})
			p.failRecord(logID, fmt.Sprintf("internal error: %v", r))
		}
	}()
	p.Process(context.Background(), logID)
}

// Process runs the full state machine for one log record. Stages execute in
// strict order and Activities are appended in the same order.
func (p *IngestionPipeline) Process(ctx context.Context, logID uint) {
	start := time.Now()

	record, err := p.store.GetLog(logID)
	if err != nil {
		logger.WithError(err, "pipeline").Error("cannot load log record")
		return
	}
	log := logger.WithLog(record.ID, record.Filename)

	if err := p.store.UpdateLogStatus(logID, models.StatusProcessing); err != nil {
		log.WithField("error", err.Error()).Error("cannot mark record processing")
		return
	}
	if err := p.recordActivity(logID, models.ActivityUpload,
		fmt.Sprintf("Uploaded log file: %s", record.Filename), "success"); err != nil {
		p.failRecord(logID, err.Error())
		return
	}
	if err := p.recordActivity(logID, models.ActivityProcessing,
		fmt.Sprintf("Processing started for %s", record.Filename), "in_progress"); err != nil {
		p.failRecord(logID, err.Error())
		return
	}

	chunks := parser.SegmentForEmbedding(record.Content, p.chunkSize)
	vectors := p.embedChunks(ctx, chunks)

	vectorsAvailable := true
	if len(chunks) > 0 {
		segments := make([]VectorSegment, len(chunks))
		for i := range chunks {
			segments[i] = VectorSegment{Text: chunks[i], Vector: vectors[i]}
		}

		embeddingRecords := make([]models.EmbeddingRecord, len(chunks))
		ids, err := p.index.Insert(ctx, logID, segments)
		if err != nil || len(ids) != len(chunks) {
			// Non-fatal: keep the segments with placeholder ids so they can
			// be re-indexed later, and continue to analysis.
			vectorsAvailable = false
			if err == nil {
				err = fmt.Errorf("vector store returned %d ids for %d segments", len(ids), len(chunks))
			}
			log.WithField("error", err.Error()).Warn("vector store unavailable, storing placeholder ids")
			for i := range chunks {
				embeddingRecords[i] = models.EmbeddingRecord{
					LogID:    logID,
					Segment:  chunks[i],
					VectorID: "local-" + uuid.NewString(),
				}
			}
			if aerr := p.recordActivity(logID, models.ActivityError,
				fmt.Sprintf("Vector store unavailable for %s: %v", record.Filename, err), "degraded"); aerr != nil {
				p.failRecord(logID, aerr.Error())
				return
			}
		} else {
			for i := range chunks {
				embeddingRecords[i] = models.EmbeddingRecord{
					LogID:    logID,
					Segment:  chunks[i],
					VectorID: ids[i],
				}
			}
		}

		if err := p.store.CreateEmbeddings(embeddingRecords); err != nil {
			p.failRecord(logID, err.Error())
			return
		}
	}

	report := p.engine.Analyze(ctx, record.Content)
	analysis := &models.AnalysisResult{
		LogID:            logID,
		Issues:           report.Issues,
		Recommendations:  report.Recommendations,
		Severity:         report.Severity,
		Summary:          report.Summary,
		ResolutionStatus: models.ResolutionPending,
	}
	if err := p.store.CreateAnalysis(analysis); err != nil {
		p.failRecord(logID, err.Error())
		return
	}

	finalStatus := models.StatusCompleted
	if !vectorsAvailable {
		finalStatus = models.StatusCompletedWithoutVectors
	}
	if err := p.store.UpdateLogStatus(logID, finalStatus); err != nil {
		p.failRecord(logID, err.Error())
		return
	}

	path := "full analysis"
	if report.Fallback {
		path = "heuristic analysis"
	}
	if !vectorsAvailable {
		path += ", vectors unavailable"
	}
	if err := p.recordActivity(logID, models.ActivityAnalysis,
		fmt.Sprintf("Completed analysis of %s (%s)", record.Filename, path), string(finalStatus)); err != nil {
		p.failRecord(logID, err.Error())
		return
	}

	metrics.IngestionsTotal.WithLabelValues(string(finalStatus)).Inc()
	metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	log.WithField("status", finalStatus).Info("ingestion finished")
}

// embedChunks embeds all chunks with a bounded fan-out. Embed never fails,
// so the only coordination needed is the concurrency cap.
func (p *IngestionPipeline) embedChunks(ctx context.Context, chunks []string) [][]float32 {
	vectors := make([][]float32, len(chunks))
	sem := make(chan struct{}, p.fanout)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			vectors[i] = p.embedder.Embed(ctx, chunks[i])
		}(i)
	}
	wg.Wait()
	return vectors
}

// failRecord moves a record to the terminal error status and records the
// failure in the audit trail.
func (p *IngestionPipeline) failRecord(logID uint, message string) {
	if err := p.store.UpdateLogStatus(logID, models.StatusError); err != nil {
		logger.WithError(err, "pipeline").Error("cannot mark record as errored")
	}
	if err := p.recordActivity(logID, models.ActivityError, message, "error"); err != nil {
		logger.WithError(err, "pipeline").Error("cannot record error activity")
	}
	metrics.IngestionsTotal.WithLabelValues(string(models.StatusError)).Inc()
}

func (p *IngestionPipeline) recordActivity(logID uint, typ models.ActivityType, description, status string) error {
	id := logID
	return p.store.CreateActivity(&models.Activity{
		LogID:       &id,
		Type:        typ,
		Description: description,
		Status:      status,
	})
}
