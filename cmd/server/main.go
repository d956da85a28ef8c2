package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telcolog/backend/internal/cache"
	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/database"
	"github.com/telcolog/backend/internal/logger"
	"github.com/telcolog/backend/internal/middleware"
	"github.com/telcolog/backend/internal/routes"
	"github.com/telcolog/backend/internal/services"
	"github.com/telcolog/backend/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Logging.Level, cfg.Logging.File)

	var store storage.Store
	if cfg.Database.InMemory {
		logger.Warn("using in-memory storage, data will not survive a restart", nil)
		store = storage.NewMemoryStore()
	} else {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
		}
		store = storage.NewPostgresStore(db)
	}

	var embCache *cache.EmbeddingCache
	if cfg.Redis.Enabled {
		embCache, err = cache.New(&cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, embedding cache disabled", map[string]interface{}{
				"error": err.Error(),
			})
			embCache = nil
		}
	}

	embedder := services.NewEmbeddingClient(&cfg.Embedding, embCache)
	index := services.NewVectorIndex(&cfg.Milvus, cfg.Embedding.Dimension)
	engine := services.NewAnalysisEngine(&cfg.LLM, cfg.Analysis)
	pipeline := services.NewIngestionPipeline(store, embedder, index, engine, cfg.Pipeline)
	search := services.NewSearchService(store, embedder, index, engine, cfg.Search)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())

	// Degraded backends do not fail the health check: the service keeps
	// serving with fallbacks, and the flags tell operators which path is live.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"embedding": gin.H{"degraded": embedder.Degraded()},
				"llm":       gin.H{"degraded": engine.Degraded()},
			},
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.SetupRoutes(r, store, pipeline, search, cfg)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Info("starting server", map[string]interface{}{
			"port":     cfg.Server.Port,
			"gin_mode": gin.Mode(),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{"error": err.Error()})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	logger.Info("shutdown signal received", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	// Drain in-flight ingestions before exiting so no record is stuck in
	// the processing status.
	pipeline.Stop()
	logger.Info("server exited", nil)
}
