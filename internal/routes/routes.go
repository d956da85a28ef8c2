package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/controllers"
	"github.com/telcolog/backend/internal/middleware"
	"github.com/telcolog/backend/internal/services"
	"github.com/telcolog/backend/internal/storage"
)

// SetupRoutes wires all API routes to their controllers.
func SetupRoutes(r *gin.Engine, store storage.Store, pipeline *services.IngestionPipeline,
	search *services.SearchService, cfg *config.Config) {

	authController := controllers.NewAuthController(store, cfg.Auth)
	logController := controllers.NewLogController(store, pipeline, cfg.Upload, cfg.Pipeline.SampleSize)
	searchController := controllers.NewSearchController(search)
	statsController := controllers.NewStatsController(store)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/register", authController.Register)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
		{
			logs := protected.Group("/logs")
			{
				logs.POST("/upload", logController.UploadLog)
				logs.GET("", logController.ListLogs)
				logs.GET("/:id", logController.GetLog)
				logs.GET("/:id/analysis", logController.GetLogAnalysis)
				logs.GET("/:id/timeline", logController.GetLogTimeline)
			}

			analysis := protected.Group("/analysis")
			{
				analysis.PATCH("/:id/status", logController.UpdateResolutionStatus)
			}

			protected.POST("/search", searchController.Search)
			protected.GET("/stats", statsController.GetStats)
			protected.GET("/activities", statsController.GetActivities)
		}
	}
}
