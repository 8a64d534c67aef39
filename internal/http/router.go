package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/upbeat-works/edgecms/internal/http/handlers"
	httpMW "github.com/upbeat-works/edgecms/internal/http/middleware"
)

type RouterConfig struct {
	EditorAuth *httpMW.EditorAuth

	VersionHandler       *httpH.VersionHandler
	ReleaseHandler       *httpH.ReleaseHandler
	ReleaseEventsHandler *httpH.ReleaseEventsHandler
	TranslationHandler   *httpH.TranslationHandler
	BlockHandler         *httpH.BlockHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Read surface (public)
		if cfg.VersionHandler != nil {
			api.GET("/versions", cfg.VersionHandler.List)
			api.GET("/versions/latest", cfg.VersionHandler.Latest)
		}
		if cfg.TranslationHandler != nil {
			api.GET("/languages", cfg.TranslationHandler.ListLanguages)
			api.GET("/translations/:locale", cfg.TranslationHandler.ListByLocale)
		}
		if cfg.BlockHandler != nil {
			api.GET("/blocks", cfg.BlockHandler.List)
			api.GET("/blocks/:key", cfg.BlockHandler.Get)
		}

		// Release events (SSE)
		if cfg.ReleaseEventsHandler != nil {
			api.GET("/releases/events", cfg.ReleaseEventsHandler.Stream)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.EditorAuth != nil {
			protected.Use(cfg.EditorAuth.Require())
		}

		// Draft editing
		if cfg.TranslationHandler != nil {
			protected.POST("/languages", cfg.TranslationHandler.CreateLanguage)
			protected.PUT("/translations/:locale/:key", cfg.TranslationHandler.Upsert)
		}
		if cfg.BlockHandler != nil {
			protected.PUT("/blocks/:key", cfg.BlockHandler.Upsert)
		}

		// Release lifecycle
		if cfg.ReleaseHandler != nil {
			protected.POST("/releases", cfg.ReleaseHandler.Publish)
			protected.POST("/releases/rollback/:versionId", cfg.ReleaseHandler.Rollback)
			protected.GET("/releases/current", cfg.ReleaseHandler.Current)
		}
	}

	return r
}
