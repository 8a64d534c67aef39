package main

import (
	"fmt"
	"os"

	redisclient "github.com/upbeat-works/edgecms/internal/clients/redis"
	"github.com/upbeat-works/edgecms/internal/data/db"
	"github.com/upbeat-works/edgecms/internal/data/repos"
	internalhttp "github.com/upbeat-works/edgecms/internal/http"
	httpH "github.com/upbeat-works/edgecms/internal/http/handlers"
	httpMW "github.com/upbeat-works/edgecms/internal/http/middleware"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
	"github.com/upbeat-works/edgecms/internal/services"
	"github.com/upbeat-works/edgecms/internal/temporalx"
	"github.com/upbeat-works/edgecms/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	if err = db.EnsureIndexes(postgresService.DB()); err != nil {
		log.Warn("Postgres index setup failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	versionRepo := repos.NewVersionRepo(thePG, log)
	languageRepo := repos.NewLanguageRepo(thePG, log)
	translationRepo := repos.NewTranslationRepo(thePG, log)
	blockRepo := repos.NewBlockRepo(thePG, log)

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not init Temporal client", "error", err)
		os.Exit(1)
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	// Services
	log.Info("Setting up Services from main...")
	contentService := services.NewContentService(thePG, log, versionRepo, languageRepo, translationRepo, blockRepo)
	versionService := services.NewVersionService(log, versionRepo)

	var releaseHandler *httpH.ReleaseHandler
	if temporalClient != nil {
		releaseService, err := services.NewReleaseService(log, temporalClient)
		if err != nil {
			log.Error("Could not init ReleaseService", "error", err)
			os.Exit(1)
		}
		releaseHandler = httpH.NewReleaseHandler(releaseService)
	} else {
		log.Warn("Release endpoints disabled: Temporal is not configured")
	}

	// Release event stream (optional)
	var releaseEventsHandler *httpH.ReleaseEventsHandler
	if os.Getenv("REDIS_ADDR") != "" {
		eventBus, err := redisclient.NewReleaseEventBus(log)
		if err != nil {
			log.Warn("Could not init ReleaseEventBus; event stream disabled", "error", err)
		} else {
			defer eventBus.Close()
			releaseEventsHandler = httpH.NewReleaseEventsHandler(log, eventBus)
		}
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := httpH.NewHealthHandler()
	versionHandler := httpH.NewVersionHandler(versionService)
	translationHandler := httpH.NewTranslationHandler(contentService)
	blockHandler := httpH.NewBlockHandler(contentService)

	// Middleware
	log.Info("Setting up middleware from main...")
	editorAuth := httpMW.NewEditorAuth(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	srv := internalhttp.NewServer(internalhttp.RouterConfig{
		EditorAuth:           editorAuth,
		VersionHandler:       versionHandler,
		ReleaseHandler:       releaseHandler,
		ReleaseEventsHandler: releaseEventsHandler,
		TranslationHandler:   translationHandler,
		BlockHandler:         blockHandler,
		HealthHandler:        healthHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := srv.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
