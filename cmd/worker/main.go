package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/upbeat-works/edgecms/internal/clients/gcp"
	redisclient "github.com/upbeat-works/edgecms/internal/clients/redis"
	"github.com/upbeat-works/edgecms/internal/data/db"
	"github.com/upbeat-works/edgecms/internal/data/repos"
	"github.com/upbeat-works/edgecms/internal/pkg/logger"
	"github.com/upbeat-works/edgecms/internal/temporalx"
	"github.com/upbeat-works/edgecms/internal/temporalx/release"
	"github.com/upbeat-works/edgecms/internal/temporalx/temporalworker"
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
	log.Info("Setting up Repos from worker...")
	versionRepo := repos.NewVersionRepo(thePG, log)
	languageRepo := repos.NewLanguageRepo(thePG, log)
	translationRepo := repos.NewTranslationRepo(thePG, log)

	// Artifact store
	artifactStore, err := gcp.NewArtifactStore(log)
	if err != nil {
		log.Error("Could not init ArtifactStore", "error", err)
		os.Exit(1)
	}

	// Release event bus (optional)
	var eventBus redisclient.ReleaseEventBus
	if os.Getenv("REDIS_ADDR") != "" {
		eventBus, err = redisclient.NewReleaseEventBus(log)
		if err != nil {
			log.Warn("Could not init ReleaseEventBus; release events disabled", "error", err)
			eventBus = nil
		} else {
			defer eventBus.Close()
		}
	}

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not init Temporal client", "error", err)
		os.Exit(1)
	}
	if temporalClient == nil {
		log.Error("TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}
	defer temporalClient.Close()

	acts := &release.Activities{
		Log:          log,
		Versions:     versionRepo,
		Languages:    languageRepo,
		Translations: translationRepo,
		Artifacts:    artifactStore,
		Events:       eventBus,
	}

	runner, err := temporalworker.NewRunner(log, temporalClient, acts)
	if err != nil {
		log.Error("Could not init Temporal worker", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx); err != nil {
		log.Error("Temporal worker failed to start", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("Shutting down worker...")
}
