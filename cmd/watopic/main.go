package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watopic/internal/config"
	"watopic/internal/constants"
	"watopic/internal/database"
	"watopic/internal/media"
	"watopic/internal/models"
	"watopic/internal/retry"
	"watopic/internal/service"
	"watopic/internal/tracing"
	"watopic/pkg/whatsapp"
	"watopic/pkg/workspace"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("watopic %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting watopic")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg)

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the database with exponential backoff; a transient lock on
	// startup should not kill the process.
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	waClient := whatsapp.NewClient(whatsapp.ClientOptions{
		BaseURL:      cfg.WhatsApp.APIBaseURL,
		WebsocketURL: cfg.WhatsApp.WebsocketURL,
		APIKey:       cfg.WhatsApp.APIKey,
		Timeout:      time.Duration(cfg.WhatsApp.TimeoutSec) * time.Second,
	})

	wsClient := workspace.NewClient(workspace.ClientOptions{
		BaseURL:   cfg.Workspace.APIBaseURL,
		BotToken:  cfg.Workspace.BotToken,
		ChannelID: cfg.Workspace.ChannelID,
		Timeout:   time.Duration(cfg.Workspace.TimeoutSec) * time.Second,
	})

	pipeline, err := media.NewPipeline(waClient, wsClient, wsClient, cfg.Media, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media pipeline: %w", err)
	}

	gate := service.NewSettingsGate(db, logger)
	if err := gate.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	directory := service.NewDirectory(db, waClient, cfg.WhatsApp.ContactCacheHours, logger)
	router := service.NewTopicRouter(db, wsClient, waClient, directory, logger)
	pairs := service.NewPairTracker(constants.MaxTrackedPairs, constants.PairTTL)
	dedup := service.NewDeduper(constants.DedupWindow)
	presence := service.NewPresenceRelay(waClient, time.Duration(cfg.WhatsApp.PresencePauseSec)*time.Second, logger)
	admin := service.NewAdminHandler(cfg.Workspace.AdminIDs, gate, router, directory, pairs, waClient, wsClient, logger)

	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		Gate:      gate,
		Router:    router,
		Directory: directory,
		Pairs:     pairs,
		Dedup:     dedup,
		Pipeline:  pipeline,
		Presence:  presence,
		WAClient:  waClient,
		WSClient:  wsClient,
		Admin:     admin,
		Retry:     cfg.Retry,
		Logger:    logger,
	})
	go orchestrator.Run(ctx)

	scheduler := service.NewScheduler([]service.CleanupTarget{
		service.CleanupFunc(db.CleanupInactiveMappings),
		service.CleanupFunc(func(retentionDays int) error {
			return pipeline.CleanupTempFiles(int64(retentionDays) * 24 * 3600)
		}),
	}, cfg.RetentionDays, constants.CleanupSchedulerIntervalHours, logger)
	go scheduler.Start(ctx)
	defer scheduler.Stop()

	// Reload settings-independent config on file change. Credentials and
	// addresses require a restart; log level applies immediately.
	watcher := config.NewConfigWatcher(*configPath, logger)
	watcher.OnChange(func(newCfg *models.Config) {
		configureLogLevel(logger, newCfg)
	})
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logger.Warnf("Config watcher stopped: %v", err)
		}
	}()

	// Stream source events over the websocket when configured; webhooks
	// remain available either way.
	if cfg.WhatsApp.WebsocketURL != "" {
		go func() {
			if err := waClient.Listen(ctx, orchestrator.SourceEvents(), logger); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Source event stream terminated")
			}
		}()
	}

	server := NewServer(cfg, orchestrator, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Server shutdown error: %v", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

func configureLogLevel(logger *logrus.Logger, cfg *models.Config) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	if cfg.LogLevel == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
