package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/studyengine/internal/database"
	"github.com/example/studyengine/internal/excel"
	"github.com/example/studyengine/internal/scheduler"
	"github.com/example/studyengine/internal/server"
	"github.com/example/studyengine/internal/study"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cards := database.NewCardRepository(db)
	states := database.NewReviewStateRepository(db)
	settings := database.NewUserSettingsRepository(db)
	stats := database.NewStatisticsRepository(db)

	importer := excel.NewImporter(cards)

	// IMPORT_FILE loads a card workbook at startup, for seeding a fresh
	// deployment; the same importer also backs the import endpoint.
	if path := os.Getenv("IMPORT_FILE"); path != "" {
		cfg := excel.DefaultImportConfig()
		cfg.FilePath = path
		result, err := importer.Import(context.Background(), cfg)
		if err != nil {
			logger.Fatal("card import failed", zap.String("file", path), zap.Error(err))
		}
		logger.Info("card import finished",
			zap.String("file", path),
			zap.Int("created", result.Created),
			zap.Int("skipped", result.Skipped),
			zap.Strings("errors", result.Errors),
		)
	}

	svc := study.NewService(cards, states, settings, stats, logger)
	srv := server.New(svc, importer, logger)

	reminders := scheduler.New(states, &scheduler.LogNotifier{Logger: logger}, logger)
	reminders.Start()
	defer reminders.Stop()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// Serve until interrupted, then drain.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		errCh <- srv.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
