package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"pnlmonitor/config"
	"pnlmonitor/internal/adapters/logger"
	"pnlmonitor/internal/adapters/sqlite"
	"pnlmonitor/internal/analytics"
	"pnlmonitor/internal/session"
	"pnlmonitor/internal/wblog"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewHistoryRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trade history repository")
		log.Fatalf("FATAL: Failed to initialize trade history repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing trade history repository")
		}
	}()
	appLogger.Info(context.Background(), "Trade history repository initialized")

	// 4. Report stored history before live monitoring takes over
	history, err := repo.LoadAll(context.Background())
	if err != nil {
		appLogger.Error(context.Background(), err, "Failed to load stored trade history")
	} else if len(history) > 0 {
		days := analytics.DailySummaries(history)
		printHistoryReport(days, analytics.Statistics(days))
	}

	// 5. Initialize Tailer and Session
	tailer := wblog.NewTailer(cfg.LogFolder, appLogger)
	sess := session.New(appLogger, repo, tailer, session.Settings{
		ScanInterval:     cfg.ScanInterval,
		PricingMode:      cfg.PricingMode(),
		TimeframeMinutes: cfg.TimeframeMinutes,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AutoStart {
		if err := sess.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to start monitoring session")
			log.Fatalf("FATAL: Failed to start monitoring session: %v", err)
		}
	} else {
		appLogger.Info(ctx, "AUTO_START disabled, session created but not started")
	}

	// 6. Run until interrupted, reporting the live snapshot each interval
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			appLogger.Info(ctx, "Shutdown signal received", map[string]interface{}{"signal": sig.String()})
			cancel()
			if !sess.StopWait(10 * time.Second) {
				appLogger.Warn(ctx, "Session worker did not stop before timeout")
			}
			appLogger.Info(ctx, "Application finished gracefully.")
			return
		case <-ticker.C:
			printSnapshot(sess.Snapshot())
		}
	}
}
