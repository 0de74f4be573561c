package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/monkeydioude/patishie/app/api"
	"github.com/monkeydioude/patishie/app/cfg"
	"github.com/monkeydioude/patishie/app/config"
	"github.com/monkeydioude/patishie/app/database"
	"github.com/monkeydioude/patishie/app/fetch"
	"github.com/monkeydioude/patishie/app/ingest"
	"github.com/monkeydioude/patishie/app/scheduler"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Patishie", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)
	timerRepo := database.NewTimerRepository(db)
	sequenceRepo := database.NewSequenceRepository(db)

	engine := ingest.NewEngine(articleRepo, sourceRepo, sequenceRepo, appCfg.RefreshFrequency)

	if err := registerSeedSources(engine, appCfg); err != nil {
		slog.Error("Failed to register declared sources", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.FetchTimeout) * time.Second,
	}
	dispatcher := fetch.NewDispatcher(
		fetch.NewRSSFetcher(httpClient, appCfg.UserAgent),
		fetch.NewBakeryFetcher(httpClient, appCfg.BakeryURL, appCfg.UserAgent),
	)

	orchestrator := scheduler.NewOrchestrator(sourceRepo, timerRepo, engine, dispatcher,
		time.Duration(appCfg.FetchTimeout)*time.Second)

	ledger := scheduler.NewLedger()
	sched := scheduler.NewScheduler(sourceRepo, orchestrator, ledger, appCfg.WorkerCount,
		time.Duration(appCfg.DefaultSleep)*time.Millisecond,
		time.Duration(appCfg.RefreshCooldown)*time.Millisecond)

	slog.Info("Starting scheduler", "workers", appCfg.WorkerCount)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(sourceRepo, articleRepo, ledger, appCfg.DefaultItemLimit)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// registerSeedSources loads the declared source files and registers each one
// unless it is already known.
func registerSeedSources(engine *ingest.Engine, appCfg *cfg.Cfg) error {
	loader := config.NewLoader(appCfg.SourcesDir, appCfg.RefreshFrequency)
	configs, err := loader.LoadAll()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for file, c := range configs {
		err := engine.RegisterSource(ctx, c.Source.Name, c.Source.URL,
			database.SourceKind(c.Source.Kind), c.Source.RefreshFrequency, c.Source.Weight)
		if err != nil {
			return fmt.Errorf("failed to register source from %s: %w", file, err)
		}
	}

	slog.Info("Declared sources registered", "count", len(configs))

	return nil
}
