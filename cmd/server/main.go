package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/festcal/festcal/internal/api"
	"github.com/festcal/festcal/internal/config"
	"github.com/festcal/festcal/internal/database"
	"github.com/festcal/festcal/internal/export"
	"github.com/festcal/festcal/internal/logging"
	"github.com/festcal/festcal/internal/metrics"
	"github.com/festcal/festcal/internal/scrape"
	"github.com/festcal/festcal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting festcal")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.DefaultConfig()
	dbCfg.Path = cfg.Database.Path

	logger.Info("opening database", "path", dbCfg.Path)
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	repo := database.NewEventRepository(db)

	sources, err := config.LoadSources(cfg.Scrape.SourcesPath)
	if err != nil {
		logger.Error("failed to load source registry", "path", cfg.Scrape.SourcesPath, "error", err)
		os.Exit(1)
	}
	logger.Info("source registry loaded", "sources", len(sources))

	scrapers := buildScrapers(sources, cfg.Scrape, logger)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	pipeline := scrape.NewPipeline(scrapers, repo, collector, logger, scrape.PipelineConfig{
		ConcurrentRuns:   cfg.Scrape.ConcurrentRuns,
		StrictValidation: cfg.Scrape.Strict,
		Retention:        time.Duration(cfg.Scrape.RetentionDays) * 24 * time.Hour,
		TitleThreshold:   cfg.Scrape.TitleThreshold,
		TimeWindow:       cfg.Scrape.TimeWindow,
	})

	scheduler, err := scrape.NewScheduler(ctx, cfg.Scrape.Schedule, pipeline, logger)
	if err != nil {
		logger.Error("failed to init scheduler", "schedule", cfg.Scrape.Schedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("scrape scheduler started", "schedule", cfg.Scrape.Schedule)

	generator := export.NewGenerator(repo, "")

	mux := http.NewServeMux()
	api.SetupRoutes(mux, repo, generator, collector, logger)

	srv := server.New(cfg.Server, logger, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	scheduler.Stop()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shut down cleanly", "error", err)
		os.Exit(1)
	}

	logger.Info("festcal stopped")
}

func buildScrapers(sources []config.SourceConfig, cfg config.ScrapeConfig, logger *slog.Logger) []scrape.Scraper {
	scrapers := make([]scrape.Scraper, 0, len(sources))
	for _, src := range sources {
		siteCfg := scrape.SiteConfig{
			Name:       src.Name,
			BaseURL:    src.URL,
			City:       src.City,
			Delay:      cfg.Delay,
			MaxRetries: cfg.MaxRetries,
		}
		s, err := scrape.NewSiteScraper(src.Scraper, siteCfg, logger)
		if err != nil {
			logger.Warn("skipping source", "source", src.Name, "error", err)
			continue
		}
		scrapers = append(scrapers, s)
	}
	return scrapers
}
