// Command scrape runs one extraction pass from the command line: scrape
// the registered sources, collapse duplicates across all of them, store
// the result and optionally export an .ics file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/festcal/festcal/internal/config"
	"github.com/festcal/festcal/internal/database"
	"github.com/festcal/festcal/internal/export"
	"github.com/festcal/festcal/internal/logging"
	"github.com/festcal/festcal/internal/models"
	"github.com/festcal/festcal/internal/scrape"
)

func main() {
	var (
		sourcesPath = flag.String("sources", "config/sources.yaml", "path to the YAML source registry")
		sourceName  = flag.String("source", "", "run only the source with this name")
		dbPath      = flag.String("db", "data/events.db", "path to the SQLite event store")
		strict      = flag.Bool("strict", false, "also validate URL and postal code shapes")
		exportPath  = flag.String("export", "", "write the stored events to this .ics file after the run")
		purgeDays   = flag.Int("purge-days", 0, "purge events that ended more than this many days ago (0 disables)")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewCLI(level)

	if err := run(logger, *sourcesPath, *sourceName, *dbPath, *strict, *exportPath, *purgeDays); err != nil {
		logger.Error("scrape run failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, sourcesPath, sourceName, dbPath string, strict bool, exportPath string, purgeDays int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := config.LoadSources(sourcesPath)
	if err != nil {
		return err
	}
	if sourceName != "" {
		sources = filterSources(sources, sourceName)
		if len(sources) == 0 {
			return fmt.Errorf("no enabled source named %q in %s", sourceName, sourcesPath)
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("no enabled sources in %s", sourcesPath)
	}

	dbCfg := database.DefaultConfig()
	dbCfg.Path = dbPath
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	repo := database.NewEventRepository(db)

	// Collect every source's batch first so duplicates listed by more
	// than one site collapse before anything is stored.
	var collected []models.Event
	failed := 0
	for _, src := range sources {
		scraper, err := scrape.NewSiteScraper(src.Scraper, scrape.SiteConfig{
			Name:    src.Name,
			BaseURL: src.URL,
			City:    src.City,
		}, logger)
		if err != nil {
			logger.Warn("skipping source", "source", src.Name, "error", err)
			continue
		}

		logger.Info("scraping source", "source", scraper.Name())
		events, err := scraper.Scrape(ctx)
		if err != nil {
			logger.Error("source failed", "source", scraper.Name(), "error", err)
			failed++
			continue
		}

		valid := 0
		for _, ev := range events {
			if errs := models.Validate(ev, strict); len(errs) > 0 {
				logger.Debug("rejecting occurrence", "source", scraper.Name(), "title", ev.Title, "error", errs[0])
				continue
			}
			collected = append(collected, ev)
			valid++
		}
		logger.Info("source done", "source", scraper.Name(), "found", len(events), "valid", valid)
	}

	unique := scrape.NewDeduplicator().Deduplicate(collected)
	created, err := repo.UpsertBatch(ctx, unique)
	if err != nil {
		return fmt.Errorf("storing events: %w", err)
	}

	logger.Info("run complete",
		"sources", len(sources),
		"failed_sources", failed,
		"collected", len(collected),
		"unique", len(unique),
		"created", created,
		"updated", len(unique)-created)

	if purgeDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -purgeDays)
		purged, err := repo.PurgeBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purging old events: %w", err)
		}
		logger.Info("purged old events", "cutoff", cutoff.Format("2006-01-02"), "purged", purged)
	}

	if exportPath != "" {
		generator := export.NewGenerator(repo, "")
		count, err := generator.ExportToFile(ctx, exportPath, models.EventFilter{})
		if err != nil {
			return fmt.Errorf("exporting calendar: %w", err)
		}
		logger.Info("exported calendar", "path", exportPath, "events", count)
	}

	if failed == len(sources) {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}

func filterSources(sources []config.SourceConfig, name string) []config.SourceConfig {
	for _, src := range sources {
		if src.Name == name {
			return []config.SourceConfig{src}
		}
	}
	return nil
}
