package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"olx-dacha-scraper/config"
	"olx-dacha-scraper/models"
	"olx-dacha-scraper/scraper/olx"
	"olx-dacha-scraper/services"
	"olx-dacha-scraper/storage"
	"olx-dacha-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewFileLogger(cfg.LogFile)
	defer logger.Close()

	logger.Info("=== OLX Dacha Scraping System starting ===")
	logger.Info("Config — pages: %d | empty-stop: %d | filter: %v | batch ops: %d",
		cfg.MaxPages, cfg.EmptyPageThreshold, cfg.FilterEnabled, cfg.MaxBatchOps)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid timezone %q: %v", cfg.Timezone, err)
		os.Exit(1)
	}

	state := models.LoadState(cfg.StateFile)
	logger.Info("Checkpoint loaded: %d previously seen listings", len(state.ListingIDs))

	classifier := services.NewClassifier(cfg.FilterEnabled, cfg.FuzzyThreshold)
	extractor := olx.NewExtractor(classifier, logger, loc)

	ctx := context.Background()
	scraper := olx.New(cfg, logger)
	if err := scraper.Start(ctx); err != nil {
		logger.Error("Browser start failed: %v", err)
		os.Exit(1)
	}
	defer scraper.Stop()

	discovery, err := scraper.Discover(ctx)
	if err != nil {
		logger.Error("Discovery failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Discovery complete: %d candidate ads across %d pages",
		len(discovery.URLs), len(discovery.PageHTML))

	// Per-listing extraction, strictly sequential with a randomized
	// politeness delay between fetches.
	throttle := utils.Throttle{Min: cfg.DetailDelayMin, Max: cfg.DetailDelayMax}
	var records []*models.ListingRecord
	var failed, skipped int

	for i, adURL := range discovery.URLs {
		throttle.Sleep()

		page, err := scraper.FetchDetail(ctx, adURL)
		if err != nil {
			logger.Error("Fatal fetch error: %v", err)
			os.Exit(1)
		}
		if page == nil {
			failed++
			continue
		}

		rec, ok := extractor.Parse(page, time.Now().In(loc))
		if !ok {
			skipped++
			continue
		}

		state.Add(rec.ListingID)
		records = append(records, rec)
		logger.Debug("Parsed %d/%d: %s", i+1, len(discovery.URLs), rec.ListingID)
	}

	// Zero usable records from a non-empty candidate set usually means the
	// detail-page selectors broke; fall back to index-page extraction.
	if len(records) == 0 && len(discovery.URLs) > 0 {
		logger.Warn("No records from detail pages — switching to index-page fallback")
		records = extractor.ParseIndexPages(discovery.PageHTML, olx.SiteOrigin(cfg.StartURL), time.Now().In(loc))
		for _, rec := range records {
			state.Add(rec.ListingID)
		}
	}

	// Discovery dedups by full URL, so query-string variants of the same ad
	// can still reach this point; one record per listing id, last one wins.
	records = services.DedupeRecords(records)

	logger.Info("SUMMARY: found=%d parsed_ok=%d failed_nav=%d skipped_keyword=%d",
		len(discovery.URLs), len(records), failed, skipped)

	// Local export is written regardless of remote-store outcome.
	csvPath := cfg.CSVPath(time.Now())
	csvWriter, err := storage.NewCSVWriter(csvPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	if err := csvWriter.WriteRecords(records); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Local export saved to %s", csvPath)
	}
	csvWriter.Close()

	// Remote reconcile: diff against the worksheet, minimal writes.
	if cfg.SpreadsheetID != "" && len(records) > 0 {
		store, err := storage.NewSheetStore(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.WorksheetName)
		if err != nil {
			logger.Warn("Remote dataset unavailable, skipping sync: %v", err)
		} else {
			reconciler := services.NewReconciler(store, logger, cfg.MaxRetries, cfg.MaxBatchOps,
				time.Duration(cfg.WriteDelayMs)*time.Millisecond)
			if _, err := reconciler.Sync(records); err != nil {
				logger.Error("Remote sync failed: %v", err)
				os.Exit(1)
			}
		}
	} else if cfg.SpreadsheetID == "" {
		logger.Warn("SPREADSHEET_ID not set — remote sync disabled")
	}

	// Optional Postgres mirror for local SQL analysis.
	if cfg.PostgresEnabled && len(records) > 0 {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Warn("PostgreSQL unavailable, skipping mirror: %v", err)
		} else {
			if err := pgWriter.WriteRecords(records); err != nil {
				logger.Warn("PostgreSQL mirror failed: %v", err)
			} else {
				logger.Info("Records mirrored to PostgreSQL (table: dacha_listings)")
			}
			pgWriter.Close()
		}
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(records))

	state.LastRunTS = time.Now().In(loc).Format(time.RFC3339)
	state.LastScrapeCount = len(records)
	if err := state.Save(cfg.StateFile); err != nil {
		logger.Error("Checkpoint save failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("  Done. Scraped %d ads → %s\n\n", len(records), csvPath)
}
