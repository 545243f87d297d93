package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/trailog/internal/config"
	"github.com/claude/trailog/internal/importer"
	"github.com/claude/trailog/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	exportPath := flag.String("file", "", "path to a JSON workout export, optionally .gz (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to storage")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: trailog-import [-config config.yaml] -file workouts.json [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, nothing will be written")
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	imp := importer.New(store, cfg.Storage.Key, log, *dryRun)
	stats, err := imp.ImportFile(ctx, *exportPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"records_read", stats.RecordsRead,
		"imported", stats.Imported,
		"duplicated", stats.Duplicated,
		"invalid", stats.Invalid,
		"ids_assigned", stats.IDsAssigned,
	)
}
