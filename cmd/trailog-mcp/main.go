package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/trailog/internal/config"
	"github.com/claude/trailog/internal/mapview"
	trailmcp "github.com/claude/trailog/internal/mcp"
	"github.com/claude/trailog/internal/render"
	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	serverURL := flag.String("server", "", "Trailog server base URL; when set, tools call its REST API instead of opening storage")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds trailmcp.DataSource
	if *serverURL != "" {
		ds = trailmcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		ctx := context.Background()
		store, err := storage.Open(ctx, cfg)
		if err != nil {
			log.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
			os.Exit(1)
		}
		defer store.Close()

		ctrl := session.New(store, mapview.New(cfg.Map), render.NewList(), log, session.Options{
			Key:        cfg.Storage.Key,
			Zoom:       cfg.Map.Zoom,
			FitPadding: cfg.Map.FitPadding,
		})
		n := ctrl.Restore(ctx)
		ds = trailmcp.Local{Ctrl: ctrl}
		log.Info("local mode", "driver", cfg.Storage.Driver, "workouts", n)
	}

	s := trailmcp.New(ds, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
