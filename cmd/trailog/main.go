package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	trailog "github.com/claude/trailog"
	"github.com/claude/trailog/internal/config"
	"github.com/claude/trailog/internal/events"
	"github.com/claude/trailog/internal/geo"
	"github.com/claude/trailog/internal/mapview"
	"github.com/claude/trailog/internal/render"
	"github.com/claude/trailog/internal/server"
	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/storage"
	"github.com/claude/trailog/internal/workout"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and TRAILOG_* env when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("Trailog starting", "version", Version, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage ready", "driver", cfg.Storage.Driver)

	// Session
	hub := events.NewHub(log)
	view := mapview.New(cfg.Map)
	list := render.NewList()
	ctrl := session.New(store, view, list, log, session.Options{
		Key:        cfg.Storage.Key,
		Zoom:       cfg.Map.Zoom,
		FitPadding: cfg.Map.FitPadding,
		Notifier:   hub,
	})
	ctrl.Restore(ctx)

	// One-shot location request: configured home, else wait for the browser
	var locator geo.Locator
	var pending *geo.Pending
	if home := cfg.Map.Home; home != nil {
		locator = geo.Static(workout.Coords{Lat: home.Lat, Lng: home.Lng})
		log.Info("using configured home position", "lat", home.Lat, "lng", home.Lng)
	} else {
		pending = geo.NewPending()
		locator = pending
	}
	geo.Request(ctx, locator, ctrl.LocationFound, ctrl.LocationFailed)

	srv := server.New(ctrl, view, list, pending, hub, log)

	// Serve embedded frontend
	webDist, err := fs.Sub(trailog.WebFS, "web/dist")
	if err != nil {
		log.Error("failed to load embedded frontend", "error", err)
		os.Exit(1)
	}
	srv.SetFrontend(webDist)

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	// Writes only changes a failed Create left unsaved.
	if err := ctrl.Persist(shutdownCtx); err != nil {
		log.Error("final persist failed", "error", err)
	}
	log.Info("server stopped")
}
