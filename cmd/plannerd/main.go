// Command plannerd serves the Weekly Target Planner dashboard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skycargo/targetplanner/internal/api"
	"github.com/skycargo/targetplanner/internal/config"
	"github.com/skycargo/targetplanner/internal/session"
	"github.com/skycargo/targetplanner/internal/workbook"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env is fine — everything can come from the config file
	// or real environment variables.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	configPath := os.Getenv("PLANNER_CONFIG")
	if configPath == "" {
		configPath = "planner.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"path", configPath,
		"addr", cfg.Addr,
		"data_dir", cfg.DataDir,
		"session_ttl", cfg.SessionDuration(),
		"currencies", len(cfg.Currencies),
	)

	stations, err := workbook.ScanStations(cfg.DataDir)
	if err != nil {
		slog.Error("failed to scan station workbooks", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	if len(stations) == 0 {
		slog.Warn("no station workbooks found — drop Database - <STATION>.xlsx files into the data directory", "dir", cfg.DataDir)
	} else {
		slog.Info("station workbooks found", "count", len(stations), "stations", stations)
	}

	sessions := session.NewStore(cfg.SessionDuration())
	server := api.NewServer(cfg, sessions)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("planner API listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Printf("\nWeekly Target Planner: %d stations loaded from %s\n", len(stations), cfg.DataDir)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.Addr)
	fmt.Println("Serving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}

	fmt.Println("Planner stopped.")
}
