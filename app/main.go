package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firewatch/geofeed/app/api"
	"github.com/firewatch/geofeed/app/cfg"
	"github.com/firewatch/geofeed/app/dispatch"
	"github.com/firewatch/geofeed/app/feed"
	"github.com/firewatch/geofeed/app/registry"
	"github.com/firewatch/geofeed/app/source"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting GeoFeed Watch server", "version", appCfg.Version)

	configCache := feed.NewConfigCache(appCfg.WatchesDir)
	if err := configCache.Run(); err != nil {
		log.Fatalf("Failed to load watch configurations: %v", err)
	}
	slog.Info("Watch configurations loaded", "count", configCache.GetConfigCount())

	dispatcher := dispatch.NewDispatcher()
	reg := registry.New()
	httpClient := &http.Client{Timeout: 60 * time.Second}

	managers := make(map[string]*feed.Manager)
	for name, watchConfig := range configCache.GetEnabledConfigs() {
		fetcher, err := source.NewFetcher(watchConfig.Format, source.Options{
			URL:           watchConfig.URL,
			HomeLatitude:  appCfg.HomeLatitude,
			HomeLongitude: appCfg.HomeLongitude,
			RadiusKm:      watchConfig.Settings.RadiusKm,
			Categories:    watchConfig.Settings.Categories,
			Timeout:       time.Duration(watchConfig.Settings.Timeout) * time.Second,
			UserAgent:     appCfg.UserAgent,
			Client:        httpClient,
		})
		if err != nil {
			log.Fatalf("Failed to build fetcher for %s: %v", name, err)
		}

		managers[name] = feed.NewManager(watchConfig, fetcher, dispatcher, reg)
	}

	if len(managers) == 0 {
		slog.Warn("No enabled watch configurations found", "dir", appCfg.WatchesDir)
	}

	// Start the managers: one immediate reconciliation cycle each, then
	// periodic updates on their own intervals.
	for _, m := range managers {
		m.Start()
	}

	handler := api.NewHandler(configCache, reg, managers)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	for _, m := range managers {
		m.Stop()
	}

	slog.Info("GeoFeed Watch server shutdown complete")
}
