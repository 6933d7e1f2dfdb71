package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/quake-proxy/internal/api/http"
	"github.com/i474232898/quake-proxy/internal/assistant"
	"github.com/i474232898/quake-proxy/internal/config"
	"github.com/i474232898/quake-proxy/internal/logging"
	"github.com/i474232898/quake-proxy/internal/mailer"
	"github.com/i474232898/quake-proxy/internal/quake"
	"github.com/i474232898/quake-proxy/internal/quake/providers"
	"github.com/i474232898/quake-proxy/internal/scheduler"
	"github.com/i474232898/quake-proxy/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.UpstreamTimeout,
	}

	// In-memory feed cache.
	memStore := store.NewMemoryStore()

	feed := providers.NewUSGSProvider(httpClient, cfg.FeedURL)

	// Google geocoding when a key is configured, Nominatim otherwise.
	var geocoder quake.Geocoder
	if cfg.GoogleAPIKey != "" {
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleAPIKey, cfg.GeocoderCountry)
	} else {
		geocoder = providers.NewNominatimGeocoder(httpClient, cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderCountry)
	}
	logging.Info().Str("feed", feed.Name()).Str("geocoder", geocoder.Name()).Msg("upstreams configured")

	// Core service owning the refresh path and queries.
	service := quake.NewService(memStore, feed, geocoder, cfg.UpstreamTimeout)

	// Scheduler that periodically refreshes the feed through the same path.
	sched := scheduler.New(cfg.RefreshInterval, cfg.UpstreamTimeout, func(ctx context.Context) error {
		_, err := service.Refresh(ctx)
		return err
	})
	if err := sched.Start(); err != nil {
		logging.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.ServerOptions{
		AppName:      "quake-proxy",
		AllowOrigins: cfg.CORSAllowOrigins,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.UpstreamTimeout + 5*time.Second,
	}, httpapi.Deps{
		Quakes:          service,
		DefaultRadiusKm: cfg.DefaultRadiusKm,
		Assistant:       assistant.New(httpClient, cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel),
		Mailer:          mailer.New(httpClient, cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom),
		AskRateLimit:    cfg.AskRateLimit,
	})

	// Start server with graceful shutdown
	go func() {
		logging.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logging.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("error during shutdown")
	}
}
