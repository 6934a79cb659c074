// Package main runs the route animation engine behind the map presentation bridge.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/api"
	"github.com/vehicletracker/vehicletracker/internal/api/middleware"
	"github.com/vehicletracker/vehicletracker/internal/app"
	"github.com/vehicletracker/vehicletracker/internal/config"
	"github.com/vehicletracker/vehicletracker/internal/metrics"
	"github.com/vehicletracker/vehicletracker/internal/provider/resilience"
	"github.com/vehicletracker/vehicletracker/internal/publisher"
	"github.com/vehicletracker/vehicletracker/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "vehicle-tracker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := app.NewLogger(os.Stdout, serviceName, Version, cfg.LogLevel, cfg.IsProduction())
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Str("provider", cfg.RouteProvider).
		Msg("starting vehicle tracker")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("tracker stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("tracker stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
		Attributes:     []attribute.KeyValue{attribute.String("tracker.route_provider", cfg.RouteProvider)},
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTELEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	registry := resilience.NewRegistry()
	provider, err := app.NewProvider(cfg, catalog, app.ProviderDeps{
		Registry: registry,
		Observer: providerMetrics,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(cfg.TickInterval)
	engine, err := animation.New(animation.Config{
		Provider:      provider,
		Catalog:       catalog,
		InitialOption: animation.Option(cfg.InitialOption),
		TickInterval:  cfg.TickInterval,
		Logger:        log,
		Recorder:      collector,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.NATSURL != "" {
		pub, err := publisher.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, collector, log)
		if err != nil {
			return err
		}
		defer pub.Close()

		ch, cancel := engine.Subscribe(64)
		defer cancel()
		go pub.Run(ctx, ch)
		log.Info().Str("subject", pub.Subject(engine.Snapshot().Option)).Msg("publishing snapshots to NATS")
	}

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Tracker:     engine,
		Metrics:     httpMetrics,
	}
	if registry.Len() > 0 {
		routerCfg.Providers = registry
	}
	if cache := app.CacheOf(provider); cache != nil {
		routerCfg.RouteCache = cache
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsHandler = collector.Handler()
	}

	// No WriteTimeout: the snapshot stream is long-lived.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	// Closing the engine first ends every open stream so Shutdown does not wait on them.
	engine.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
