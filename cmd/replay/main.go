// Package main plays one route option to completion and logs every snapshot.
//
// It uses the same configuration and provider chain as the tracker service, which
// makes it handy for checking a catalog file or a routing provider from a terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/app"
	"github.com/vehicletracker/vehicletracker/internal/config"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	option := flag.String("option", "", "route option to replay (defaults to INITIAL_OPTION)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	if *option != "" {
		cfg.InitialOption = *option
	}

	log := app.NewLogger(os.Stderr, "vehicle-tracker-replay", Version, cfg.LogLevel, cfg.IsProduction())

	if err := replay(cfg, log); err != nil {
		log.Error().Err(err).Msg("replay failed")
		os.Exit(1)
	}
}

func replay(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	provider, err := app.NewProvider(cfg, catalog, app.ProviderDeps{Logger: log})
	if err != nil {
		return err
	}

	engine, err := animation.New(animation.Config{
		Provider:      provider,
		Catalog:       catalog,
		InitialOption: animation.Option(cfg.InitialOption),
		TickInterval:  cfg.TickInterval,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	ch, cancel := engine.Subscribe(256)
	defer cancel()

	if err := engine.GenerateRoute(ctx); err != nil {
		return err
	}
	if err := engine.StartPlayback(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("replay interrupted")
			return nil
		case s, ok := <-ch:
			if !ok {
				return nil
			}
			log.Info().
				Uint64("seq", s.Seq).
				Str("option", string(s.Option)).
				Str("state", s.State.String()).
				Int("cursor", s.Cursor).
				Int("points", len(s.Route)).
				Float64("lat", s.Position.Lat).
				Float64("lng", s.Position.Lng).
				Float64("heading", s.Heading).
				Float64("progress", s.Progress()).
				Msg("snapshot")
			if s.State == animation.StateFinished {
				return nil
			}
		}
	}
}
