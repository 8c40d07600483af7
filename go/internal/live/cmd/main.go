package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eventup/live/go/clients/eventup_api"
	"github.com/eventup/live/go/internal/config"
	"github.com/eventup/live/go/internal/live"
	"github.com/eventup/live/go/internal/notify"
	"github.com/eventup/live/go/internal/view"
)

func main() {
	eventID := flag.String("event", "", "event id to mount")
	viewAddr := flag.String("view-addr", "", "serve the loopback view on this address (overrides EVENTUP_VIEW_ADDR)")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *eventID == "" {
		log.Fatal().Msg("-event is required")
	}
	if *viewAddr != "" {
		cfg.ViewAddr = *viewAddr
	}

	log.Info().
		Str("event_id", *eventID).
		Str("api_url", cfg.APIURL).
		Str("ws_url", cfg.WSURL).
		Str("merge_policy", cfg.MergePolicy).
		Msg("starting live client")

	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.NATS.URL != "" {
		natsNotifier, err := notify.NewNATSNotifier(cfg.NATSNotifierConfig())
		if err != nil {
			log.Error().Err(err).Msg("failed to connect notification publisher, continuing without it")
		} else {
			defer natsNotifier.Close()
			notifiers = append(notifiers, natsNotifier)
		}
	}

	api := eventup_api.NewClient(cfg.APIURL, cfg.HTTPTimeout)
	transport := live.NewWebSocketTransport(live.DefaultTransportConfig())
	controller := live.NewController(cfg.ControllerConfig(), api, transport, cfg.Credentials(), notifiers, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := controller.Mount(ctx, *eventID); err != nil {
		log.Error().Err(err).Msg("initial snapshot failed, waiting for live updates")
	}
	if err := controller.LoadEvent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to load event details")
	}

	if cfg.ViewAddr != "" {
		server := view.NewServer(cfg.ViewAddr, view.NewHandler(controller))
		go func() {
			if err := server.Start(ctx); err != nil {
				log.Error().Err(err).Msg("view server failed")
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	controller.Unmount()
	cancel()

	log.Info().Msg("live client shutdown complete")
}
