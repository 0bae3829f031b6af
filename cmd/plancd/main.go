// plancd is the planning poker session service: clients join a session over
// websocket, pick estimate cards, and watch the shared state converge.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/planc-dev/planc/internal/deck"
	"github.com/planc-dev/planc/internal/events"
	"github.com/planc-dev/planc/internal/gateway"
	"github.com/planc-dev/planc/internal/hub"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	cardDeck := deck.Default()
	if cfg.DeckFile != "" {
		cardDeck, err = deck.Load(cfg.DeckFile)
		if err != nil {
			log.Fatal().Err(err).Str("deck_file", cfg.DeckFile).Msg("failed to load deck")
		}
		log.Info().Str("deck_file", cfg.DeckFile).Int("cards", len(cardDeck.Cards())).Msg("loaded deck")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		jsCfg := events.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		jsPublisher, err := events.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("failed to connect event publisher")
		}
		defer jsPublisher.Close()
		publisher = jsPublisher
		log.Info().Str("url", cfg.NATSURL).Msg("publishing lifecycle events to NATS")
	}

	registry := hub.NewRegistry(hub.RegistryConfig{
		MaxSessions: cfg.MaxSessions,
		MaxUsers:    cfg.MaxUsers,
	}, cardDeck, publisher)

	handler := gateway.NewHandler(registry, gateway.DefaultConfig(), clockwork.NewRealClock())
	server := setupServer(cfg.Addr, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
