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
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/internal/catalog"
	"github.com/robalobadob/colormatch/internal/config"
	"github.com/robalobadob/colormatch/internal/httpserver"
	"github.com/robalobadob/colormatch/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	if err := catalog.Init(cfg.ColorsFile); err != nil {
		log.Fatal().Err(err).Str("file", cfg.ColorsFile).Msg("failed to load color catalog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	go sweep(ctx, mem, cfg.SessionTTL)

	srv := httpserver.New(mem, httpserver.Options{
		Catalog:       catalog.Default(),
		SessionSecret: cfg.SessionSecret,
		TokenTTL:      cfg.TokenTTL,
		SettleDelay:   cfg.SettleDelay,
		AdvanceDelay:  cfg.AdvanceDelay,
		DailySalt:     cfg.DailySalt,
		ClientOrigin:  cfg.ClientOrigin,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Int("colors", catalog.Default().Len()).Msg("starting colormatch")
	if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// sweep drops sessions idle for longer than ttl until ctx ends.
func sweep(ctx context.Context, st store.Store, ttl time.Duration) {
	t := time.NewTicker(ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.Sweep(ctx, ttl); n > 0 {
				log.Info().Int("removed", n).Msg("swept idle sessions")
			}
		}
	}
}
