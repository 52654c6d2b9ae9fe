package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/0xDub/figgie-tournament-testnet/internal/broadcast"
	"github.com/0xDub/figgie-tournament-testnet/internal/config"
	"github.com/0xDub/figgie-tournament-testnet/internal/engine"
	"github.com/0xDub/figgie-tournament-testnet/internal/hotpath"
	"github.com/0xDub/figgie-tournament-testnet/internal/ratelimit"
	"github.com/0xDub/figgie-tournament-testnet/internal/registry"
	"github.com/0xDub/figgie-tournament-testnet/internal/round"
	"github.com/0xDub/figgie-tournament-testnet/internal/transport/httpapi"
	"github.com/0xDub/figgie-tournament-testnet/internal/transport/stream"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Info().Msg("=-= Starting Figgie Testnet Exchange =-=")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	t, ctx := tomb.WithContext(ctx)

	bcast := broadcast.New()
	eng := engine.New(cfg.StartingBalance, cfg.Ante, cfg.PotSeed, bcast, time.Now().UnixNano())
	exec := hotpath.New(eng)
	reg := registry.New()
	limiter := ratelimit.New(cfg.RateLimitPerSecond)
	rounds := round.New(round.Config{
		RoundsPerGame: cfg.RoundsPerGame,
		RoundDuration: cfg.RoundDuration,
		PauseDuration: cfg.PauseDuration,
	}, exec)

	t.Go(func() error { return exec.Run(t) })
	t.Go(func() error { return rounds.Run(t) })
	t.Go(func() error {
		limiter.Run(t.Dying(), time.Second)
		return nil
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.New(exec, reg, limiter, rounds),
	}
	t.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http admission layer listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	wsServer := &http.Server{
		Addr:    cfg.WSAddr,
		Handler: stream.Handler(bcast, reg),
	}
	t.Go(func() error {
		log.Info().Str("addr", cfg.WSAddr).Msg("websocket streaming channel listening")
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = wsServer.Shutdown(shutdownCtx)

	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
