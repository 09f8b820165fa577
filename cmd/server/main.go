package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/studyroom/internal/adapters/http"
	wssignal "github.com/dkeye/studyroom/internal/adapters/signal"
	"github.com/dkeye/studyroom/internal/app"
	"github.com/dkeye/studyroom/internal/config"
	"github.com/dkeye/studyroom/internal/repository"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, store, err := repository.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open room store")
	}
	defer db.Close()

	reg := app.NewRegistry()
	rooms := app.NewRoomManager()
	presence := app.NewPresence(reg, rooms)
	relay := app.NewRelay(reg)

	ctl := wssignal.NewSignalWSController(cfg, presence, relay, rooms, store)
	roomAPI := router.NewRoomHandler(store, rooms)

	r := router.SetupRouter(ctx, cfg, ctl, roomAPI)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Studyroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	reg.CancelAll()
	log.Info().Msg("Server exited gracefully")
}
