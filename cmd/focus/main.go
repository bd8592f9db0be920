package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Focus/internal/adapters/events"
	router "github.com/dkeye/Focus/internal/adapters/http"
	"github.com/dkeye/Focus/internal/adapters/ws"
	"github.com/dkeye/Focus/internal/app"
	"github.com/dkeye/Focus/internal/config"
	"github.com/dkeye/Focus/internal/domain"
	"github.com/dkeye/Focus/internal/xmpp"
)

const version = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	reg := prometheus.NewRegistry()
	sink := events.MultiSink{
		events.LogSink{},
		events.NewCounterSink(reg),
	}

	if cfg.UpstreamURL == "" {
		log.Fatal().Msg("upstream_url is required, the focus cannot reach the bridge without it")
	}

	focusOpts := app.ManagerOptions{
		Bridge:  cfg.Bridge,
		Gateway: domain.JID(cfg.CallControl),
		Roles:   app.StaticRoleResolver{},
		Events:  sink,
	}

	// focus is assigned before the upstream delivers any stanza; the
	// handler closure reads it lazily.
	var focus *app.Manager
	var upstream *ws.Conn
	upstream, err = ws.Dial(ctx, cfg.UpstreamURL, cfg.RequestTimeout, func(ctx context.Context, st *xmpp.Stanza) {
		rt := ws.Router{Focus: focus, Conn: upstream, Events: sink}
		rt.Route(ctx, st)
	})
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.UpstreamURL).Msg("failed to reach upstream")
	}
	defer upstream.Close()

	focusOpts.Link = xmpp.NewBridgeLink(upstream, domain.JID(cfg.FocusJID))
	focus = app.NewManager(focusOpts)

	ctl := ws.NewController(focus, sink, cfg.RequestTimeout)
	r := router.SetupRouter(ctx, cfg, version, focus, ctl, reg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("version", version).Msg("focus started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, info := range focus.List() {
		focus.Destroy(shutdownCtx, info.Room)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
