// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jedsmith2004/folio/internal/cloud"
	"github.com/jedsmith2004/folio/internal/config"
	"github.com/jedsmith2004/folio/internal/history"
	"github.com/jedsmith2004/folio/internal/profile"
	"github.com/jedsmith2004/folio/internal/router"
	"github.com/jedsmith2004/folio/internal/server"
	"github.com/jedsmith2004/folio/internal/storage"
	"github.com/jedsmith2004/folio/internal/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateway",
		Long: `Run the HTTP gateway that relays questions to the upstream models.

Endpoints:
  POST /api/ask   streamed answer (server-sent events)
  GET  /health    liveness and upstream readiness
  GET  /stats     request ledger summary
  GET  /metrics   Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Gateway.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides gateway.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg

	log, closer, err := a.logger(cmd.ErrOrStderr(), cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	p, err := a.loadProfile()
	if err != nil {
		return err
	}
	store := profile.NewStore(p)

	client := newUpstreamClient(cfg.Upstream, log)
	if !client.IsConfigured() {
		log.Warn().Msg("UPSTREAM_KEY_MISSING")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	cands := router.Candidates(cfg.Upstream.ModelOverride, cfg.Upstream.Fallback)
	orch := router.NewOrchestrator(client, cands).
		WithBackoff(cfg.Upstream.Backoff()).
		WithAttemptHook(metrics.ObserveAttempt).
		WithLogger(log)

	srv := server.New(cfg.Gateway, orch).
		WithSource(store).
		WithHistoryLimits(history.Limits{MaxTurns: cfg.History.MaxTurns, MaxChars: cfg.History.MaxChars}).
		WithReadiness(client.IsConfigured).
		WithMetrics(metrics).
		WithLogger(log).
		WithVersion(Version)

	if cfg.Storage.Enabled {
		ledger, err := storage.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()
		srv.WithLedger(ledger)
	}

	log.Info().
		Strs("candidates", router.IDs(cands)).
		Str("key", client.KeyFingerprint()).
		Str("profile", p.Name).
		Msg("GATEWAY_CONFIGURED")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if cfg.Profile.Watch && cfg.Profile.Path != "" {
		w := profile.NewWatcher(cfg.Profile.Path, store, log)
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}

func newUpstreamClient(up config.UpstreamConfig, log zerolog.Logger) *cloud.Client {
	return cloud.NewClient(up.APIKey).
		WithBaseURL(up.BaseURL).
		WithShaping(cloud.Shaping{
			ExtendedMaxTokens:   up.ExtendedMaxTokens,
			ExtendedEffort:      up.ExtendedEffort,
			StandardMaxTokens:   up.StandardMaxTokens,
			StandardTemperature: up.StandardTemperature,
		}).
		WithHeaderTimeout(up.Timeout()).
		WithLogger(log)
}
