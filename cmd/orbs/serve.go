package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
	"github.com/signalsfoundry/memory-orbs/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scene and serve frames, events and uploads over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			log, closeLog, err := logging.NewFromEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
			if err != nil {
				return err
			}
			defer observability.ShutdownWithTimeout(context.WithoutCancel(ctx), shutdownTracing, log)

			rt, err := newRuntime(cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.watch(ctx, opts.configPath); err != nil {
				return err
			}
			clockDone := rt.clock.Start(ctx)
			defer func() { <-clockDone }()

			srv := server.New(rt.scene, nil, rt.ingestor,
				server.WithLogger(log),
				server.WithMetrics(rt.sceneMetrics),
				server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
			)
			httpSrv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           srv.Routes(),
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      cfg.Server.WriteTimeout,
			}
			return server.ListenAndServe(ctx, httpSrv, closeTimeout, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
