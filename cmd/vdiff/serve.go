package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/internal/config"
	"github.com/vango-dev/vdiff/pkg/archive"
	"github.com/vango-dev/vdiff/pkg/metrics"
	"github.com/vango-dev/vdiff/pkg/session"
	"github.com/vango-dev/vdiff/pkg/stream"
)

func serveCmd() *cobra.Command {
	var (
		dir  string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the batch stream server",
		Long: `Run the stream server. Producers POST documents to
/sessions/{id}/documents; hosts connect to /sessions/{id}/ws and receive
each resulting batch.

Settings come from vdiff.json in the config directory, or the defaults when
there is none. VDIFF_ADDR overrides the listen address.

Examples:
  vdiff serve
  vdiff serve --config=/etc/vdiff --addr=:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dir, addr)
		},
	}

	cmd.Flags().StringVarP(&dir, "config", "c", ".", "Directory containing vdiff.json")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from vdiff.json)")

	return cmd
}

func runServe(ctx context.Context, dir, addr string) error {
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Stream.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	var (
		collector      *metrics.Collector
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.New(
			metrics.WithNamespace(cfg.Metrics.Namespace),
			metrics.WithRegistry(reg),
		)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	streamConfig := stream.Config{
		WriteTimeout:   cfg.WriteTimeout(),
		SendBuffer:     cfg.Stream.SendBuffer,
		AllowedOrigins: cfg.Stream.AllowedOrigins,
		MetricsHandler: metricsHandler,
	}
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		store := archive.NewS3Store(archive.NewS3Client(cfg.Archive.Region), cfg.Archive.Bucket, cfg.Archive.Prefix)
		defer store.Close()
		streamConfig.Archive = store
		archiver = archive.NewArchiver(store, logger, collector)
	}

	srv := stream.New(streamConfig, logger, collector)
	sinks := []session.Sink{srv}
	if archiver != nil {
		sinks = append(sinks, archiver)
	}

	manager := session.NewManager(session.ManagerConfig{
		MaxSessions: cfg.Session.MaxSessions,
		IdleTimeout: cfg.IdleTimeout(),
		Session: session.Config{
			BulkInsertThreshold: cfg.Diff.BulkInsertThreshold,
			HistorySize:         cfg.Session.HistorySize,
			Sinks:               sinks,
			Metrics:             collector,
		},
		OnEvict: func(r *session.Reconciler) {
			srv.Disconnect(r.ID())
		},
	}, logger)
	defer manager.Stop()
	srv.SetSessions(manager)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting vdiff", cfg.Summary()...)
	return srv.ListenAndServe(ctx, cfg.Stream.Addr)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
