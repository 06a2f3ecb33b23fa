// Package main provides the fill engine's CLI entry point: a single
// invocation that walks a taxon tree upward, downward, or both, filling in
// derived attribute summaries.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/genomehubs/fillcore/internal/backend"
	"github.com/genomehubs/fillcore/internal/config"
	"github.com/genomehubs/fillcore/internal/taxonomy"
	"github.com/genomehubs/fillcore/internal/traverse"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "fill"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	root := flag.String("traverse-root", "", "taxon id to traverse from (required)")
	up := flag.Bool("up", false, "run the upward pass")
	down := flag.Bool("down", false, "run the downward pass")
	both := flag.Bool("both", false, "run both passes (upward then downward)")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	fillConfig := config.LoadFillConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: fillConfig.LogLevel,
	}))

	logger.Info("starting fill engine", slog.String("service", name), slog.String("version", version))

	if err := fillConfig.Validate(); err != nil {
		logger.Error("config error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *root == "" {
		logger.Error("config error", slog.String("error", "--traverse-root is required"))
		os.Exit(1)
	}

	opts := traverse.RunOptions{Up: *up || *both, Down: *down || *both}
	if !opts.Up && !opts.Down {
		logger.Error("config error", slog.String("error", "one of --up, --down, --both is required"))
		os.Exit(1)
	}

	table, err := taxonomy.Load(fillConfig.TypeTablePath, fillConfig.AliasPath)
	if err != nil {
		logger.Error("config error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runID := uuid.NewString()

	store, cleanup, err := wireStore(table, runID, logger)
	if err != nil {
		logger.Error("backend error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := traverse.Run(ctx, store, table, *root, runID, opts, logger); err != nil {
		if errors.Is(err, traverse.ErrRootNotFound) {
			logger.Error("config error", slog.String("root", *root), slog.String("error", err.Error()))
		} else {
			logger.Error("fill run failed", slog.String("root", *root), slog.String("error", err.Error()))
		}

		os.Exit(1)
	}

	logger.Info("fill run complete", slog.String("root", *root))
}

// wireStore assembles the Postgres-backed Store, its Kafka publisher, and a
// background Applier/cleanup goroutine, returning a shutdown function.
func wireStore(table *taxonomy.TypeTable, runID string, logger *slog.Logger) (backend.Store, func(), error) {
	backendConfig := backend.LoadConfig()

	if err := backendConfig.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Info("loaded backend configuration",
		slog.String("database_url", backendConfig.MaskDatabaseURL()),
		slog.Int("page_size", backendConfig.PageSize),
		slog.String("kafka_topic", backendConfig.KafkaTopic),
	)

	conn, err := backend.NewConnection(backendConfig)
	if err != nil {
		return nil, nil, err
	}

	publisher := backend.NewKafkaPublisher(backendConfig.KafkaBrokers, backendConfig.KafkaTopic)

	applier := backend.NewApplier(backendConfig.KafkaBrokers, backendConfig.KafkaTopic, name+"-applier", conn, logger)

	applierCtx, stopApplier := context.WithCancel(context.Background())

	go func() {
		if err := applier.Run(applierCtx); err != nil {
			logger.Error("applier stopped", slog.String("error", err.Error()))
		}
	}()

	store := backend.NewPostgresStore(conn, table, publisher, backendConfig, runID, logger)

	cleaner := backend.NewQueueCleaner(conn, backendConfig.CleanupInterval, logger)
	cleaner.Start()

	cleanup := func() {
		cleaner.Stop()

		stopApplier()

		if err := applier.Close(); err != nil {
			logger.Warn("closing applier", slog.String("error", err.Error()))
		}

		if err := publisher.Close(); err != nil {
			logger.Warn("closing kafka publisher", slog.String("error", err.Error()))
		}

		if err := conn.Close(); err != nil {
			logger.Warn("closing node store connection", slog.String("error", err.Error()))
		}
	}

	return store, cleanup, nil
}
