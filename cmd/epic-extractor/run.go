package main

import (
	"context"
	"net"
	"sync"

	"github.com/spf13/cobra"
	apiserver "github.com/voterlookup/epic-extractor/internal/api_server"
	"github.com/voterlookup/epic-extractor/internal/archive"
	"github.com/voterlookup/epic-extractor/internal/cli"
	"github.com/voterlookup/epic-extractor/internal/config"
	"github.com/voterlookup/epic-extractor/internal/orchestrator"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"github.com/voterlookup/epic-extractor/pkg/metrics"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extraction api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rt, err := cli.NewRuntime(ctx, cfg)
		if err != nil {
			zap.S().Errorw("initializing runtime", "error", err)
			return err
		}
		defer rt.Close()

		metrics.RegisterStoreCollector(rt.Store)

		launcher := orchestrator.NewLauncher(rt.Orchestrator())

		reaper := orchestrator.NewReaper(rt.Store,
			cfg.Extraction.JobStaleAfter.Duration(),
			cfg.Extraction.ReapInterval.Duration(),
			launcher.IsActive,
		)
		if n, err := reaper.ReapOrphans(ctx); err != nil {
			zap.S().Warnw("failed to reap orphaned jobs", "error", err)
		} else if n > 0 {
			zap.S().Infow("orphaned jobs marked as failed", "count", n)
		}
		reaper.Start(ctx)

		var opts []apiserver.Option
		if cfg.Archive.Enabled() {
			archiver, err := archive.NewMinioArchiver(archive.OptsFrom(cfg.Archive)...)
			if err != nil {
				zap.S().Errorw("creating archiver", "error", err)
				return err
			}
			if err := archiver.EnsureBucket(ctx); err != nil {
				zap.S().Errorw("preparing archive bucket", "error", err, "bucket", cfg.Archive.Bucket)
				return err
			}
			opts = append(opts, apiserver.WithArchiver(archiver))
		}

		var wg sync.WaitGroup
		errCh := make(chan error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				errCh <- err
				return
			}

			server := apiserver.New(cfg, rt.Store, listener, rt.Engine, launcher, rt.Portal, opts...)
			if err := server.Run(ctx); err != nil {
				errCh <- err
			}
		}()

		go func() {
			defer wg.Done()
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				errCh <- err
				return
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				errCh <- err
			}
		}()

		<-ctx.Done()
		// the api server returns once running jobs are stopped
		wg.Wait()

		select {
		case err := <-errCh:
			zap.S().Errorw("server stopped", "error", err)
			return err
		default:
			return nil
		}
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
