package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/somno/internal/config"
	"github.com/alfredjeanlab/somno/internal/events"
	"github.com/alfredjeanlab/somno/internal/inference"
	"github.com/alfredjeanlab/somno/internal/recordings"
	"github.com/alfredjeanlab/somno/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the prediction server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (SOMNO_NATS_URL not set)")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dirSource, err := recordings.NewDirSource(cfg.DataDir, cfg.RecordingPattern)
		if err != nil {
			return err
		}
		sources := []recordings.Source{dirSource}
		var s3Source *recordings.S3Source
		if cfg.S3Bucket != "" {
			s3Source, err = recordings.NewS3Source(ctx, recordings.S3Config{
				Bucket:   cfg.S3Bucket,
				Prefix:   cfg.S3Prefix,
				Pattern:  cfg.RecordingPattern,
				Region:   cfg.S3Region,
				Endpoint: cfg.S3Endpoint,
			})
			if err != nil {
				return err
			}
			sources = append(sources, s3Source)
			logger.Info("S3 recordings enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		}

		srv := server.New(cfg, recordings.NewCatalog(logger, sources...), publisher, inference.CommandRunner{})
		hasModel, hasSample := srv.Dispatcher().Availability()
		logger.Info("prediction backend",
			"model", cfg.ModelPath, "model_available", hasModel,
			"sample", cfg.SamplePath, "sample_available", hasSample,
		)

		g, ctx := errgroup.WithContext(ctx)

		if cfg.Watch {
			if st, err := os.Stat(cfg.DataDir); err == nil && st.IsDir() {
				w, err := recordings.NewWatcher(dirSource, srv.RecordingChanged, logger)
				if err != nil {
					logger.Warn("recording watcher disabled", "err", err)
				} else {
					g.Go(func() error { return w.Run(ctx) })
				}
			} else {
				logger.Info("recording watcher disabled (data dir missing)", "dir", cfg.DataDir)
			}
		}

		if s3Source != nil && cfg.PollInterval > 0 {
			poller := recordings.NewPoller(s3Source, cfg.PollInterval, srv.RecordingChanged, logger)
			poller.Start()
			defer poller.Stop()
			logger.Info("S3 poller started", "interval", cfg.PollInterval)
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "err", err)
			}
			logger.Info("HTTP server stopped")
			return nil
		})

		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				stop()
				_ = g.Wait()
				return err
			}
			grpcServer, health := server.NewGRPCServer()
			g.Go(func() error {
				logger.Info("gRPC health service listening", "addr", cfg.GRPCAddr)
				return grpcServer.Serve(lis)
			})
			g.Go(func() error {
				<-ctx.Done()
				health.Shutdown()
				grpcServer.GracefulStop()
				logger.Info("gRPC server stopped")
				return nil
			})
		}

		logger.Info("somno server started", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

		err = g.Wait()
		logger.Info("shutdown complete")
		return err
	},
}
