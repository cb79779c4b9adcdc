package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag/adapter/rest"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the HTTP API without processing jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), true, false)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued ingestion jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), false, true)
	},
}

var standaloneCmd = &cobra.Command{
	Use:   "standalone",
	Short: "Serve the HTTP API and process jobs in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), true, true)
	},
}

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, serve, work bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if work {
		waiting, processing, err := a.queue.Len(ctx)
		if err != nil {
			return fmt.Errorf("queue length: %w", err)
		}
		logger.Sugar().With(
			"waiting", waiting,
			"processing", processing,
			"concurrency", viper.GetInt("worker.concurrency"),
		).Info("starting worker")

		wait := a.ragServer.ProcessJobs(ctx)
		defer wait()
	}

	if !serve {
		<-ctx.Done()
		logger.Info("shutting down worker")
		return nil
	}

	return serveHTTP(ctx, a, logger)
}

func serveHTTP(ctx context.Context, a *app, logger *zap.Logger) error {
	var (
		restAdapter = rest.New(a.ragServer, rest.WithLogger(logger))
		address     = net.JoinHostPort(viper.GetString("http.host"), viper.GetString("http.port"))
	)

	httpServer := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Second,
		Addr:              address,
		Handler:           restAdapter.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar().With("address", address).Info("listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownRelease()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	logger.Info("graceful shutdown complete")

	return nil
}
