package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mockapi "github.com/kailas-cloud/docquery/internal/transport/chi"
	"github.com/kailas-cloud/docquery/internal/version"
)

// ServeMockOptions holds flags for the serve-mock command.
type ServeMockOptions struct {
	*RootOptions
	Port     int
	Fixtures string
}

// NewServeMockCommand creates the serve-mock command.
func NewServeMockCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeMockOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve a fixture-backed content API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServeMock(ctx, opts, nil)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "listen port (default mock.port)")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "fixture file (default mock.fixtures)")

	return cmd
}

// runServeMock serves until ctx is done. If ready is non-nil it receives the
// bound address once the listener is up.
func runServeMock(ctx context.Context, opts *ServeMockOptions, ready chan<- string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := opts.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	port := cfg.Mock.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	fixturesPath := cfg.Mock.Fixtures
	if opts.Fixtures != "" {
		fixturesPath = opts.Fixtures
	}

	fixtures := mockapi.Fixtures{}
	if fixturesPath != "" {
		if fixtures, err = mockapi.LoadFixtures(fixturesPath); err != nil {
			return err
		}
	}

	logger.Info("Starting docquery mock API",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.Env),
		zap.Int("port", port),
		zap.String("fixtures", fixturesPath),
		zap.Int("relations", len(fixtures)),
	)

	router := mockapi.NewRouter(mockapi.NewServer(fixtures, logger), mockapi.RouterConfig{
		APIKeys: mockapi.ParseAPIKeys(cfg.Mock.APIKeys),
		Logger:  logger,
	})
	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Mock.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Mock.WriteTimeoutSec) * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("mock server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Mock.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
