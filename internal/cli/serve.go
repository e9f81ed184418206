package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlouiLouai/takwira/internal/config"
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/metrics"
	"github.com/AlouiLouai/takwira/internal/web"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP server",
		Long:         "Serve the players API, the change feed and the board API. Runs as a Lambda handler when AWS_LAMBDA_FUNCTION_NAME is set.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := rootOpts.cfg
	logger := rootOpts.logger
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.NewRecorder()
	}
	server := web.NewServer(web.Options{
		Gateway:       metrics.InstrumentGateway(b.gateway, rec),
		KV:            b.kv,
		Recorder:      rec,
		Logger:        logger,
		DragThreshold: cfg.DragThreshold,
		MaxSessions:   cfg.MaxSessions,
		SecureCookies: config.OnLambda(),
	})
	defer server.Close()
	handler := server.Routes()

	if config.OnLambda() {
		logging.Info(logger, "starting lambda handler")
		adapter := httpadapter.New(handler)
		lambda.StartWithOptions(adapter.ProxyWithContext, lambda.WithContext(ctx))
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info(logger, "listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info(logger, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
