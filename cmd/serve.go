package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/ytmigrate/internal/server"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

// serveCommand runs the JSON API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the reconciliation API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from server.port)",
			},
		},
		Action: r.Serve,
	}
}

// Serve runs the HTTP API until interrupted, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}

	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}

	logger := r.logger
	if cfg.LogFile != "" {
		fileLogger, closer, err := shared.NewFileLogger(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		fileLogger.SetLevel(r.logger.GetLevel())
		logger = fileLogger
		r.logger.Info("request log", "path", cfg.LogFile)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewServer(svc, r.runs, logger),
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("serving API at http://%v%v", cfg.Addr(), server.APIPrefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}
	return nil
}
