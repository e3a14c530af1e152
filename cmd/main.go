package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	err := newApp(runner).Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "error", cerr)
	}
	if err == nil {
		return
	}

	if execErr, ok := services.AsExecutorError(err); ok {
		logger.Error("executor error", "action", execErr.Action, "code", execErr.Code, "status", execErr.Status, "error", execErr.Message)
		os.Exit(1)
	}
	switch {
	case errors.Is(err, shared.ErrMissingAuth):
		logger.Error(err.Error(), "hint", "set executor.auth_file or "+shared.EnvAuthFile)
		os.Exit(1)
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidFlag):
		logger.Error(err.Error())
		os.Exit(2)
	default:
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ytmigrate",
		Usage:   "Reconcile playlists and migrate missing songs into YouTube Music",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable styled output",
			},
		},
		Before:   r.configure,
		Commands: r.register(),
	}
}
