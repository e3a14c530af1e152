package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded migration runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidFlag)
	}

	if _, err := r.open(); err != nil {
		return err
	}

	runs, err := r.runs.List(map[string]any{
		"source_playlist_id": cmd.String("source"),
		"target_playlist_id": cmd.String("target"),
		"status":             cmd.String("status"),
		"limit":              limit,
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]models.RunView, 0, len(runs))
		for _, run := range runs {
			views = append(views, run.View())
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}
	_, err = r.output.Write(formatter.RunHistory(runs))
	return err
}
