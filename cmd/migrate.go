package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Migrate sends the selected source songs to the target in batches.
//
// An interrupt stops the run before the next batch; the batch in flight completes.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}

	sourceID, targetID := cmd.String("source"), cmd.String("target")
	source, err := svc.Playlist(sourceID)
	if err != nil {
		return err
	}

	selected, err := r.selection(svc, source, targetID, cmd)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		r.writePlain("Nothing to migrate\n")
		return nil
	}

	preserve := r.config.Migration.PreservePosition
	if cmd.IsSet("preserve-position") {
		preserve = cmd.Bool("preserve-position")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting migration", "source", sourceID, "target", targetID, "songs", len(selected), "preserve", preserve)
	var progress chan<- tasks.ProgressUpdate
	done := func() {}
	if !cmd.Bool("json") {
		progress, done = r.progress()
	}
	report, err := svc.RunMigration(ctx, tasks.MigrationRequest{
		SourceID:         sourceID,
		TargetID:         targetID,
		SelectedKeys:     selected,
		PreservePosition: preserve,
		SkipMigrated:     cmd.Bool("skip-migrated"),
		BatchSize:        cmd.Int("batch-size"),
	}, progress)
	done()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			*tasks.MigrationReport
			Outcome tasks.Outcome `json:"outcome"`
			Summary string        `json:"summary"`
		}{report, report.Outcome(), report.Summary()}, cmd.Bool("pretty"))
	}
	r.writePlain("%s", formatter.MigrationSummary(report, r.styled))
	return nil
}

// selection resolves --index, --missing or --all to positional keys of source.
func (r *Runner) selection(svc *tasks.Service, source models.Playlist, targetID string, cmd *cli.Command) ([]string, error) {
	positions := cmd.IntSlice("index")
	switch {
	case len(positions) > 0:
		return positionalKeys(source, positions)
	case cmd.Bool("all"):
		return source.PositionalKeys(), nil
	case cmd.Bool("missing"):
		report, err := svc.GetDiff(source.ID, targetID)
		if err != nil {
			return nil, err
		}
		pending := tasks.PendingIndices(report.Result, source.ResolvedDiffKeys, cmd.Bool("shifted"))
		return tasks.PositionalKeysAt(source, pending), nil
	default:
		return nil, fmt.Errorf("%w: select songs with --index, --missing or --all", shared.ErrMissingArgument)
	}
}
