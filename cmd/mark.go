package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// markKeys resolves --index on --source to comparison keys.
func (r *Runner) markKeys(cmd *cli.Command) (*tasks.Service, string, []models.SongKey, error) {
	svc, err := r.open()
	if err != nil {
		return nil, "", nil, err
	}

	sourceID := cmd.String("source")
	source, err := svc.Playlist(sourceID)
	if err != nil {
		return nil, "", nil, err
	}
	positions := cmd.IntSlice("index")
	if _, err := positionalKeys(source, positions); err != nil {
		return nil, "", nil, err
	}

	keys := tasks.KeysAt(source, zeroBased(positions))
	if len(keys) == 0 {
		return nil, "", nil, fmt.Errorf("%w: no titled songs at the given positions", shared.ErrInvalidArgument)
	}
	return svc, sourceID, keys, nil
}

// MarkMigrated sets or clears the migrated mark of source songs.
func (r *Runner) MarkMigrated(ctx context.Context, cmd *cli.Command) error {
	svc, sourceID, keys, err := r.markKeys(cmd)
	if err != nil {
		return err
	}

	var p models.Playlist
	if cmd.Bool("undo") {
		p, err = svc.UnmarkMigrated(sourceID, keys...)
	} else {
		p, err = svc.MarkMigrated(sourceID, keys...)
	}
	if err != nil {
		return err
	}
	r.writePlain("✓ %d of %d songs marked as migrated\n", p.MigratedKeys.Len(), p.Len())
	return nil
}

// MarkResolved hides or restores the differences of source songs.
func (r *Runner) MarkResolved(ctx context.Context, cmd *cli.Command) error {
	svc, sourceID, keys, err := r.markKeys(cmd)
	if err != nil {
		return err
	}

	var p models.Playlist
	if cmd.Bool("undo") {
		p, err = svc.UnresolveDiff(sourceID, keys...)
	} else {
		p, err = svc.ResolveDiff(sourceID, keys...)
	}
	if err != nil {
		return err
	}
	r.writePlain("✓ %d resolved differences on %s\n", p.ResolvedDiffKeys.Len(), sourceID)
	return nil
}
