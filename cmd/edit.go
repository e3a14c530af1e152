package main

import (
	"context"

	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// EditInsert inserts the song at --index of --from at position --at of the target.
func (r *Runner) EditInsert(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}

	targetID := cmd.String("target")
	fromID := cmd.String("from")
	if fromID == "" {
		fromID = targetID
	}
	from, err := svc.Playlist(fromID)
	if err != nil {
		return err
	}
	keys, err := positionalKeys(from, []int{cmd.Int("index")})
	if err != nil {
		return err
	}

	res, err := svc.InsertByKey(ctx, tasks.InsertByKeyRequest{
		TargetID:      targetID,
		FromID:        fromID,
		PositionalKey: keys[0],
		Index:         cmd.Int("at") - 1,
	})
	if err != nil {
		return err
	}

	verb := "Inserted"
	if res.Moved {
		verb = "Moved"
	}
	r.writePlain("✓ %s %s at position %d of %s\n", verb, res.VideoID, res.InsertedIndex+1, targetID)
	return nil
}

// EditMove moves the target song at --index up or down.
func (r *Runner) EditMove(ctx context.Context, cmd *cli.Command) error {
	direction, err := services.ParseDirection(cmd.String("direction"))
	if err != nil {
		return err
	}

	svc, err := r.open()
	if err != nil {
		return err
	}
	targetID := cmd.String("target")
	target, err := svc.Playlist(targetID)
	if err != nil {
		return err
	}
	keys, err := positionalKeys(target, []int{cmd.Int("index")})
	if err != nil {
		return err
	}

	res, err := svc.MoveByKey(ctx, targetID, keys[0], direction, cmd.Int("positions"))
	if err != nil {
		return err
	}
	if !res.Moved {
		r.writePlain("Song is already at the %s of the playlist\n", map[services.Direction]string{services.Up: "top", services.Down: "bottom"}[direction])
		return nil
	}
	r.writePlain("✓ Moved from position %d to %d\n", res.FromIndex+1, res.ToIndex+1)
	return nil
}

// EditRemove removes the target songs at every --index.
func (r *Runner) EditRemove(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}
	targetID := cmd.String("target")
	target, err := svc.Playlist(targetID)
	if err != nil {
		return err
	}
	keys, err := positionalKeys(target, cmd.IntSlice("index"))
	if err != nil {
		return err
	}

	res, err := svc.RemoveByKeys(ctx, targetID, keys)
	if err != nil {
		return err
	}
	r.writePlain("✓ Removed %d songs from %s\n", res.DeletedCount, targetID)
	return nil
}

// EditFix moves a shifted source song to its source position in the target.
func (r *Runner) EditFix(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}

	index := cmd.Int("index")
	res, err := svc.FixPosition(ctx, cmd.String("source"), cmd.String("target"), index-1)
	if err != nil {
		return err
	}
	r.writePlain("✓ Song %d now at position %d\n", index, res.InsertedIndex+1)
	return nil
}
