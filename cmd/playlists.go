package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

// ExecutorStatus reports whether the executor is reachable and authenticated.
func (r *Runner) ExecutorStatus(ctx context.Context, cmd *cli.Command) error {
	ec := r.config.Executor
	if ec.Transport != shared.TransportMemory && ec.AuthFile != "" {
		if _, err := os.Stat(ec.AuthFile); err != nil {
			return fmt.Errorf("%w: %s", shared.ErrMissingAuth, ec.AuthFile)
		}
	}

	svc, err := r.open()
	if err != nil {
		return err
	}

	status, err := svc.ExecutorStatus(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if status.Connected {
		r.writePlain("✓ Executor connected (%s transport)\n", r.config.Executor.Transport)
	} else {
		r.writePlain("✗ Executor reachable but not authenticated (%s transport)\n", r.config.Executor.Transport)
	}
	return nil
}

// ListPlaylists lists stored playlists, sources first.
func (r *Runner) ListPlaylists(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}

	kinds := []models.PlaylistKind{models.SourcePlaylist, models.TargetPlaylist}
	if k := strings.ToLower(strings.TrimSpace(cmd.String("kind"))); k != "" {
		kind := models.PlaylistKind(k)
		if !kind.Valid() {
			return fmt.Errorf("%w: kind must be source or target, got %q", shared.ErrInvalidFlag, k)
		}
		kinds = []models.PlaylistKind{kind}
	}

	all := []models.Playlist{}
	byKind := map[models.PlaylistKind][]models.Playlist{}
	for _, kind := range kinds {
		playlists, err := svc.Playlists(kind)
		if err != nil {
			return err
		}
		byKind[kind] = playlists
		all = append(all, playlists...)
	}

	if cmd.Bool("json") {
		return r.writeJSON(all, cmd.Bool("pretty"))
	}

	for _, kind := range kinds {
		playlists := byKind[kind]
		r.writePlainHeader(fmt.Sprintf("%s playlists (%d)", strings.ToUpper(string(kind[:1]))+string(kind[1:]), len(playlists)))
		if len(playlists) == 0 {
			r.writePlain("  none\n")
		}
		for _, p := range playlists {
			note := ""
			if !p.SongsLoaded {
				note = "  (songs not loaded)"
			} else if kind == models.SourcePlaylist && p.MigratedKeys.Len() > 0 {
				note = fmt.Sprintf("  (%d migrated)", p.MigratedKeys.Len())
			}
			r.writePlain("  %-26s %-32s %4d songs%s\n", p.ID, p.Name, p.Len(), note)
		}
		r.writePlain("\n")
	}
	return nil
}

// PlaylistSongs prints a stored playlist with the positions other commands accept.
func (r *Runner) PlaylistSongs(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.open()
	if err != nil {
		return err
	}
	p, err := svc.Playlist(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%s, %d songs)", p.Name, p.Kind, p.Len()))
	if !p.SongsLoaded {
		r.writePlain("Songs not loaded, run: ytmigrate playlists refresh %s\n", p.ID)
		return nil
	}
	for i := range p.Len() {
		entry := p.Entry(i)
		line := models.Display(entry)
		if line == "" {
			line = "(untitled)"
		}
		if entry.Album != "" {
			line += " [" + entry.Album + "]"
		}
		if key := p.Key(i); key.Valid() && p.MigratedKeys.Has(key) {
			line += "  (migrated)"
		}
		r.writePlain("%4d. %s\n", i+1, line)
	}
	return nil
}

// ImportSource stores the playlists of an extractor document.
func (r *Runner) ImportSource(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to the source document is required", shared.ErrMissingArgument)
	}

	imported, err := r.importFile(path)
	if err != nil {
		return err
	}

	for _, p := range imported {
		r.writePlain("✓ Imported %s %q (%d songs)\n", p.ID, p.Name, p.Len())
	}
	return nil
}

func (r *Runner) importFile(path string) ([]models.Playlist, error) {
	svc, err := r.open()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source document: %w", err)
	}
	imported, err := svc.ImportSource(data)
	if err != nil {
		return nil, err
	}
	r.logger.Info("imported source document", "path", path, "playlists", len(imported))
	return imported, nil
}

// SyncTargets stores the executor's playlist list.
func (r *Runner) SyncTargets(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.open()
	if err != nil {
		return err
	}

	progress, stop := r.progress()
	playlists, err := svc.SyncTargets(ctx, cmd.Bool("songs"), progress)
	stop()
	if err != nil {
		return err
	}

	stale := 0
	for _, p := range playlists {
		if !p.SongsLoaded {
			stale++
		}
	}
	r.writePlain("✓ Synced %d target playlists\n", len(playlists))
	if cmd.Bool("songs") && stale > 0 {
		r.writePlain("%d playlists could not be loaded, see the log for details\n", stale)
	}
	return nil
}

// RefreshTarget reloads one target's songs.
func (r *Runner) RefreshTarget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: target playlist ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.open()
	if err != nil {
		return err
	}
	p, err := svc.RefreshTarget(ctx, id)
	if err != nil {
		return err
	}
	r.writePlain("✓ Loaded %d songs into %s\n", p.Len(), p.ID)
	return nil
}

// CreateTarget creates an empty playlist on the provider.
func (r *Runner) CreateTarget(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	svc, err := r.open()
	if err != nil {
		return err
	}
	p, err := svc.CreateTarget(ctx, name, cmd.String("description"))
	if err != nil {
		return err
	}
	r.writePlain("✓ Created %q (%s)\n", p.Name, p.ID)
	return nil
}

// DeletePlaylist deletes a target on the provider or forgets an imported source.
func (r *Runner) DeletePlaylist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.open()
	if err != nil {
		return err
	}
	p, err := svc.Playlist(id)
	if err != nil {
		return err
	}

	if p.Kind == models.SourcePlaylist {
		err = svc.DeleteSource(id)
	} else {
		err = svc.DeleteTarget(ctx, id)
	}
	if err != nil {
		return err
	}
	r.writePlain("✓ Deleted %s playlist %s\n", p.Kind, id)
	return nil
}
