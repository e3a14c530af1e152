// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// executorCommand checks the mutation executor
func executorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "executor",
		Aliases: []string{"exec"},
		Usage:   "Mutation executor operations",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check that the executor is reachable and authenticated",
				Flags:  jsonFlags(),
				Action: r.ExecutorStatus,
			},
		},
	}
}

// playlistsCommand manages stored source and target playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Source and target playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored playlists",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only list source or target playlists",
					},
				}, jsonFlags()...),
				Action: r.ListPlaylists,
			},
			{
				Name:      "songs",
				Usage:     "Show the songs of a stored playlist",
				Flags:     jsonFlags(),
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistSongs,
			},
			{
				Name:      "import",
				Usage:     "Import source playlists from an extractor JSON document",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.ImportSource,
			},
			{
				Name:  "sync",
				Usage: "Load the target playlist list from the executor",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "songs",
						Usage: "Also load every target's songs",
					},
				},
				Action: r.SyncTargets,
			},
			{
				Name:      "refresh",
				Usage:     "Reload one target playlist's songs",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.RefreshTarget,
			},
			{
				Name:  "create",
				Usage: "Create an empty target playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
				},
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.CreateTarget,
			},
			{
				Name:      "delete",
				Usage:     "Delete a target playlist on the provider, or forget an imported source",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.DeletePlaylist,
			},
		},
	}
}

func pairFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "Source playlist ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "target",
			Aliases:  []string{"t"},
			Usage:    "Target playlist ID",
			Required: true,
		},
	}
}

// diffCommand compares a source with a target
func diffCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare a source playlist with a target playlist",
		Flags: append(pairFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout (\"-\" for the default name)",
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Reload the target's songs first",
			},
			&cli.StringFlag{
				Name:  "watch",
				Usage: "Re-import this source document and redraw whenever it changes",
			},
		),
		Action: r.Diff,
	}
}

// migrateCommand sends source songs to a target
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate source songs into a target playlist",
		Flags: append(append(pairFlags(),
			&cli.IntSliceFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Source position to migrate, as shown by diff (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "missing",
				Usage: "Select every unresolved missing song",
			},
			&cli.BoolFlag{
				Name:  "shifted",
				Usage: "With --missing, also select shifted songs",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Select every song of the source",
			},
			&cli.BoolFlag{
				Name:  "preserve-position",
				Usage: "Insert each song at its source position (default from migration.preserve_position)",
			},
			&cli.BoolFlag{
				Name:  "skip-migrated",
				Usage: "Leave out songs already marked as migrated",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Songs per executor call (default from migration.batch_size)",
			},
		), jsonFlags()...),
		Action: r.Migrate,
	}
}

func targetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "target",
		Aliases:  []string{"t"},
		Usage:    "Target playlist ID",
		Required: true,
	}
}

// editCommand applies single mutations to a target
func editCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Edit a target playlist one song at a time",
		Commands: []*cli.Command{
			{
				Name:  "insert",
				Usage: "Insert a song at a position, relocating it when already present",
				Flags: []cli.Flag{
					targetFlag(),
					&cli.StringFlag{
						Name:  "from",
						Usage: "Playlist holding the song (defaults to the target)",
					},
					&cli.IntFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Position of the song in --from",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "at",
						Usage:    "Destination position in the target",
						Required: true,
					},
				},
				Action: r.EditInsert,
			},
			{
				Name:  "move",
				Usage: "Move a song up or down",
				Flags: []cli.Flag{
					targetFlag(),
					&cli.IntFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Position of the song",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "direction",
						Aliases: []string{"d"},
						Usage:   "up or down",
						Value:   "up",
					},
					&cli.IntFlag{
						Name:    "positions",
						Aliases: []string{"n"},
						Usage:   "How far to move",
						Value:   1,
					},
				},
				Action: r.EditMove,
			},
			{
				Name:  "remove",
				Usage: "Remove songs from the target",
				Flags: []cli.Flag{
					targetFlag(),
					&cli.IntSliceFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Position to remove (repeatable)",
						Required: true,
					},
				},
				Action: r.EditRemove,
			},
			{
				Name:  "fix",
				Usage: "Move a shifted source song to its source position in the target",
				Flags: append(pairFlags(),
					&cli.IntFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Source position, as shown by diff",
						Required: true,
					},
				),
				Action: r.EditFix,
			},
		},
	}
}

func markFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "Source playlist ID",
			Required: true,
		},
		&cli.IntSliceFlag{
			Name:     "index",
			Aliases:  []string{"i"},
			Usage:    "Source position (repeatable)",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "undo",
			Usage: "Clear the mark instead of setting it",
		},
	}
}

// markCommand records user decisions on a source
func markCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mark",
		Usage: "Mark source songs as migrated or their differences as resolved",
		Commands: []*cli.Command{
			{
				Name:   "migrated",
				Usage:  "Mark songs as already migrated",
				Flags:  markFlags(),
				Action: r.MarkMigrated,
			},
			{
				Name:   "resolved",
				Usage:  "Hide songs' differences from future diffs",
				Flags:  markFlags(),
				Action: r.MarkResolved,
			},
		},
	}
}

// historyCommand lists recorded migration runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded migration runs",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Only runs from this source",
			},
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Only runs into this target",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only runs with this status",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
		}, jsonFlags()...),
		Action: r.History,
	}
}
