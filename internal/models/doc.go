// Package models defines the playlist, song identity and migration types shared by every layer.
//
// # Song identity
//
// Songs arrive either as free text ("Artist - Title") or as a [SongDetail].
// [ComparisonKey] folds title and artist into a [SongKey] used to match songs
// across providers; album is ignored. A song without a title has the empty key
// and never matches anything. [PositionalKey] adds album and index and is only
// used to identify a selected row.
//
// # Playlists
//
// [Playlist] is treated as an immutable value. Its song arrays are replaced as a
// whole by [Playlist.WithSongs] and the marker sets are copied on every change,
// so a reader never observes songs and details out of alignment.
//
// # Migration
//
// [MigrationItem], [MigratedSong] and [FailedSong] mirror the executor's
// migrate payload. [MigrationRun] is the persisted history of one run and
// implements [Model].
package models
