package models

import (
	"encoding/json"
	"testing"
)

func TestKeySet(t *testing.T) {
	t.Run("With and Without copy", func(t *testing.T) {
		base := NewKeySet("a|x", "")
		added := base.With("b|y")
		removed := added.Without("a|x")

		if base.Len() != 1 || !base.Has("a|x") {
			t.Errorf("base mutated: %v", base.Sorted())
		}
		if added.Len() != 2 {
			t.Errorf("expected 2 keys, got %v", added.Sorted())
		}
		if removed.Has("a|x") || !removed.Has("b|y") {
			t.Errorf("unexpected membership %v", removed.Sorted())
		}
	})

	t.Run("JSON sorted array", func(t *testing.T) {
		data, err := json.Marshal(NewKeySet("b|", "a|"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `["a|","b|"]` {
			t.Errorf("unexpected JSON %s", data)
		}

		var nilSet KeySet
		data, _ = json.Marshal(nilSet)
		if string(data) != `[]` {
			t.Errorf("expected nil set to encode as [], got %s", data)
		}

		var decoded KeySet
		if err := json.Unmarshal([]byte(`["x|","","x|"]`), &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decoded.Len() != 1 {
			t.Errorf("expected duplicates and empty keys dropped, got %v", decoded.Sorted())
		}
	})
}

func TestPlaylist(t *testing.T) {
	base := Playlist{
		ID:          "PL1",
		Name:        "Road Trip",
		Kind:        SourcePlaylist,
		Songs:       []string{"A - One", "B - Two"},
		SongDetails: []SongDetail{{Title: "One", Artist: "A"}},
	}

	t.Run("Validate", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Errorf("expected valid playlist, got %v", err)
		}

		tests := []Playlist{
			{Kind: SourcePlaylist},
			{ID: "x", Kind: "other"},
			{ID: "x", Kind: TargetPlaylist, SongDetails: []SongDetail{{Title: "a"}}},
		}
		for _, p := range tests {
			if err := p.Validate(); err == nil {
				t.Errorf("expected error for %+v", p)
			}
		}
	})

	t.Run("WithSongs replaces arrays", func(t *testing.T) {
		songs := []string{"C - Three"}
		next := base.WithSongs(songs, nil)
		songs[0] = "mutated"

		if len(base.Songs) != 2 {
			t.Error("original songs changed")
		}
		if next.Songs[0] != "C - Three" {
			t.Error("expected WithSongs to copy its input")
		}
		if next.SongDetails == nil || !next.SongsLoaded {
			t.Errorf("expected empty details and loaded flag, got %+v", next)
		}
		if next.MarkStale().SongsLoaded {
			t.Error("expected MarkStale to clear loaded flag")
		}
	})

	t.Run("marker helpers copy", func(t *testing.T) {
		marked := base.WithMigrated("one|a").WithResolved("two|b")
		if base.MigratedKeys.Has("one|a") || base.ResolvedDiffKeys.Has("two|b") {
			t.Error("original marker sets changed")
		}
		if !marked.MigratedKeys.Has("one|a") || !marked.ResolvedDiffKeys.Has("two|b") {
			t.Error("expected markers on the copy")
		}
		cleared := marked.WithoutMigrated("one|a").WithoutResolved("two|b")
		if cleared.MigratedKeys.Len() != 0 || cleared.ResolvedDiffKeys.Len() != 0 {
			t.Error("expected markers cleared")
		}
	})

	t.Run("entry lookups", func(t *testing.T) {
		if base.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", base.Len())
		}
		if base.Key(1) != "two|b" {
			t.Errorf("unexpected key %q", base.Key(1))
		}
		if _, ok := base.Detail(1); ok {
			t.Error("expected no stored detail for index 1")
		}

		keys := base.PositionalKeys()
		idx, ok := base.IndexOf(keys[1])
		if !ok || idx != 1 {
			t.Errorf("expected index 1, got %d (%v)", idx, ok)
		}
		if _, ok := base.IndexOf("nope"); ok {
			t.Error("expected unknown key to be missing")
		}
	})
}

func TestMigrationRun(t *testing.T) {
	run := NewMigrationRun("src", "PL1", 3, 5, true)
	if run.Status != RunPending {
		t.Errorf("expected pending, got %s", run.Status)
	}
	if err := run.Validate(); err != nil {
		t.Fatalf("expected valid run, got %v", err)
	}

	result := MigrationResult{
		Migrated: []MigratedSong{{SourceKey: "a|"}, {SourceKey: ""}},
		Failed:   []FailedSong{{SourceKey: "b|", Error: "no match"}},
	}
	if keys := result.MigratedKeys(); len(keys) != 1 || keys[0] != "a|" {
		t.Errorf("unexpected migrated keys %v", keys)
	}

	run.Finish(run.CreatedAt(), RunPartial, result, 0, "no match")
	if !run.Status.Terminal() || run.Processed() != 3 {
		t.Errorf("unexpected run state %+v", run)
	}
	if f, ok := run.FirstFailure(); !ok || f.Error != "no match" {
		t.Errorf("unexpected first failure %+v", f)
	}

	bad := NewMigrationRun("src", "", 1, 5, false)
	if err := bad.Validate(); err == nil {
		t.Error("expected missing target to fail validation")
	}
	bad = NewMigrationRun("src", "PL1", 1, 0, false)
	if err := bad.Validate(); err == nil {
		t.Error("expected zero batch size to fail validation")
	}
}
