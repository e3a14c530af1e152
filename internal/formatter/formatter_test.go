package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	tu "github.com/desertthunder/ytmigrate/internal/testing"
)

func testReport(resolved ...models.SongKey) *tasks.DiffReport {
	source := models.Playlist{ID: "SRC", Name: "Road Trip", Kind: models.SourcePlaylist}.WithSongs(
		[]string{"Artist - A", "Artist - B", "Artist - C", " - "},
		[]models.SongDetail{{Title: "A", Artist: "Artist", Album: "First | Last"}},
	).WithMigrated(models.ComparisonKeyFromRaw("Artist - B")).WithResolved(resolved...)
	target := models.Playlist{ID: "PL1", Name: "Target", Kind: models.TargetPlaylist}.WithSongs(
		[]string{"Artist - B", "Artist - A", "Other - Z"}, nil,
	)

	result := tasks.ReconcilePlaylists(source, target)
	return &tasks.DiffReport{
		Source:  source,
		Target:  target,
		Result:  result,
		Visible: tasks.VisibleStatuses(result, source.ResolvedDiffKeys),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: Text},
		{in: "TEXT", want: Text},
		{in: "md", want: Markdown},
		{in: "markdown", want: Markdown},
		{in: " csv ", want: CSV},
		{in: "json", want: JSON},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected invalid flag error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestDiffExporters(t *testing.T) {
	t.Run("DiffToText", func(t *testing.T) {
		output := string(DiffToText(testReport(), false))

		for _, want := range []string{
			"Road Trip → Target",
			"0 matched, 2 shifted, 1 missing, 1 extra, 1 unkeyed",
			"  1. ↕ Artist - A  now at 2",
			"  2. ↕ Artist - B  now at 1  (migrated)",
			"  3. ✗ Artist - C  missing",
			"  4. · (untitled)  no title",
			"Only on target:",
			"  3. Other - Z",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("DiffToText Hides Resolved", func(t *testing.T) {
		output := string(DiffToText(testReport(models.ComparisonKeyFromRaw("Artist - C")), false))

		if strings.Contains(output, "Artist - C") {
			t.Errorf("resolved song should be hidden, got:\n%s", output)
		}
		if !strings.Contains(output, "1 resolved songs hidden") || !strings.Contains(output, "1 missing") {
			t.Errorf("expected hidden note and unchanged summary, got:\n%s", output)
		}
	})

	t.Run("DiffToMarkdown", func(t *testing.T) {
		output := string(DiffToMarkdown(testReport()))

		for _, want := range []string{
			"# Road Trip → Target",
			"**Summary**: 0 matched, 2 shifted",
			"| 1 | shifted | Artist - A | 2 |",
			"| 3 | missing | Artist - C | - |",
			"## Only on target",
			"3. Other - Z",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("DiffToCSV", func(t *testing.T) {
		data, err := DiffToCSV(testReport())
		if err != nil {
			t.Fatalf("DiffToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 6 {
			t.Fatalf("expected header, 4 songs and 1 extra, got %d rows", len(records))
		}
		if strings.Join(records[0], ",") != "Status,Index,Title,Artist,Album,Key,Target Index" {
			t.Errorf("unexpected headers: %v", records[0])
		}
		if strings.Join(records[1], ",") != "shifted,0,A,Artist,First | Last,a|artist,1" {
			t.Errorf("unexpected first row: %v", records[1])
		}
		if strings.Join(records[5], ",") != "extra,,Z,Other,,z|other,2" {
			t.Errorf("unexpected extra row: %v", records[5])
		}
	})

	t.Run("FormatDiff JSON", func(t *testing.T) {
		data, err := FormatDiff(testReport(), JSON, false)
		if err != nil {
			t.Fatalf("FormatDiff failed: %v", err)
		}

		var decoded struct {
			Result struct {
				Summary tasks.DiffSummary `json:"summary"`
			} `json:"result"`
			Visible []tasks.DiffStatus `json:"visible"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Result.Summary.Shifted != 2 || len(decoded.Visible) != 4 {
			t.Errorf("unexpected decoded report: %+v", decoded)
		}
	})

	t.Run("WriteDiffExport", func(t *testing.T) {
		dir := t.TempDir()
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, dir)
		defer tu.MustChdir(t, wd)

		path, err := WriteDiffExport(testReport(), Markdown, "")
		if err != nil {
			t.Fatalf("WriteDiffExport failed: %v", err)
		}
		if path != "diff_SRC_PL1.md" {
			t.Errorf("unexpected default path %q", path)
		}
		tu.AssertFileExists(t, filepath.Join(dir, path))
		if !strings.Contains(tu.MustReadFile(t, path), "## Only on target") {
			t.Error("exported file has unexpected content")
		}
	})
}

func TestMigrationSummary(t *testing.T) {
	report := &tasks.MigrationReport{
		TargetID: "PL1",
		MigrationResult: models.MigrationResult{
			Migrated: []models.MigratedSong{{Title: "A"}},
			Failed: []models.FailedSong{
				{Title: "B", Artist: "Artist", Error: "No matching song found on YouTube Music."},
				{Error: "Song title is required."},
			},
		},
		Batches:     2,
		Skipped:     3,
		Cancelled:   true,
		TargetStale: true,
	}

	output := MigrationSummary(report, false)
	for _, want := range []string{
		"1 migrated, 2 failed, 3 skipped: No matching song found on YouTube Music.",
		"2 batches sent to PL1",
		"Cancelled before all batches were sent",
		"Target could not be refreshed",
		"✗ Artist - B: No matching song found on YouTube Music.",
		"✗ (untitled): Song title is required.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q, got:\n%s", want, output)
		}
	}
}

func TestRunHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := string(RunHistory(nil)); got != "No migration runs recorded\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("runs", func(t *testing.T) {
		run := models.NewMigrationRun("", "PL1", 4, 5, false)
		run.SetCreatedAt(time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC))
		run.Finish(time.Now(), models.RunPartial, models.MigrationResult{
			Migrated: make([]models.MigratedSong, 3),
			Failed:   []models.FailedSong{{Error: "quota"}},
		}, 0, "")

		output := string(RunHistory([]*models.MigrationRun{run}))
		if !strings.Contains(output, "2025-03-01 12:30  partial    - → PL1  3/4 migrated, 1 failed, 0 skipped") {
			t.Errorf("unexpected history line:\n%s", output)
		}
		if !strings.Contains(output, "first failure: quota") {
			t.Errorf("missing first failure:\n%s", output)
		}
	})
}
