package tasks

import (
	"slices"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
)

func kinds(statuses []DiffStatus) []DiffKind {
	out := make([]DiffKind, len(statuses))
	for i, s := range statuses {
		out[i] = s.Kind
	}
	return out
}

func actuals(statuses []DiffStatus) []int {
	out := make([]int, len(statuses))
	for i, s := range statuses {
		out[i] = s.ActualIndex
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		source  []string
		target  []string
		kinds   []DiffKind
		actual  []int
		extras  []int
		summary DiffSummary
	}{
		{
			name:    "identical lists",
			source:  []string{"X - A", "Y - B", "Z - C"},
			target:  []string{"X - A", "Y - B", "Z - C"},
			kinds:   []DiffKind{DiffMatched, DiffMatched, DiffMatched},
			actual:  []int{0, 1, 2},
			extras:  []int{},
			summary: DiffSummary{Matched: 3},
		},
		{
			name:    "pure reorder",
			source:  []string{"A", "B", "C"},
			target:  []string{"B", "A", "C"},
			kinds:   []DiffKind{DiffShifted, DiffShifted, DiffMatched},
			actual:  []int{1, 0, 2},
			extras:  []int{},
			summary: DiffSummary{Matched: 1, Shifted: 2},
		},
		{
			name:    "missing then duplicate",
			source:  []string{"A", "A", "B"},
			target:  []string{"A", "B"},
			kinds:   []DiffKind{DiffMatched, DiffMissing, DiffShifted},
			actual:  []int{0, -1, 1},
			extras:  []int{},
			summary: DiffSummary{Matched: 1, Missing: 1, Shifted: 1},
		},
		{
			name:    "extras",
			source:  []string{"A"},
			target:  []string{"A", "Z"},
			kinds:   []DiffKind{DiffMatched},
			actual:  []int{0},
			extras:  []int{1},
			summary: DiffSummary{Matched: 1, Extras: 1},
		},
		{
			name:    "duplicates claim earliest target first",
			source:  []string{"A", "B", "A"},
			target:  []string{"A", "A", "B"},
			kinds:   []DiffKind{DiffMatched, DiffShifted, DiffShifted},
			actual:  []int{0, 2, 1},
			extras:  []int{},
			summary: DiffSummary{Matched: 1, Shifted: 2},
		},
		{
			name:    "empty source",
			source:  nil,
			target:  []string{"A", "B"},
			kinds:   []DiffKind{},
			actual:  []int{},
			extras:  []int{0, 1},
			summary: DiffSummary{Extras: 2},
		},
		{
			name:    "empty target",
			source:  []string{"A", " - ", "B"},
			target:  nil,
			kinds:   []DiffKind{DiffMissing, DiffUnkeyed, DiffMissing},
			actual:  []int{-1, -1, -1},
			extras:  []int{},
			summary: DiffSummary{Missing: 2, Unkeyed: 1},
		},
		{
			name:    "case and whitespace insensitive",
			source:  []string{"THE  band - Song"},
			target:  []string{"the band - song"},
			kinds:   []DiffKind{DiffMatched},
			actual:  []int{0},
			extras:  []int{},
			summary: DiffSummary{Matched: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.source, nil, tt.target, nil)

			if k := kinds(got.Statuses); !slices.Equal(k, tt.kinds) {
				t.Errorf("kinds = %v, want %v", k, tt.kinds)
			}
			if a := actuals(got.Statuses); !slices.Equal(a, tt.actual) {
				t.Errorf("actual indices = %v, want %v", a, tt.actual)
			}
			if !slices.Equal(got.ExtraTargetIndices, tt.extras) {
				t.Errorf("extras = %v, want %v", got.ExtraTargetIndices, tt.extras)
			}
			if got.Summary != tt.summary {
				t.Errorf("summary = %+v, want %+v", got.Summary, tt.summary)
			}
			for i, s := range got.Statuses {
				if s.ExpectedIndex != i {
					t.Errorf("status %d has expected index %d", i, s.ExpectedIndex)
				}
			}
		})
	}

	t.Run("Unkeyed Target Is Never Extra", func(t *testing.T) {
		got := Reconcile([]string{"A"}, nil, []string{"A", "Artist - "}, nil)

		if len(got.ExtraTargetIndices) != 0 {
			t.Errorf("expected no extras, got %v", got.ExtraTargetIndices)
		}
		if !slices.Equal(got.UnkeyedTargetIndices, []int{1}) {
			t.Errorf("expected unkeyed target 1, got %v", got.UnkeyedTargetIndices)
		}
	})

	t.Run("Details Win Over Raw Strings", func(t *testing.T) {
		source := []string{"garbled"}
		details := []models.SongDetail{{Title: "A", Artist: "X", Album: "Deluxe"}}
		target := []string{"X - A"}

		got := Reconcile(source, details, target, []models.SongDetail{{Title: "A", Artist: "X", Album: "Single"}})
		if got.Statuses[0].Kind != DiffMatched {
			t.Errorf("expected detail key to match regardless of album, got %s", got.Statuses[0].Kind)
		}
	})

	t.Run("Completeness", func(t *testing.T) {
		source := []string{"A", "B", "A", "C", "", "D", "B"}
		target := []string{"B", "A", "E", "B", "", "A", "A"}

		got := Reconcile(source, nil, target, nil)
		if len(got.Statuses) != len(source) {
			t.Fatalf("expected %d statuses, got %d", len(source), len(got.Statuses))
		}

		seen := make(map[int]int)
		for _, s := range got.Statuses {
			if s.ActualIndex >= 0 {
				seen[s.ActualIndex]++
			}
		}
		for _, i := range got.ExtraTargetIndices {
			seen[i]++
		}
		for _, i := range got.UnkeyedTargetIndices {
			seen[i]++
		}
		for i := range target {
			if seen[i] != 1 {
				t.Errorf("target index %d accounted for %d times", i, seen[i])
			}
		}
	})

	t.Run("Does Not Modify Inputs", func(t *testing.T) {
		source := []string{"B", "A"}
		target := []string{"A", "B"}
		Reconcile(source, nil, target, nil)

		if !slices.Equal(source, []string{"B", "A"}) || !slices.Equal(target, []string{"A", "B"}) {
			t.Error("inputs were modified")
		}
	})
}

func TestVisibleStatuses(t *testing.T) {
	result := Reconcile([]string{"A", "B", "C"}, nil, []string{"A"}, nil)
	resolved := models.NewKeySet(models.ComparisonKeyFromRaw("B"))

	visible := VisibleStatuses(result, resolved)
	if len(visible) != 2 || visible[1].ExpectedIndex != 2 {
		t.Errorf("expected B to be hidden, got %+v", visible)
	}
	if result.Summary.Missing != 2 {
		t.Errorf("summary must not change, got %+v", result.Summary)
	}

	if got := PendingIndices(result, resolved, false); !slices.Equal(got, []int{2}) {
		t.Errorf("pending = %v, want [2]", got)
	}
}
