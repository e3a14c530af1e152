package tasks

import (
	"github.com/desertthunder/ytmigrate/internal/models"
)

// DiffKind classifies one source index against the target.
type DiffKind string

const (
	DiffMatched DiffKind = "matched" // found at the same index
	DiffShifted DiffKind = "shifted" // found at another index
	DiffMissing DiffKind = "missing" // not found in the target
	DiffUnkeyed DiffKind = "unkeyed" // no title, cannot be matched
)

// DiffStatus is the classification of one source index. ActualIndex is -1
// unless the song was found in the target.
type DiffStatus struct {
	Kind          DiffKind       `json:"kind"`
	Key           models.SongKey `json:"key"`
	ExpectedIndex int            `json:"expectedIndex"`
	ActualIndex   int            `json:"actualIndex"`
}

// DiffSummary counts statuses by kind. Extras counts unmatched keyed target indices.
type DiffSummary struct {
	Matched int `json:"matched"`
	Missing int `json:"missing"`
	Shifted int `json:"shifted"`
	Extras  int `json:"extras"`
	Unkeyed int `json:"unkeyed"`
}

// DiffResult is the output of [Reconcile].
//
// Every keyed target index is either consumed by exactly one source status or
// listed in ExtraTargetIndices. Target indices without a key are listed in
// UnkeyedTargetIndices instead.
type DiffResult struct {
	Statuses             []DiffStatus `json:"statuses"`
	ExtraTargetIndices   []int        `json:"extraTargetIndices"`
	UnkeyedTargetIndices []int        `json:"unkeyedTargetIndices"`
	Summary              DiffSummary  `json:"summary"`
}

// Reconcile aligns a source song list with a target song list by comparison key.
//
// Each source index, walked in order, claims the earliest unclaimed target index
// sharing its key. The claim is greedy FIFO per key, not an optimal assignment;
// summary counts for duplicate-heavy playlists depend on it.
// Reconcile is pure and runs in O(n+m).
func Reconcile(sourceSongs []string, sourceDetails []models.SongDetail, targetSongs []string, targetDetails []models.SongDetail) DiffResult {
	targetLen := models.EntryCount(targetSongs, targetDetails)
	sourceLen := models.EntryCount(sourceSongs, sourceDetails)

	queues := make(map[models.SongKey][]int)
	targetKeys := make([]models.SongKey, targetLen)
	var unkeyedTargets []int
	for i := range targetLen {
		key := models.EntryKey(targetSongs, targetDetails, i)
		targetKeys[i] = key
		if !key.Valid() {
			unkeyedTargets = append(unkeyedTargets, i)
			continue
		}
		queues[key] = append(queues[key], i)
	}

	result := DiffResult{
		Statuses:             make([]DiffStatus, sourceLen),
		ExtraTargetIndices:   []int{},
		UnkeyedTargetIndices: unkeyedTargets,
	}
	if result.UnkeyedTargetIndices == nil {
		result.UnkeyedTargetIndices = []int{}
	}

	consumed := make([]bool, targetLen)
	for i := range sourceLen {
		key := models.EntryKey(sourceSongs, sourceDetails, i)
		status := DiffStatus{Key: key, ExpectedIndex: i, ActualIndex: -1}

		switch queue := queues[key]; {
		case !key.Valid():
			status.Kind = DiffUnkeyed
			result.Summary.Unkeyed++
		case len(queue) == 0:
			status.Kind = DiffMissing
			result.Summary.Missing++
		default:
			actual := queue[0]
			queues[key] = queue[1:]
			consumed[actual] = true
			status.ActualIndex = actual
			if actual == i {
				status.Kind = DiffMatched
				result.Summary.Matched++
			} else {
				status.Kind = DiffShifted
				result.Summary.Shifted++
			}
		}
		result.Statuses[i] = status
	}

	for i, used := range consumed {
		if !used && targetKeys[i].Valid() {
			result.ExtraTargetIndices = append(result.ExtraTargetIndices, i)
		}
	}
	result.Summary.Extras = len(result.ExtraTargetIndices)

	return result
}

// ReconcilePlaylists runs [Reconcile] over two stored playlists.
func ReconcilePlaylists(source, target models.Playlist) DiffResult {
	return Reconcile(source.Songs, source.SongDetails, target.Songs, target.SongDetails)
}

// VisibleStatuses drops statuses whose key the user marked as resolved.
// The result's summary is left untouched.
func VisibleStatuses(result DiffResult, resolved models.KeySet) []DiffStatus {
	visible := make([]DiffStatus, 0, len(result.Statuses))
	for _, s := range result.Statuses {
		if s.Key.Valid() && resolved.Has(s.Key) {
			continue
		}
		visible = append(visible, s)
	}
	return visible
}

// PendingIndices lists the source indices that still need attention: missing
// songs and, when includeShifted is set, shifted ones. Resolved keys are skipped.
func PendingIndices(result DiffResult, resolved models.KeySet, includeShifted bool) []int {
	var out []int
	for _, s := range VisibleStatuses(result, resolved) {
		if s.Kind == DiffMissing || (includeShifted && s.Kind == DiffShifted) {
			out = append(out, s.ExpectedIndex)
		}
	}
	return out
}
