// package formatter renders diff reports, migration summaries and run history as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

// Format is an output format for diff reports.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts a format name in any case. md is an alias for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", Text:
		return Text, nil
	case "md", Markdown:
		return Markdown, nil
	case CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: format must be text, markdown, csv or json, got %q", shared.ErrInvalidFlag, s)
	}
}

// FormatDiff renders report in format f. Styling only applies to [Text].
func FormatDiff(report *tasks.DiffReport, f Format, styled bool) ([]byte, error) {
	switch f {
	case Text:
		return DiffToText(report, styled), nil
	case Markdown:
		return DiffToMarkdown(report), nil
	case CSV:
		return DiffToCSV(report)
	case JSON:
		return ToJSON(report)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// SummaryLine describes the counts of a diff in one line.
func SummaryLine(s tasks.DiffSummary) string {
	return fmt.Sprintf("%d matched, %d shifted, %d missing, %d extra, %d unkeyed",
		s.Matched, s.Shifted, s.Missing, s.Extras, s.Unkeyed)
}

func song(p models.Playlist, i int) string {
	if s := models.Display(p.Entry(i)); s != "" {
		return s
	}
	return "(untitled)"
}

func statusNote(st tasks.DiffStatus) string {
	switch st.Kind {
	case tasks.DiffShifted:
		return fmt.Sprintf("now at %d", st.ActualIndex+1)
	case tasks.DiffMissing:
		return "missing"
	case tasks.DiffUnkeyed:
		return "no title"
	default:
		return ""
	}
}

// DiffToText renders the visible statuses and extras of report.
func DiffToText(report *tasks.DiffReport, styled bool) []byte {
	var buf bytes.Buffer

	header := fmt.Sprintf("%s → %s", report.Source.Name, report.Target.Name)
	buf.WriteString(paint(styled, styles.title, header) + "\n")
	buf.WriteString(SummaryLine(report.Result.Summary) + "\n")
	if hidden := len(report.Result.Statuses) - len(report.Visible); hidden > 0 {
		buf.WriteString(paint(styled, styles.help, fmt.Sprintf("%d resolved songs hidden", hidden)) + "\n")
	}
	buf.WriteString("\n")

	for _, st := range report.Visible {
		style, marker := styles.kind(st.Kind)
		line := fmt.Sprintf("%3d. %s %s", st.ExpectedIndex+1, paint(styled, style, marker), song(report.Source, st.ExpectedIndex))
		if note := statusNote(st); note != "" {
			line += "  " + paint(styled, style, note)
		}
		if report.Source.MigratedKeys.Has(st.Key) {
			line += "  " + paint(styled, styles.help, "(migrated)")
		}
		buf.WriteString(line + "\n")
	}

	if len(report.Result.ExtraTargetIndices) > 0 {
		buf.WriteString("\n" + paint(styled, styles.warn, "Only on target:") + "\n")
		for _, i := range report.Result.ExtraTargetIndices {
			fmt.Fprintf(&buf, "%3d. %s\n", i+1, song(report.Target, i))
		}
	}
	return buf.Bytes()
}

// DiffToMarkdown renders report as a Markdown table.
func DiffToMarkdown(report *tasks.DiffReport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s → %s\n\n", report.Source.Name, report.Target.Name)
	fmt.Fprintf(&buf, "**Summary**: %s\n\n", SummaryLine(report.Result.Summary))

	buf.WriteString("| # | Status | Song | Target position |\n")
	buf.WriteString("|---|--------|------|-----------------|\n")
	for _, st := range report.Visible {
		pos := "-"
		if st.ActualIndex >= 0 {
			pos = strconv.Itoa(st.ActualIndex + 1)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s |\n", st.ExpectedIndex+1, st.Kind, escapeCell(song(report.Source, st.ExpectedIndex)), pos)
	}

	if len(report.Result.ExtraTargetIndices) > 0 {
		buf.WriteString("\n## Only on target\n\n")
		for _, i := range report.Result.ExtraTargetIndices {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, song(report.Target, i))
		}
	}
	return buf.Bytes()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// DiffToCSV converts report to CSV with columns: Status, Index, Title, Artist, Album, Key, Target Index.
//
// Extras follow the source rows with an empty Index.
func DiffToCSV(report *tasks.DiffReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Status", "Index", "Title", "Artist", "Album", "Key", "Target Index"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, st := range report.Visible {
		entry := report.Source.Entry(st.ExpectedIndex)
		actual := ""
		if st.ActualIndex >= 0 {
			actual = strconv.Itoa(st.ActualIndex)
		}
		record := []string{string(st.Kind), strconv.Itoa(st.ExpectedIndex), entry.Title, entry.Artist, entry.Album, string(st.Key), actual}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	for _, i := range report.Result.ExtraTargetIndices {
		entry := report.Target.Entry(i)
		record := []string{"extra", "", entry.Title, entry.Artist, entry.Album, string(report.Target.Key(i)), strconv.Itoa(i)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJSON renders v as indented JSON.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// MigrationSummary renders the outcome of a run followed by each failed song.
func MigrationSummary(report *tasks.MigrationReport, styled bool) string {
	var b strings.Builder

	style := styles.ok
	switch report.Outcome() {
	case tasks.OutcomePartial:
		style = styles.warn
	case tasks.OutcomeFailed:
		style = styles.err
	case tasks.OutcomeNoop:
		style = styles.help
	}
	b.WriteString(paint(styled, style, report.Summary()) + "\n")

	if report.Batches > 0 {
		fmt.Fprintf(&b, "%d batches sent to %s\n", report.Batches, report.TargetID)
	}
	if report.Cancelled {
		b.WriteString(paint(styled, styles.warn, "Cancelled before all batches were sent") + "\n")
	}
	if report.TargetStale {
		b.WriteString(paint(styled, styles.warn, "Target could not be refreshed; reload it before the next diff") + "\n")
	}

	for _, f := range report.Failed {
		name := models.Display(models.SongDetail{Title: f.Title, Artist: f.Artist})
		if name == "" {
			name = "(untitled)"
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", paint(styled, styles.err, "✗"), name, f.Error)
	}
	return b.String()
}

// RunHistory lists runs one per line, newest first as given.
func RunHistory(runs []*models.MigrationRun) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("No migration runs recorded\n")
		return buf.Bytes()
	}

	for _, run := range runs {
		source := run.SourcePlaylistID
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(&buf, "%s  %-9s  %s → %s  %d/%d migrated, %d failed, %d skipped\n",
			run.CreatedAt().Format("2006-01-02 15:04"),
			run.Status,
			source,
			run.TargetPlaylistID,
			run.ItemsMigrated,
			run.ItemsTotal,
			run.ItemsFailed,
			run.ItemsSkipped,
		)
		if f, ok := run.FirstFailure(); ok {
			fmt.Fprintf(&buf, "    first failure: %s\n", f.Error)
		}
	}
	return buf.Bytes()
}

// WriteDiffExport writes report to path in format f.
//
// Defaults to diff_{source}_{target}.{ext} as the filename.
func WriteDiffExport(report *tasks.DiffReport, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("diff_%s_%s.%s", report.Source.ID, report.Target.ID, extension(f))
	}

	data, err := FormatDiff(report, f, false)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write diff file: %w", err)
	}
	return path, nil
}

func extension(f Format) string {
	switch f {
	case Markdown:
		return "md"
	case CSV:
		return "csv"
	case JSON:
		return "json"
	default:
		return "txt"
	}
}
