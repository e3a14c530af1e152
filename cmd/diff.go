package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

const watchDebounce = 300 * time.Millisecond

// Diff compares a source with a target and prints or exports the report.
//
// With --watch the source document is re-imported and the report redrawn
// after every change until interrupted.
func (r *Runner) Diff(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.open()
	if err != nil {
		return err
	}

	sourceID, targetID := cmd.String("source"), cmd.String("target")
	if cmd.Bool("refresh") {
		if _, err := svc.RefreshTarget(ctx, targetID); err != nil {
			return err
		}
	}

	output := cmd.String("output")
	if err := r.renderDiff(sourceID, targetID, format, output); err != nil {
		return err
	}

	path := cmd.String("watch")
	if path == "" {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("watching source document", "path", path)
	return shared.WatchFile(ctx, path, watchDebounce, r.logger, func() {
		if _, err := r.importFile(path); err != nil {
			r.logger.Error("failed to re-import source document", "path", path, "error", err)
			return
		}
		if err := r.renderDiff(sourceID, targetID, format, output); err != nil {
			r.logger.Error("failed to render diff", "error", err)
		}
	})
}

func (r *Runner) renderDiff(sourceID, targetID string, format formatter.Format, output string) error {
	svc, err := r.open()
	if err != nil {
		return err
	}
	report, err := svc.GetDiff(sourceID, targetID)
	if err != nil {
		return err
	}

	if output != "" {
		if output == "-" {
			output = ""
		}
		path, err := formatter.WriteDiffExport(report, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("diff exported", "path", path)
		r.writePlain("✓ %s\n", formatter.SummaryLine(report.Result.Summary))
		r.writePlain("Report written to %s\n", path)
		return nil
	}

	data, err := formatter.FormatDiff(report, format, r.styled && format == formatter.Text)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return err
	}
	return nil
}
