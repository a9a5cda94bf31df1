package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"podscribe/internal/deps"
	"podscribe/internal/ledger"
	"podscribe/internal/pipeline"
	"podscribe/internal/preflight"
)

// printRunSummary writes the closing report for a batch run. Failures get
// their own table so long error strings stay readable.
func printRunSummary(out io.Writer, summary *pipeline.Summary) {
	if summary == nil {
		return
	}
	fmt.Fprintf(out, "%s run finished in %s: %d processed, %d skipped, %d failed\n",
		formatStatusLabel(summary.Mode),
		summary.Duration.Round(time.Second),
		summary.Processed,
		summary.Skipped,
		summary.Failed,
	)
	if len(summary.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(summary.Failures))
	for _, failure := range summary.Failures {
		episode := strings.TrimSpace(failure.Episode)
		if episode == "" {
			episode = "-"
		}
		rows = append(rows, []string{
			failure.Podcast,
			episode,
			formatStatusLabel(failure.Stage),
			failure.Message,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Podcast", "Episode", "Stage", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

// buildLedgerStatusRows orders per-status counts by pipeline stage rather than
// alphabetically so the table reads as a progression.
func buildLedgerStatusRows(stats map[ledger.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range ledger.AllStatuses() {
		count := stats[status]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), fmt.Sprintf("%d", count)})
	}
	return rows
}

func buildRecentEpisodeRows(episodes []*ledger.Episode) [][]string {
	if len(episodes) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(episodes))
	for _, episode := range episodes {
		title := strings.TrimSpace(episode.Title)
		if title == "" {
			title = strings.TrimSpace(episode.Identifier)
		}
		if title == "" {
			title = "Unknown"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", episode.ID),
			episode.Podcast,
			title,
			formatStatusLabel(string(episode.Status)),
			formatDisplayTime(episode.UpdatedAt),
		})
	}
	return rows
}

func formatLastRun(run *ledger.Run) string {
	if run == nil {
		return "No runs recorded"
	}
	label := formatStatusLabel(run.Mode)
	if run.FinishedAt == nil {
		return fmt.Sprintf("%s run started %s (in progress or interrupted)", label, formatDisplayTime(run.StartedAt))
	}
	return fmt.Sprintf("%s run finished %s: %d processed, %d skipped, %d failed",
		label, formatDisplayTime(*run.FinishedAt), run.Processed, run.Skipped, run.Failed)
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusError,
			fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
