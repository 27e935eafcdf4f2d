package deepfakeinspector

import (
	"fmt"
	"strings"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/storage"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	NoAnomaliesMessage = "No visual anomalies detected."
	NoIssuesMessage    = "No audio issues detected."
	CacheHitMessage    = "Video loaded from cache; download skipped."
)

// RenderText formats a report for the terminal. Either half may be missing,
// in which case its error is shown in its place.
func RenderText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Source: %s\n", report.Source)
	if report.Key != "" {
		fmt.Fprintf(&b, "Cached at: %s\n", report.LocalPath)
	}
	if report.CacheHit {
		fmt.Fprintf(&b, "%s\n", CacheHitMessage)
	}
	if m := report.Metadata; m != nil {
		fmt.Fprintf(&b, "Title: %s (%s, %s)\n", m.Title, m.ChannelTitle, formatSeconds(m.DurationSeconds))
	}
	b.WriteString("\n")

	b.WriteString(renderTable(
		[]string{"Check", "Score", "Verdict"},
		[][]string{visualRow(report), audioRow(report)},
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignLeft},
	))
	b.WriteString("\n\n")

	b.WriteString("Visual anomalies:\n")
	switch {
	case report.Visual == nil:
		fmt.Fprintf(&b, "  Visual analysis failed: %s\n", report.VisualError)
	case len(report.Visual.Anomalies) == 0:
		fmt.Fprintf(&b, "  %s\n", NoAnomaliesMessage)
	default:
		rows := make([][]string, 0, len(report.Visual.Anomalies))
		for _, a := range report.Visual.Anomalies {
			rows = append(rows, []string{a.Time, a.Desc})
		}
		b.WriteString(renderTable([]string{"Time", "Description"}, rows, nil))
		b.WriteString("\n")
	}

	b.WriteString("\nAudio analysis:\n")
	if report.Audio == nil {
		fmt.Fprintf(&b, "  Audio analysis failed: %s\n", report.AudioError)
		return b.String()
	}
	fmt.Fprintf(&b, "  %s\n", report.Audio.AcousticAnalysis)
	if len(report.Audio.DetectedIssues) == 0 {
		fmt.Fprintf(&b, "  %s\n", NoIssuesMessage)
	}
	for _, issue := range report.Audio.DetectedIssues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}

	return b.String()
}

// RenderCacheTable lists cached media, one row per entry.
func RenderCacheTable(entries []storage.CacheEntry) string {
	if len(entries) == 0 {
		return "Cache is empty"
	}

	rows := make([][]string, 0, len(entries))
	var total int64
	for _, e := range entries {
		rows = append(rows, []string{e.Key, humanBytes(e.SizeBytes), e.ModifiedAt.Format("2006-01-02 15:04")})
		total += e.SizeBytes
	}
	out := renderTable(
		[]string{"Key", "Size", "Cached"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignLeft},
	)
	return fmt.Sprintf("%s\n%d entries, %s total", out, len(entries), humanBytes(total))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func visualRow(report *models.Report) []string {
	if report.Visual == nil {
		return []string{"Visual", "-", "error"}
	}
	return []string{"Visual", scoreLabel(report.Visual.Score), string(report.Visual.Verdict)}
}

func audioRow(report *models.Report) []string {
	if report.Audio == nil {
		return []string{"Audio", "-", "error"}
	}
	return []string{"Audio", scoreLabel(report.Audio.Score), string(report.Audio.Verdict)}
}

func scoreLabel(score int) string {
	label := fmt.Sprintf("%d/100", score)
	if models.Trusted(score) {
		label += " ✓"
	}
	return label
}

func formatSeconds(total int) string {
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(aligns))
	for i, align := range aligns {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
