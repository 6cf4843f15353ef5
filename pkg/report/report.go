// Package report renders the aggregate outcome of a probing run as a
// plain text artifact next to the per-session logs.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/projectdiscovery/fleetping/pkg/probe"
	"github.com/projectdiscovery/utils/conversion"
)

const (
	// tailLines caps how much session output the report inlines; the
	// full history lives in the session log.
	tailLines = 50

	timeLayout = "2006-01-02 15:04:05"
)

var (
	rule    = strings.Repeat("=", 80)
	subRule = strings.Repeat("-", 80)
)

// Write renders rep into path.
func Write(rep *probe.Report, path string) error {
	return os.WriteFile(path, conversion.Bytes(Render(rep)), 0o644)
}

// Render produces the full text report: run header, loss summary, and
// a detail block per session in launch order.
func Render(rep *probe.Report) string {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Fleet Ping Test Report")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Run ID: %s\n", rep.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", rep.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Servers tested: %d\n", rep.Servers)
	fmt.Fprintf(&b, "Probe tasks: %d\n", rep.TasksTotal)
	fmt.Fprintf(&b, "Sessions connected: %d\n", len(rep.Results))
	fmt.Fprintln(&b)

	writeSummary(&b, rep)

	if rep.WithLoss() > 0 {
		writeLossSummary(&b, rep)
	}

	writeDetails(&b, rep)

	return b.String()
}

func writeSummary(b *strings.Builder, rep *probe.Report) {
	total := len(rep.Results)
	withLoss := rep.WithLoss()
	withoutLoss := rep.WithoutLoss()

	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, "Summary")
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "Total sessions: %d\n", total)
	fmt.Fprintf(b, "Sessions without loss: %d (%.2f%%)\n", withoutLoss, pct(withoutLoss, total))
	fmt.Fprintf(b, "Sessions with loss: %d (%.2f%%)\n", withLoss, pct(withLoss, total))
	fmt.Fprintln(b)
}

func writeLossSummary(b *strings.Builder, rep *probe.Report) {
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, "Packet Loss Summary")
	fmt.Fprintln(b, rule)

	for _, result := range rep.Results {
		if !result.HasLoss() {
			continue
		}
		fmt.Fprintln(b)
		fmt.Fprintf(b, "Server: %s (%s)\n", result.ServerAddress, result.Hostname)
		fmt.Fprintf(b, "Target: %s\n", result.Target)
		fmt.Fprintf(b, "Probes: %d total, %d lost (%.2f%% loss)\n", result.TotalProbes(), result.LostProbes(), result.LossRate())
		if d, ok := result.Duration(); ok {
			fmt.Fprintf(b, "Duration: %s\n", d.Round(time.Second))
		} else {
			fmt.Fprintln(b, "Duration: not finished")
		}
		fmt.Fprintln(b)
		fmt.Fprintln(b, "Loss lines:")
		for _, line := range result.LossLines() {
			fmt.Fprintf(b, "  %s\n", line)
		}
		fmt.Fprintln(b)
		fmt.Fprintln(b, subRule)
	}
	fmt.Fprintln(b)
}

func writeDetails(b *strings.Builder, rep *probe.Report) {
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, "Session Details")
	fmt.Fprintln(b, rule)

	for i, result := range rep.Results {
		fmt.Fprintln(b)
		fmt.Fprintf(b, "[%d/%d] %s (%s) -> %s\n", i+1, len(rep.Results), result.ServerAddress, result.Hostname, result.Target)
		fmt.Fprintf(b, "Started: %s\n", result.StartTime.Format(timeLayout))
		if end, ok := result.EndTime(); ok {
			fmt.Fprintf(b, "Ended: %s\n", end.Format(timeLayout))
		} else {
			fmt.Fprintln(b, "Ended: not finished")
		}
		if d, ok := result.Duration(); ok {
			fmt.Fprintf(b, "Duration: %s\n", d.Round(time.Second))
		} else {
			fmt.Fprintln(b, "Duration: not finished")
		}
		fmt.Fprintf(b, "Probes: %d total, %d lost (%.2f%% loss)\n", result.TotalProbes(), result.LostProbes(), result.LossRate())
		if result.HasLoss() {
			fmt.Fprintf(b, "⚠ packet loss detected: %d/%d probes (%.2f%%)\n", result.LostProbes(), result.TotalProbes(), result.LossRate())
		}
		if path := result.LogPath(); path != "" {
			fmt.Fprintf(b, "Session log: %s\n", path)
		}
		fmt.Fprintln(b)

		lines := result.OutputLines()
		fmt.Fprintf(b, "Output (last %d lines):\n", tailLines)
		fmt.Fprintln(b, subRule)
		if len(lines) == 0 {
			fmt.Fprintln(b, "  (no output recorded)")
		} else {
			if len(lines) > tailLines {
				fmt.Fprintf(b, "  (%d earlier lines omitted, full output in the session log)\n", len(lines)-tailLines)
				lines = lines[len(lines)-tailLines:]
			}
			for _, line := range lines {
				fmt.Fprintf(b, "  %s\n", line)
			}
		}
		fmt.Fprintln(b, subRule)
	}
}

// pct guards against empty runs: a report over zero sessions renders
// 0.00% instead of NaN.
func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
