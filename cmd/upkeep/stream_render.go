package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"upkeep/internal/ipc"
	"upkeep/internal/jobqueue"
	"upkeep/internal/stream"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiDim    = "\x1b[2m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, text string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

// renderEvent writes one stream event as a human-readable line. Output
// lines from the maintenance script are indented under their operation.
func renderEvent(out io.Writer, ev ipc.Event, colorize bool) {
	switch ev.Type {
	case stream.EventRunStart:
		fmt.Fprintln(out, paint(ansiBlue, fmt.Sprintf("Starting maintenance run (%d operations)", ev.Total), colorize))
	case stream.EventOperationStart:
		fmt.Fprintln(out, paint(ansiBlue, fmt.Sprintf("[%d/%d] %s", ev.Position, ev.Total, ev.OperationID), colorize))
	case stream.EventOutputLine:
		color := ansiDim
		if ev.Stream == jobqueue.StreamStderr {
			color = ansiYellow
		}
		fmt.Fprintln(out, paint(color, "  "+ev.Text, colorize))
	case stream.EventOperationComplete:
		if ev.Success {
			fmt.Fprintln(out, paint(ansiGreen, fmt.Sprintf("  %s: ok", ev.OperationID), colorize))
		} else {
			detail := fmt.Sprintf("  %s: failed (exit %d)", ev.OperationID, ev.ExitStatus)
			if ev.Message != "" {
				detail += " " + ev.Message
			}
			fmt.Fprintln(out, paint(ansiRed, detail, colorize))
		}
	case stream.EventOperationSkipped:
		fmt.Fprintln(out, paint(ansiYellow, fmt.Sprintf("  %s: skipped", ev.OperationID), colorize))
	case stream.EventWorkerStalled:
		fmt.Fprintln(out, paint(ansiYellow, "  worker appears stalled; still waiting", colorize))
	case stream.EventRunSummary:
		if ev.Summary != nil {
			fmt.Fprintln(out, renderSummary(*ev.Summary, colorize))
		}
	case stream.EventRunComplete:
		fmt.Fprintln(out, paint(ansiBlue, "Run complete", colorize))
	case stream.EventSuperseded:
		fmt.Fprintln(out, paint(ansiYellow, "Run superseded by a newer run", colorize))
	}
}

func renderSummary(summary stream.Summary, colorize bool) string {
	line := fmt.Sprintf("Summary: %d succeeded, %d failed, %d skipped",
		summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.Incomplete > 0 {
		line += fmt.Sprintf(", %d incomplete", summary.Incomplete)
	}
	color := ansiGreen
	if summary.Failed > 0 || summary.Incomplete > 0 {
		color = ansiRed
	}
	return paint(color, line, colorize)
}
