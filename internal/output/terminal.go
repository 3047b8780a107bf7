// Package output renders diagnostics to the terminal. JSON output is
// written by diagnostics.Sink.WriteJSON, not by this package.
//
// Terminal rendering uses fatih/color severity coloring (red for fatal,
// yellow for warning), adapted from the teacher's internal/output/terminal.go
// score-coloring idiom. Color auto-disables on non-TTY output and honors
// NO_COLOR via fatih/color's own detection, exactly as the teacher relies on
// it (no manual NO_COLOR check is added on top).
package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/cribo-bundler/cribo/internal/diagnostics"
)

// WriteDiagnostics renders a diagnostic sink's items to w, one per line,
// severity-colored, in the order the sink recorded them (unlike
// diagnostics.Sink.WriteJSON, which sorts by stage, module and line).
func WriteDiagnostics(w io.Writer, sink *diagnostics.Sink) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for _, d := range sink.Items() {
		sevColor := yellow
		if d.Severity == diagnostics.SeverityFatal {
			sevColor = red
		}

		loc := d.File
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Col)
		}

		sevColor.Fprintf(w, "[%s]", d.SevName)
		fmt.Fprint(w, " ")
		bold.Fprintf(w, "%s", d.Stage)
		if loc != "" {
			fmt.Fprintf(w, " %s", loc)
		}
		fmt.Fprintf(w, ": %s\n", d.Message)
	}
}

// Summary writes a one-line count of warnings and errors, matching the
// compact pass/fail summary line idiom the teacher prints after its detailed
// terminal report.
func Summary(w io.Writer, sink *diagnostics.Sink) {
	var warnings, fatals int
	for _, d := range sink.Items() {
		if d.Severity == diagnostics.SeverityFatal {
			fatals++
		} else {
			warnings++
		}
	}

	bold := color.New(color.Bold)
	if fatals > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(w, "%d error(s)", fatals)
		fmt.Fprint(w, ", ")
	}
	bold.Fprintf(w, "%d warning(s)\n", warnings)
}
