package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cribo-bundler/cribo/internal/diagnostics"
)

func TestWriteDiagnosticsIncludesMessage(t *testing.T) {
	sink := diagnostics.NewSink(false)
	sink.Warn(diagnostics.StageResolve, "pkg.mod", "pkg/mod.py", 3, 1, "unused import")

	var buf bytes.Buffer
	WriteDiagnostics(&buf, sink)

	out := buf.String()
	if !strings.Contains(out, "unused import") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "pkg/mod.py:3:1") {
		t.Fatalf("expected location in output, got %q", out)
	}
}

func TestSummaryCountsWarningsAndFatals(t *testing.T) {
	sink := diagnostics.NewSink(false)
	sink.Warn(diagnostics.StageResolve, "a", "a.py", 1, 1, "warn one")
	sink.Fatal(diagnostics.StageResolve, "b", "b.py", 2, 1, "fatal one")

	var buf bytes.Buffer
	Summary(&buf, sink)

	out := buf.String()
	if !strings.Contains(out, "1 error(s)") {
		t.Fatalf("expected 1 error(s) in summary, got %q", out)
	}
	if !strings.Contains(out, "1 warning(s)") {
		t.Fatalf("expected 1 warning(s) in summary, got %q", out)
	}
}
