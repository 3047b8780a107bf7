// Package diagnostics accumulates and renders the warnings and errors a
// bundling run produces, per the taxonomy in spec.md §7: configuration,
// resolution, parse, semantics, unsupported-dynamism, and internal-invariant
// findings. Fatal findings abort the run; warnings accumulate and are
// reported at the end unless --strict promotes them to errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "error"
	}
	return "warning"
}

// Stage names the pipeline stage that produced a Diagnostic, matching
// spec.md §2's stage table.
type Stage string

const (
	StageConfig     Stage = "config"
	StageClassify   Stage = "classify"
	StageResolve    Stage = "resolve"
	StageParse      Stage = "parse"
	StageGraph      Stage = "graph"
	StageSemantics  Stage = "semantics"
	StageRename     Stage = "rename"
	StageEmit       Stage = "emit"
	StageInvariant  Stage = "invariant"
)

// Diagnostic is one accumulated finding.
type Diagnostic struct {
	ID       string   `json:"id"`
	Severity Severity `json:"-"`
	SevName  string   `json:"severity"`
	Stage    Stage    `json:"stage"`
	Module   string   `json:"module,omitempty"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Col      int      `json:"col,omitempty"`
	Message  string   `json:"message"`
}

// Sink accumulates diagnostics during a bundling run. Not safe for
// concurrent use by multiple goroutines without external synchronization;
// callers that parse files concurrently (see internal/bundle) must guard
// access to a shared Sink with a mutex.
type Sink struct {
	strict bool
	items  []Diagnostic
}

// NewSink creates a diagnostics Sink. When strict is true, Warn findings are
// promoted to fatal by HasFatal/Err.
func NewSink(strict bool) *Sink {
	return &Sink{strict: strict}
}

// Warn records a non-fatal finding.
func (s *Sink) Warn(stage Stage, module, file string, line, col int, format string, args ...any) {
	s.add(SeverityWarning, stage, module, file, line, col, format, args...)
}

// Fatal records a fatal finding. Fatal findings always abort the run.
func (s *Sink) Fatal(stage Stage, module, file string, line, col int, format string, args ...any) {
	s.add(SeverityFatal, stage, module, file, line, col, format, args...)
}

func (s *Sink) add(sev Severity, stage Stage, module, file string, line, col int, format string, args ...any) {
	d := Diagnostic{
		ID:       uuid.NewString(),
		Severity: sev,
		SevName:  sev.String(),
		Stage:    stage,
		Module:   module,
		File:     file,
		Line:     line,
		Col:      col,
		Message:  fmt.Sprintf(format, args...),
	}
	s.items = append(s.items, d)
}

// HasFatal reports whether any recorded diagnostic is fatal, or (in strict
// mode) whether any diagnostic at all was recorded.
func (s *Sink) HasFatal() bool {
	for _, d := range s.items {
		if d.Severity == SeverityFatal {
			return true
		}
	}
	return s.strict && len(s.items) > 0
}

// Items returns the accumulated diagnostics in recorded order.
func (s *Sink) Items() []Diagnostic {
	return s.items
}

// Err returns a single error summarizing all fatal (or, in strict mode, all)
// diagnostics, or nil if none qualify.
func (s *Sink) Err() error {
	if !s.HasFatal() {
		return nil
	}
	var firstMsg string
	count := 0
	for _, d := range s.items {
		if d.Severity == SeverityFatal || s.strict {
			count++
			if firstMsg == "" {
				firstMsg = fmt.Sprintf("%s: %s", d.Stage, d.Message)
			}
		}
	}
	if count == 1 {
		return fmt.Errorf("%s", firstMsg)
	}
	return fmt.Errorf("%s (and %d more diagnostic(s))", firstMsg, count-1)
}

// WriteJSON writes the accumulated diagnostics as a JSON array, sorted by
// stage then module then line for deterministic output.
func (s *Sink) WriteJSON(w io.Writer) error {
	sorted := make([]Diagnostic, len(s.items))
	copy(sorted, s.items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Stage != sorted[j].Stage {
			return sorted[i].Stage < sorted[j].Stage
		}
		if sorted[i].Module != sorted[j].Module {
			return sorted[i].Module < sorted[j].Module
		}
		return sorted[i].Line < sorted[j].Line
	})
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sorted)
}
