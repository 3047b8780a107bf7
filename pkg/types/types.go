// Package types holds the data model shared across Cribo's bundling stages:
// module identity, import edges, the dependency graph, and configuration.
package types

import "fmt"

// ModuleIdentity is a canonical dotted path uniquely naming a first-party
// module within a bundling session (e.g. "pkg.sub.mod").
type ModuleIdentity string

// ModuleKind distinguishes a package (__init__-backed) from a plain submodule.
type ModuleKind int

const (
	KindSubmodule ModuleKind = iota
	KindPackage
)

func (k ModuleKind) String() string {
	if k == KindPackage {
		return "package"
	}
	return "submodule"
}

// Classification labels where an import target resolves to.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassStdlib
	ClassFirstParty
	ClassThirdParty
	ClassNative
)

func (c Classification) String() string {
	switch c {
	case ClassStdlib:
		return "stdlib"
	case ClassFirstParty:
		return "firstparty"
	case ClassThirdParty:
		return "thirdparty"
	case ClassNative:
		return "native"
	default:
		return "unknown"
	}
}

// ImportKind enumerates the statically distinguishable import statement shapes.
type ImportKind int

const (
	ImportPlain     ImportKind = iota // import T
	ImportPlainAs                     // import T as A
	ImportFrom                        // from T import n
	ImportFromAs                      // from T import n as a
	ImportFromStar                    // from T import *
)

// ImportScope records whether an import binds at module scope or inside a
// function body (the latter may tolerate cycles the former cannot).
type ImportScope int

const (
	ScopeModule ImportScope = iota
	ScopeFunction
)

// BoundName is one local name an import edge introduces into the owning
// module's scope, paired with the name it originates from in the target
// (for a bare "import T" / "import T as A", Origin is the full dotted T).
type BoundName struct {
	Local  string
	Origin string
}

// ImportEdge is one import statement's effect: owner M imports target T.
type ImportEdge struct {
	Owner ModuleIdentity
	// Target is the raw specifier as written (dotted path, without leading dots).
	Target string
	Kind   ImportKind
	// Level is 0 for absolute imports, N for N leading dots on a relative import.
	Level int
	Bound []BoundName
	Scope ImportScope
	Line  int
	Col   int
}

// SymbolKind is the definition kind of a binding in a module's symbol table.
type SymbolKind int

const (
	SymAssignment SymbolKind = iota
	SymFunctionDef
	SymClassDef
	SymImport
	SymParameter
)

// Binding is one top-level name recorded in a module's symbol table.
type Binding struct {
	Name     string
	Kind     SymbolKind
	Exported bool
	// Origin names the source module/symbol for re-exports produced by
	// "from X import n" or "from X import n as a"; empty for locally defined names.
	Origin string
	Line   int
}

// ModuleRecord is the per-module ledger threaded through every bundling stage.
type ModuleRecord struct {
	Identity ModuleIdentity
	Kind     ModuleKind

	SourcePath string // absolute path to the .py file
	RootRel    string // path relative to the owning source root
	SourceRoot string // the source root this module resolved under

	Source []byte // raw file content

	// Bindings is the module-level symbol table: name -> binding.
	Bindings map[string]*Binding

	// Exports is the export set: __all__ verbatim if literal, else default-visibility names.
	Exports map[string]bool

	// SideEffectful is true if the module's top-level body (excluding pure
	// definitions) performs observable work and therefore must be wrapped.
	SideEffectful bool

	// Reachable is the tree-shaking result: names kept in the emitted bundle.
	Reachable map[string]bool

	// Imports are this module's import edges (module- and function-scoped).
	Imports []ImportEdge

	// Rename maps each of this module's top-level names to its globally
	// unique emitted identifier.
	Rename map[string]string

	// Wrapped is true if this module is emitted behind a registry initializer
	// (forced by cycle membership or side effects).
	Wrapped bool

	// ShadowsLocalsAt/ShadowsGlobalsAt record the source line at which module
	// scope rebinds the name "locals"/"globals" (0 if never shadowed). The
	// emitter does not read them and does not rewrite locals()/globals()
	// calls, before or after that line.
	ShadowsLocalsAt  int
	ShadowsGlobalsAt int

	// HasFuture lists distinct "from __future__ import X" names this module declares.
	HasFuture []string

	// HasExecOrEval flags a call to exec or eval anywhere in the module. No
	// later stage reads it: it neither forces wrapper mode nor disables
	// tree-shaking for the module, and no warning is recorded for it.
	HasExecOrEval bool
}

// DependencyGraph is the directed graph of first-party module identities
// built from the entry module outward.
type DependencyGraph struct {
	Entry ModuleIdentity
	Nodes map[ModuleIdentity]*ModuleRecord
	// Edges collapses import edges to their target module identity (top-level only).
	Edges map[ModuleIdentity][]ModuleIdentity
	// SCCs holds the strongly connected components, each sorted internally
	// and ordered by its lexicographically smallest member; non-cyclic
	// modules appear as size-1 SCCs.
	SCCs [][]ModuleIdentity
}

// BundleConfig is the resolved configuration for one bundling run.
type BundleConfig struct {
	EntryPath       string
	SourceRoots     []string
	OutPath         string
	EmitReqs        bool
	TreeShake       bool
	PythonVersion   string
	Strict          bool
	Verbose         bool
	DiagnosticsJSON string
}

// ExitError carries a specific process exit code through cobra's RunE chain,
// mirroring the teacher's own ExitError -> os.Exit(code) contract.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// NewExitError builds an ExitError with a formatted message.
func NewExitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}
