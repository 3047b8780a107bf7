// Package bundle orchestrates the full pipeline (spec.md §2): discover,
// classify, resolve, parse, graph, analyze, rename, emit. Grounded on the
// teacher's internal/pipeline/pipeline.go Pipeline.Run() staged structure,
// with golang.org/x/sync/errgroup used exactly where the teacher uses
// concurrency primitives: fanning out independent, side-effect-free work
// (here, parsing every first-party file) before the single-threaded
// graph-building stage that depends on all of it.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cribo-bundler/cribo/internal/classify"
	"github.com/cribo-bundler/cribo/internal/diagnostics"
	"github.com/cribo-bundler/cribo/internal/discovery"
	"github.com/cribo-bundler/cribo/internal/emit"
	"github.com/cribo-bundler/cribo/internal/graph"
	"github.com/cribo-bundler/cribo/internal/pyparse"
	"github.com/cribo-bundler/cribo/internal/rename"
	"github.com/cribo-bundler/cribo/internal/reqwriter"
	"github.com/cribo-bundler/cribo/internal/resolve"
	"github.com/cribo-bundler/cribo/internal/semantic"
	"github.com/cribo-bundler/cribo/internal/stdlib"
	"github.com/cribo-bundler/cribo/pkg/types"
)

// Result is the outcome of one bundling run.
type Result struct {
	Bundle       string
	Requirements string
	Diagnostics  *diagnostics.Sink
}

// parsedModule is everything the parse+analyze stage produces for one
// first-party file, cached by identity ahead of graph construction.
type parsedModule struct {
	tree   *pyparse.Tree
	record *types.ModuleRecord
	mod    *semantic.Module
}

// Pipeline runs one bundling session end to end.
type Pipeline struct {
	cfg        types.BundleConfig
	onProgress ProgressFunc
	sink       *diagnostics.Sink
}

// New creates a Pipeline for the given resolved configuration. If
// onProgress is nil, a no-op is used.
func New(cfg types.BundleConfig, onProgress ProgressFunc) *Pipeline {
	if onProgress == nil {
		onProgress = func(string, string) {}
	}
	return &Pipeline{cfg: cfg, onProgress: onProgress, sink: diagnostics.NewSink(cfg.Strict)}
}

// Run executes the full pipeline and returns the bundled source text.
func (p *Pipeline) Run() (*Result, error) {
	p.onProgress("discover", "indexing source roots")
	walker := discovery.NewWalker()
	roots, err := walker.IndexRoots(p.cfg.SourceRoots)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	fileIdentities, err := identitiesForRoots(roots)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	entryIdentity, entryOK := identityForPath(roots, p.cfg.EntryPath)
	if !entryOK {
		return nil, fmt.Errorf("entry file %s is not under any configured source root", p.cfg.EntryPath)
	}

	p.onProgress("parse", fmt.Sprintf("parsing %d first-party files", len(fileIdentities)))
	parsed, err := p.parseAll(fileIdentities)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	snapshot := stdlib.For(p.cfg.PythonVersion)
	classifier := classify.New(snapshot, roots)
	resolver := resolve.New(p.cfg.SourceRoots)
	thirdParty := make(map[string]bool)
	var thirdPartyMu sync.Mutex
	warnedCollisions := make(map[string]bool)

	p.rewriteSubmoduleImports(parsed, classifier, resolver)

	p.onProgress("graph", "building dependency graph from entry module")

	load := func(id types.ModuleIdentity) (*types.ModuleRecord, error) {
		pm, ok := parsed[id]
		if !ok {
			return nil, fmt.Errorf("module %s not found under configured source roots", id)
		}
		return pm.record, nil
	}

	resolveEdge := func(owner types.ModuleIdentity, edge types.ImportEdge) (types.ModuleIdentity, bool) {
		ownerKind := types.KindSubmodule
		if pm, ok := parsed[owner]; ok {
			ownerKind = pm.record.Kind
		}

		var class types.Classification
		if edge.Level > 0 {
			class = classifier.ClassifyRelative().Class
		} else {
			res := classifier.ClassifyAbsolute(edge.Target)
			class = res.Class
			if res.Collision {
				top := edge.Target
				if i := strings.IndexByte(top, '.'); i >= 0 {
					top = top[:i]
				}
				if !warnedCollisions[top] {
					warnedCollisions[top] = true
					p.sink.Warn(diagnostics.StageClassify, string(owner), "", edge.Line, edge.Col,
						"%q names both a first-party module and a standard-library module; the first-party module is used", top)
				}
			}
		}

		switch class {
		case types.ClassStdlib, types.ClassNative:
			return "", false
		case types.ClassThirdParty:
			top := edge.Target
			if i := strings.IndexByte(top, '.'); i >= 0 {
				top = top[:i]
			}
			thirdPartyMu.Lock()
			thirdParty[top] = true
			thirdPartyMu.Unlock()
			return "", false
		}

		candidate, err := resolve.CandidateIdentity(owner, ownerKind, edge.Target, edge.Level)
		if err != nil {
			p.sink.Fatal(diagnostics.StageResolve, string(owner), "", edge.Line, edge.Col, "%s", err)
			return "", false
		}
		if _, ok := parsed[candidate]; !ok {
			res, resErr := resolver.Resolve(candidate)
			if resErr != nil {
				p.sink.Fatal(diagnostics.StageResolve, string(owner), "", edge.Line, edge.Col,
					"cannot resolve %q: %s", edge.Target, resErr)
				return "", false
			}
			// A first-party module outside the pre-scanned file set (can
			// happen if source_roots missed a directory); load it lazily.
			if err := p.loadOne(parsed, res.Identity, res.SourcePath, res.Kind); err != nil {
				p.sink.Fatal(diagnostics.StageResolve, string(owner), "", edge.Line, edge.Col, "%s", err)
				return "", false
			}
		}
		return candidate, true
	}

	g, err := graph.Build(entryIdentity, load, resolveEdge)
	if err != nil {
		return nil, err
	}
	if p.sink.HasFatal() {
		return nil, p.sink.Err()
	}

	for id := range fileIdentities {
		if _, reached := g.Nodes[id]; !reached {
			pm := parsed[id]
			p.sink.Warn(diagnostics.StageGraph, string(id), pm.record.SourcePath, 0, 0,
				"module is never imported from the entry module and will not appear in the bundle")
		}
	}

	cyclic := graph.CyclicModules(g)
	topoOrder := graph.TopoOrder(g)

	resolvedTargets := graph.ResolveAllEdges(g.Nodes, resolveEdge)

	analyzed := make(map[types.ModuleIdentity]*semantic.Module, len(g.Nodes))
	trees := make(map[types.ModuleIdentity]*pyparse.Tree, len(g.Nodes))
	for id := range g.Nodes {
		pm := parsed[id]
		analyzed[id] = pm.mod
		trees[id] = pm.tree
	}

	if p.cfg.TreeShake {
		p.onProgress("semantics", "computing tree-shaking reachability")
		reachGraph := &semantic.Graph{Entry: entryIdentity, Modules: analyzed, ResolvedTargets: resolvedTargets}
		reach := semantic.ComputeReachability(reachGraph)
		for id, rec := range g.Nodes {
			rec.Reachable = reach[id]
		}
	}

	p.onProgress("rename", "computing the global rename plan")
	renamePlan := rename.Build(entryIdentity, g.Nodes, topoOrder)
	for id, rec := range g.Nodes {
		if rec.Rename == nil {
			rec.Rename = make(map[string]string)
		}
		for name := range rec.Bindings {
			if renamed := renamePlan.NameFor(id, name); renamed != name {
				rec.Rename[name] = renamed
			}
		}
	}

	p.onProgress("emit", "rendering the bundle")
	e := &emit.Emitter{
		Nodes:          g.Nodes,
		Analyzed:       analyzed,
		Trees:          trees,
		Rename:         renamePlan,
		ResolvedTarget: resolvedTargets,
	}
	plan := emit.BuildPlan(entryIdentity, topoOrder, cyclic, e)
	bundled, err := e.Render(plan)
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}

	var requirements string
	if p.cfg.EmitReqs {
		requirements = reqwriter.Render(thirdParty)
	}

	return &Result{
		Bundle:       bundled,
		Requirements: requirements,
		Diagnostics:  p.sink,
	}, nil
}

// parseAll parses and semantically analyzes every first-party file
// concurrently (spec.md §5 explicitly permits this, joined before the
// graph-building stage begins), using golang.org/x/sync/errgroup to
// return the first error. The group carries no context, so an error does
// not cancel the parses already started.
func (p *Pipeline) parseAll(fileIdentities map[types.ModuleIdentity]fileEntry) (map[types.ModuleIdentity]*parsedModule, error) {
	parser, err := pyparse.New()
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	results := make(map[types.ModuleIdentity]*parsedModule, len(fileIdentities))
	var mu sync.Mutex

	var g errgroup.Group
	for id, entry := range fileIdentities {
		id, entry := id, entry
		g.Go(func() error {
			source, err := os.ReadFile(entry.path)
			if err != nil {
				return fmt.Errorf("read %s: %w", entry.path, err)
			}
			tree, err := parser.Parse(source)
			if err != nil {
				return fmt.Errorf("parse %s: %w", entry.path, err)
			}
			mod := semantic.Analyze(tree)

			rec := &types.ModuleRecord{
				Identity:         id,
				Kind:             entry.kind,
				SourcePath:       entry.path,
				SourceRoot:       entry.root,
				Source:           source,
				Bindings:         mod.Bindings,
				Exports:          mod.Exports,
				SideEffectful:    mod.SideEffectful,
				Imports:          mod.Imports,
				ShadowsLocalsAt:  mod.ShadowsLocalsAt,
				ShadowsGlobalsAt: mod.ShadowsGlobalsAt,
				HasFuture:        mod.HasFuture,
				HasExecOrEval:    mod.HasExecOrEval,
			}

			mu.Lock()
			results[id] = &parsedModule{tree: tree, record: rec, mod: mod}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// rewriteSubmoduleImports resolves spec.md §4.1's "from pkg import name,
// where name is itself a submodule of pkg" rule. Python checks pkg's own
// package contents for a submodule named "name" before falling back to
// treating "name" as a symbol defined in pkg's namespace; resolved this way,
// the bound name refers to the whole submodule, not an attribute of pkg.
//
// Rather than threading that ambiguity through every later stage (graph,
// reachability, emit all read import edges independently), this rewrites
// the matching edge in place, once, to the shape those stages already
// handle correctly: "from pkg import name" becomes the equivalent
// "import pkg.name as name". Only single-name from-imports are considered;
// "from pkg import a, b" always pulls symbols, matching the common case the
// ambiguity applies to.
func (p *Pipeline) rewriteSubmoduleImports(parsed map[types.ModuleIdentity]*parsedModule, classifier *classify.Classifier, resolver *resolve.Resolver) {
	for owner, pm := range parsed {
		for i := range pm.record.Imports {
			edge := &pm.record.Imports[i]
			if edge.Kind != types.ImportFrom && edge.Kind != types.ImportFromAs {
				continue
			}
			if len(edge.Bound) != 1 {
				continue
			}

			var class types.Classification
			if edge.Level > 0 {
				class = classifier.ClassifyRelative().Class
			} else {
				class = classifier.ClassifyAbsolute(edge.Target).Class
			}
			if class != types.ClassFirstParty {
				continue
			}

			ownerKind := pm.record.Kind
			pkgCandidate, err := resolve.CandidateIdentity(owner, ownerKind, edge.Target, edge.Level)
			if err != nil {
				continue
			}

			bn := edge.Bound[0]
			subCandidate := types.ModuleIdentity(string(pkgCandidate) + "." + bn.Origin)

			if _, ok := parsed[subCandidate]; !ok {
				res, resErr := resolver.Resolve(subCandidate)
				if resErr != nil {
					continue // not a submodule: leave as a symbol pull from pkg's namespace
				}
				if loadErr := p.loadOne(parsed, res.Identity, res.SourcePath, res.Kind); loadErr != nil {
					continue
				}
			}

			edge.Kind = types.ImportPlainAs
			edge.Target = string(subCandidate)
			edge.Level = 0
			edge.Bound = []types.BoundName{{Local: bn.Local, Origin: string(subCandidate)}}
		}
	}
}

// loadOne parses a single file discovered lazily during resolution (outside
// the original source-root scan), used only for the rare case of a
// first-party file the up-front scan missed.
func (p *Pipeline) loadOne(parsed map[types.ModuleIdentity]*parsedModule, id types.ModuleIdentity, path string, kind types.ModuleKind) error {
	if _, ok := parsed[id]; ok {
		return nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parser, err := pyparse.New()
	if err != nil {
		return err
	}
	defer parser.Close()
	tree, err := parser.Parse(source)
	if err != nil {
		return err
	}
	mod := semantic.Analyze(tree)
	rec := &types.ModuleRecord{
		Identity: id, Kind: kind, SourcePath: path, Source: source,
		Bindings: mod.Bindings, Exports: mod.Exports, SideEffectful: mod.SideEffectful,
		Imports: mod.Imports, HasFuture: mod.HasFuture, HasExecOrEval: mod.HasExecOrEval,
	}
	parsed[id] = &parsedModule{tree: tree, record: rec, mod: mod}
	return nil
}

// fileEntry pairs a discovered first-party file with its computed identity
// metadata.
type fileEntry struct {
	path string
	root string
	kind types.ModuleKind
}

// identitiesForRoots computes the canonical dotted identity of every
// first-party .py file discovered under the configured source roots.
func identitiesForRoots(roots []*discovery.RootIndex) (map[types.ModuleIdentity]fileEntry, error) {
	out := make(map[types.ModuleIdentity]fileEntry)
	for _, idx := range roots {
		for _, path := range idx.AllFiles {
			id, kind, err := identityFor(idx.Root, path)
			if err != nil {
				return nil, err
			}
			if _, exists := out[id]; !exists {
				out[id] = fileEntry{path: path, root: idx.Root, kind: kind}
			}
		}
	}
	return out, nil
}

// identityFor computes module identity and kind for one file under root.
func identityFor(root, path string) (types.ModuleIdentity, types.ModuleKind, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", 0, err
	}
	rel = filepath.ToSlash(rel)
	kind := types.KindSubmodule
	if strings.HasSuffix(rel, "/__init__.py") {
		rel = strings.TrimSuffix(rel, "/__init__.py")
		kind = types.KindPackage
	} else {
		rel = strings.TrimSuffix(rel, ".py")
	}
	dotted := strings.ReplaceAll(rel, "/", ".")
	return types.ModuleIdentity(dotted), kind, nil
}

// identityForPath finds which configured source root contains path and
// returns its computed module identity.
func identityForPath(roots []*discovery.RootIndex, path string) (types.ModuleIdentity, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for _, idx := range roots {
		rootAbs, err := filepath.Abs(idx.Root)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) && abs != rootAbs {
			continue
		}
		id, _, err := identityFor(idx.Root, abs)
		if err != nil {
			continue
		}
		return id, true
	}
	return "", false
}
