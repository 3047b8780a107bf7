// Package emit assembles the final single-file bundle (spec.md §4.6): a
// header carrying merged __future__ imports and a small module registry
// runtime, inlined modules spliced in dependency order with renamed
// top-level bindings, side-effectful or cyclic modules wrapped in
// lazily-invoked init functions that reproduce sys.modules import-once
// semantics, and the entry module's own body emitted last, with its import
// statements removed and references to bundled names substituted (the entry
// body itself is not tree-shaken).
//
// Every inlined or wrapped module also gets a synthesized namespace record
// (§4.6's "lightweight record per inlined module/package with attributes
// pointing to renamed symbols"), so that "import pkg; pkg.attr" and
// "import pkg.sub; pkg.sub.attr" resolve the way real module objects would,
// and wrapped modules go through the registry's lazy getter at every use
// site instead of the bare renamed global.
//
// Grounded on the "climacell-rules_pyz" simplepack.go text/template
// generation idiom: Python source is produced from Go templates rather than
// hand-built string concatenation.
package emit

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cribo-bundler/cribo/internal/pyparse"
	"github.com/cribo-bundler/cribo/internal/rename"
	"github.com/cribo-bundler/cribo/internal/semantic"
	"github.com/cribo-bundler/cribo/pkg/types"
)

const (
	registryInitFn     = "__cribo_register"
	registryGetFn      = "__cribo_get"
	namespaceClassName = "__cribo_namespace"
)

var headerTemplate = template.Must(template.New("header").Parse(
	`{{- if .Shebang}}{{.Shebang}}
{{end -}}
# Generated by cribo. Do not edit by hand.
{{if .Future}}from __future__ import {{.Future}}
{{end -}}
{{range .StdlibImports}}{{.}}
{{end}}
__cribo_modules = {}
__cribo_init_done = {}
__cribo_initializers = {}


def {{.RegistryInitFn}}(name, init_fn):
    __cribo_initializers[name] = init_fn


def __cribo_get(name):
    if not __cribo_init_done.get(name):
        __cribo_init_done[name] = True
        __cribo_initializers[name]()
    return __cribo_modules[name]


class __cribo_namespace:
    def __init__(self, **attrs):
        self.__dict__.update(attrs)

`))

var wrapperTemplate = template.Must(template.New("wrapper").Parse(
	`
def {{.InitFnName}}():
{{range .Globals}}    global {{.}}
{{end -}}
{{.Body}}
    __cribo_modules[{{.Identity | printf "%q"}}] = __cribo_namespace({{range $i, $a := .NamespaceAttrs}}{{if $i}}, {{end}}{{$a.Name}}={{$a.Value}}{{end}})


{{.RegistryInitFn}}({{.Identity | printf "%q"}}, {{.InitFnName}})
`))

// Plan is the emitter's complete, ordered description of what to write.
type Plan struct {
	Shebang       string
	FutureNames   []string
	StdlibImports []string
	// InlineOrder lists modules to splice directly at top level, in
	// dependency order (dependencies before dependents).
	InlineOrder []types.ModuleIdentity
	// WrapOrder lists modules that must be wrapped in an init function,
	// also in dependency order.
	WrapOrder []types.ModuleIdentity
	Entry     types.ModuleIdentity
}

// Emitter renders a Plan against the analyzed module set into final Python
// source text.
type Emitter struct {
	Nodes    map[types.ModuleIdentity]*types.ModuleRecord
	Analyzed map[types.ModuleIdentity]*semantic.Module
	Trees    map[types.ModuleIdentity]*pyparse.Tree
	Rename   *rename.Plan
	// ResolvedTarget maps (owner, edge index) to the resolved target
	// identity, mirroring semantic.Graph.ResolvedTargets.
	ResolvedTarget map[types.ModuleIdentity][]types.ModuleIdentity
}

// BuildPlan decides, for every non-entry first-party module, whether it is
// inlined or wrapped, and computes the merged header content.
func BuildPlan(entry types.ModuleIdentity, topoOrder []types.ModuleIdentity, cyclic map[types.ModuleIdentity]bool, e *Emitter) *Plan {
	p := &Plan{Entry: entry}

	futureSeen := make(map[string]bool)
	for _, id := range topoOrder {
		mod := e.Analyzed[id]
		if mod == nil {
			continue
		}
		for _, f := range mod.HasFuture {
			futureSeen[f] = true
		}
	}
	for f := range futureSeen {
		p.FutureNames = append(p.FutureNames, f)
	}
	sort.Strings(p.FutureNames)

	if entryTree := e.Trees[entry]; entryTree != nil {
		p.Shebang = extractShebang(entryTree.Source)
	}

	seenImports := make(map[string]bool)
	for _, id := range topoOrder {
		mod := e.Analyzed[id]
		if mod == nil {
			continue
		}
		targets := e.ResolvedTarget[id]
		for idx, edge := range mod.Imports {
			if edge.Scope != types.ScopeModule {
				continue
			}
			if idx < len(targets) && targets[idx] != "" {
				continue // first-party: spliced out by renderModuleBody, not hoisted
			}
			line := renderImportLine(edge)
			if line == "" || seenImports[line] {
				continue
			}
			seenImports[line] = true
			p.StdlibImports = append(p.StdlibImports, line)
		}
	}

	for _, id := range topoOrder {
		if id == entry {
			continue
		}
		mod := e.Analyzed[id]
		rec := e.Nodes[id]
		wrap := false
		if mod != nil && mod.SideEffectful {
			wrap = true
		}
		if cyclic[id] {
			wrap = true
		}
		if rec != nil {
			rec.Wrapped = wrap
		}
		if wrap {
			p.WrapOrder = append(p.WrapOrder, id)
		} else {
			p.InlineOrder = append(p.InlineOrder, id)
		}
	}

	return p
}

func extractShebang(source []byte) string {
	if bytes.HasPrefix(source, []byte("#!")) {
		if i := bytes.IndexByte(source, '\n'); i >= 0 {
			return string(source[:i])
		}
		return string(source)
	}
	return ""
}

// Render produces the final bundled Python source.
func (e *Emitter) Render(p *Plan) (string, error) {
	var out bytes.Buffer

	headerData := struct {
		Shebang        string
		Future         string
		StdlibImports  []string
		RegistryInitFn string
	}{
		Shebang:        p.Shebang,
		Future:         strings.Join(p.FutureNames, ", "),
		StdlibImports:  p.StdlibImports,
		RegistryInitFn: registryInitFn,
	}
	if err := headerTemplate.Execute(&out, headerData); err != nil {
		return "", fmt.Errorf("render header: %w", err)
	}

	for _, id := range p.InlineOrder {
		body, err := e.renderModuleBody(id, true)
		if err != nil {
			return "", fmt.Errorf("inline module %s: %w", id, err)
		}
		out.WriteString(body)
		out.WriteString("\n")
		out.WriteString(e.renderNamespaceAssignment(id))
		out.WriteString("\n")
	}

	for _, id := range p.WrapOrder {
		body, err := e.renderModuleBody(id, true)
		if err != nil {
			return "", fmt.Errorf("wrap module %s: %w", id, err)
		}
		data := struct {
			InitFnName     string
			Globals        []string
			Body           string
			Identity       string
			RegistryInitFn string
			NamespaceAttrs []namespaceAttr
		}{
			InitFnName:     wrapperInitFnName(id),
			Globals:        e.globalsFor(id),
			Body:           indent(body, "    "),
			Identity:       string(id),
			RegistryInitFn: registryInitFn,
			NamespaceAttrs: e.namespaceAttrsFor(id),
		}
		if err := wrapperTemplate.Execute(&out, data); err != nil {
			return "", fmt.Errorf("render wrapper for %s: %w", id, err)
		}
	}

	entryBody, err := e.renderModuleBody(p.Entry, false)
	if err != nil {
		return "", fmt.Errorf("render entry module: %w", err)
	}
	out.WriteString("\n")
	out.WriteString(entryBody)
	out.WriteString("\n")

	return out.String(), nil
}

// renderImportLine reconstructs the source text of one stdlib/third-party
// import edge, for hoisting into the bundle header. First-party edges never
// reach this function (BuildPlan filters them out, since their definitions
// are spliced directly into the bundle instead).
func renderImportLine(edge types.ImportEdge) string {
	dots := strings.Repeat(".", edge.Level)
	switch edge.Kind {
	case types.ImportPlain:
		return "import " + edge.Target
	case types.ImportPlainAs:
		if len(edge.Bound) == 0 {
			return "import " + edge.Target
		}
		return "import " + edge.Target + " as " + edge.Bound[0].Local
	case types.ImportFromStar:
		return "from " + dots + edge.Target + " import *"
	case types.ImportFrom, types.ImportFromAs:
		names := make([]string, 0, len(edge.Bound))
		for _, bn := range edge.Bound {
			if bn.Local != "" && bn.Local != bn.Origin {
				names = append(names, bn.Origin+" as "+bn.Local)
			} else {
				names = append(names, bn.Origin)
			}
		}
		if len(names) == 0 {
			return ""
		}
		return "from " + dots + edge.Target + " import " + strings.Join(names, ", ")
	default:
		return ""
	}
}

func wrapperInitFnName(id types.ModuleIdentity) string {
	return "__cribo_init_" + sanitizeIdentity(id)
}

func moduleLocalVar(id types.ModuleIdentity) string {
	return sanitizeIdentity(id)
}

func sanitizeIdentity(id types.ModuleIdentity) string {
	return strings.Map(func(r rune) rune {
		if r == '.' {
			return '_'
		}
		return r
	}, string(id))
}

func indent(body, prefix string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// globalsFor returns the renamed top-level bindings of a wrapped module,
// which must be declared "global" inside its init function so that
// assignments populate the shared namespace instead of a local scope. Names
// tree-shaken out of the module's body (see renderModuleBody) are excluded:
// their definitions no longer exist in the bundle to declare global.
func (e *Emitter) globalsFor(id types.ModuleIdentity) []string {
	rec := e.Nodes[id]
	if rec == nil {
		return nil
	}
	names := make([]string, 0, len(rec.Bindings))
	for name := range rec.Bindings {
		if !e.survives(rec, name) {
			continue
		}
		names = append(names, e.Rename.NameFor(id, name))
	}
	sort.Strings(names)
	return names
}

// survives reports whether binding name still has a definition in the
// emitted bundle: always true when the module wasn't tree-shaken, or when
// the binding is reachable, or is __all__ (kept unconditionally, like its
// statement in renderModuleBody).
func (e *Emitter) survives(rec *types.ModuleRecord, name string) bool {
	if rec.Reachable == nil || name == "__all__" {
		return true
	}
	return rec.Reachable[name]
}

// namespaceAttr is one keyword argument of a synthesized module namespace:
// the module's own (un-renamed) attribute name, paired with the renamed
// bundle-global variable that currently holds its value. Real Python module
// attribute access works for any module-level name, not just exported ones,
// so this covers every binding that survives tree-shaking, not just
// rec.Exports.
type namespaceAttr struct {
	Name  string
	Value string
}

// namespaceAttrsFor lists, in deterministic order, the attributes a
// module's synthesized namespace object exposes. A binding tree-shaken out
// of the module's body is excluded, since the renamed global it would
// point to was never defined.
func (e *Emitter) namespaceAttrsFor(id types.ModuleIdentity) []namespaceAttr {
	rec := e.Nodes[id]
	if rec == nil {
		return nil
	}
	names := make([]string, 0, len(rec.Bindings))
	for name := range rec.Bindings {
		if !e.survives(rec, name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	attrs := make([]namespaceAttr, len(names))
	for i, name := range names {
		attrs[i] = namespaceAttr{Name: name, Value: e.Rename.NameFor(id, name)}
	}
	return attrs
}

// renderNamespaceAssignment builds the statement that binds an inlined
// module's local variable to its synthesized namespace object, executed
// immediately after the module's own body so every attribute already holds
// its defined value.
func (e *Emitter) renderNamespaceAssignment(id types.ModuleIdentity) string {
	attrs := e.namespaceAttrsFor(id)
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.Name + "=" + a.Value
	}
	return moduleLocalVar(id) + " = " + namespaceClassName + "(" + strings.Join(parts, ", ") + ")"
}

// referenceExpr is the expression a cross-module reference to target
// compiles to: a wrapped module is only ever reachable through the lazy
// registry getter (its namespace does not exist until first use), while an
// inlined module's namespace was already assigned at its splice position.
func (e *Emitter) referenceExpr(target types.ModuleIdentity) string {
	if rec := e.Nodes[target]; rec != nil && rec.Wrapped {
		return fmt.Sprintf("%s(%q)", registryGetFn, string(target))
	}
	return moduleLocalVar(target)
}

// chainSub is a whole-module import binding ("import a.b.c [as x]"): extra
// lists the dotted components, beyond the bound local name itself, that
// must be consumed from the use-site attribute chain so the replacement
// text stands in for the entire "a.b.c" prefix rather than just "a". It is
// empty for an aliased import (the alias binds directly to the target) and
// for a single-component target.
type chainSub struct {
	extra       []string
	replacement string
}

// substitutions computes, for one module, the identifier rewrites its body
// needs: the module's own renamed top-level bindings and "from X import Y"
// bindings replace a single identifier node with bundle-global text (simple);
// "import X[.Y.Z]" bindings replace the whole matched dotted-attribute chain
// with a reference expression for the target module's namespace (chained).
func (e *Emitter) substitutions(id types.ModuleIdentity) (map[string]string, map[string]chainSub) {
	simple := make(map[string]string)
	chained := make(map[string]chainSub)
	rec := e.Nodes[id]
	if rec == nil {
		return simple, chained
	}

	for name := range rec.Bindings {
		renamed := e.Rename.NameFor(id, name)
		if renamed != name {
			simple[name] = renamed
		}
	}

	mod := e.Analyzed[id]
	if mod == nil {
		return simple, chained
	}
	targets := e.ResolvedTarget[id]
	for idx, edge := range mod.Imports {
		if edge.Scope != types.ScopeModule {
			continue
		}
		var target types.ModuleIdentity
		if idx < len(targets) {
			target = targets[idx]
		}
		if target == "" {
			continue
		}
		for _, bn := range edge.Bound {
			switch edge.Kind {
			case types.ImportFrom, types.ImportFromAs:
				if targetRec := e.Nodes[target]; targetRec != nil && targetRec.Wrapped {
					simple[bn.Local] = fmt.Sprintf("%s(%q).%s", registryGetFn, string(target), bn.Origin)
				} else {
					simple[bn.Local] = e.Rename.NameFor(target, bn.Origin)
				}
			case types.ImportPlain:
				var extra []string
				if parts := strings.Split(bn.Origin, "."); len(parts) > 1 {
					extra = parts[1:]
				}
				chained[bn.Local] = chainSub{extra: extra, replacement: e.referenceExpr(target)}
			case types.ImportPlainAs:
				// The alias binds directly to the target module itself;
				// Python does not expose the intermediate dotted path here.
				chained[bn.Local] = chainSub{replacement: e.referenceExpr(target)}
			}
		}
	}
	return simple, chained
}

// edit is one byte-range rewrite applied to a module's source: either a
// deletion (import statements, tree-shaken-away definitions) or an
// identifier/attribute-chain substitution.
type edit struct {
	start, end uint
	text       string
}

// renderModuleBody reproduces a module's source text with import statements
// and (when shake is true) unreferenced top-level definitions removed, and
// identifier references substituted per the rename plan and cross-module
// import bindings, via a single byte-range splice over the original
// Tree-sitter tree (so string and comment contents are never touched).
func (e *Emitter) renderModuleBody(id types.ModuleIdentity, shake bool) (string, error) {
	tree := e.Trees[id]
	if tree == nil {
		return "", fmt.Errorf("no parsed tree for module %s", id)
	}
	simple, chained := e.substitutions(id)

	var reachable map[string]bool
	if shake {
		if rec := e.Nodes[id]; rec != nil && rec.Reachable != nil {
			reachable = rec.Reachable
		}
	}

	root := tree.Root
	src := tree.Source
	var edits []edit

	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt == nil {
			continue
		}
		switch stmt.Kind() {
		case "import_statement", "import_from_statement", "future_import_statement":
			edits = append(edits, edit{stmt.StartByte(), stmt.EndByte(), ""})
			continue
		}
		if reachable == nil {
			continue
		}
		// __all__ and any statement with no single trackable binding name
		// (side-effectful code, control flow, bare expressions) always run,
		// per spec.md §4.4's stated tree-shaking exceptions.
		if name := topLevelBindingName(stmt, src); name != "" && name != "__all__" && !reachable[name] {
			edits = append(edits, edit{stmt.StartByte(), stmt.EndByte(), ""})
		}
	}

	pyparse.Walk(root, func(n *tree_sitter.Node) {
		if n.Kind() != "identifier" {
			return
		}
		parent := n.Parent()
		if parent != nil {
			// Skip the attribute name in "obj.attr" (field "attribute"),
			// and the keyword name in a call's keyword argument.
			if parent.Kind() == "attribute" && parent.ChildByFieldName("attribute") == n {
				return
			}
			if parent.Kind() == "keyword_argument" && parent.ChildByFieldName("name") == n {
				return
			}
		}
		name := pyparse.NodeText(n, src)
		if cs, ok := chained[name]; ok {
			if end, matched := matchChain(n, cs.extra, src); matched {
				edits = append(edits, edit{n.StartByte(), end, cs.replacement})
				return
			}
			// Chain didn't match (e.g. the package is referenced bare, with
			// no dotted suffix): fall back to substituting just the name.
			edits = append(edits, edit{n.StartByte(), n.EndByte(), cs.replacement})
			return
		}
		if repl, ok := simple[name]; ok {
			edits = append(edits, edit{n.StartByte(), n.EndByte(), repl})
		}
	})

	// On equal start bytes the wider edit (a statement deletion) goes first,
	// so an identifier substitution inside it is skipped rather than the
	// deletion.
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end > edits[j].end
	})

	var b strings.Builder
	cursor := uint(0)
	for _, ed := range edits {
		if ed.start < cursor {
			continue
		}
		b.Write(src[cursor:ed.start])
		b.WriteString(ed.text)
		cursor = ed.end
	}
	if cursor < uint(len(src)) {
		b.Write(src[cursor:])
	}

	return b.String(), nil
}

// matchChain walks upward from identifier node n through successive
// "object.attribute" parents, requiring each to match the next component of
// extra in order; it reports the end byte of the last consumed node (the
// full matched "a.b.c" span) on success.
func matchChain(n *tree_sitter.Node, extra []string, src []byte) (uint, bool) {
	cur := n
	for _, comp := range extra {
		parent := cur.Parent()
		if parent == nil || parent.Kind() != "attribute" {
			return 0, false
		}
		obj := parent.ChildByFieldName("object")
		attr := parent.ChildByFieldName("attribute")
		if obj == nil || attr == nil || obj.StartByte() != cur.StartByte() || obj.EndByte() != cur.EndByte() {
			return 0, false
		}
		if pyparse.NodeText(attr, src) != comp {
			return 0, false
		}
		cur = parent
	}
	return cur.EndByte(), true
}

// topLevelBindingName returns the single name a top-level statement binds,
// matching exactly the binding-producing cases of
// semantic.Analyze/analyzeTopLevelStatement, or "" if the statement
// introduces no single trackable binding (and must therefore always run).
func topLevelBindingName(stmt *tree_sitter.Node, src []byte) string {
	switch stmt.Kind() {
	case "function_definition", "class_definition":
		if name := stmt.ChildByFieldName("name"); name != nil {
			return pyparse.NodeText(name, src)
		}
	case "decorated_definition":
		for i := uint(0); i < stmt.ChildCount(); i++ {
			child := stmt.Child(i)
			if child != nil && (child.Kind() == "function_definition" || child.Kind() == "class_definition") {
				return topLevelBindingName(child, src)
			}
		}
	case "expression_statement":
		if stmt.NamedChildCount() == 0 {
			return ""
		}
		inner := stmt.NamedChild(0)
		if inner != nil && inner.Kind() == "assignment" {
			if left := inner.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
				return pyparse.NodeText(left, src)
			}
		}
	}
	return ""
}
