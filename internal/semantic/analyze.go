// Package semantic implements the semantic analyzer (spec.md §4.4): per
// module, the symbol table, export set, side-effect classification, and
// import-edge extraction (including aliasing). Tree-shaking reachability is
// a separate, whole-graph pass in reachability.go.
//
// Grounded on the teacher's Tree-sitter walking idiom
// (internal/analyzer/shared, internal/analyzer/c2_semantics/python.go) and
// the import-edge node-kind handling in the pack's
// internal/analyzer/c3_architecture/python.go (import_statement,
// import_from_statement, dotted_name, aliased_import, relative_import).
package semantic

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cribo-bundler/cribo/internal/pyparse"
	"github.com/cribo-bundler/cribo/pkg/types"
)

// Module is the semantic analyzer's output for one first-party module.
type Module struct {
	Bindings         map[string]*types.Binding
	Order            []string // top-level binding names in source order
	Exports          map[string]bool
	ExportsExplicit  bool // true if __all__ was a literal list/tuple
	SideEffectful    bool
	Imports          []types.ImportEdge
	ShadowsLocalsAt  int
	ShadowsGlobalsAt int
	HasFuture        []string
	HasExecOrEval    bool
	// bodyRefs maps each top-level binding name to the set of identifier
	// names textually referenced inside its definition body (function/class
	// bodies; empty for simple assignments), used by the reachability pass.
	bodyRefs map[string][]string
	// wholeModuleRefs are identifier references found in statements that are
	// not themselves a named top-level definition (e.g. the entry module's
	// free-standing statements), used to seed reachability roots.
	wholeModuleRefs []string
}

// pureLiteralKinds are Tree-sitter node kinds for Python literal expressions.
var pureLiteralKinds = map[string]bool{
	"string": true, "integer": true, "float": true, "true": true,
	"false": true, "none": true,
}

// Analyze runs the semantic analyzer over one parsed module.
func Analyze(tree *pyparse.Tree) *Module {
	m := &Module{
		Bindings: make(map[string]*types.Binding),
		Exports:  make(map[string]bool),
		bodyRefs: make(map[string][]string),
	}

	pureNames := make(map[string]bool)
	root := tree.Root
	src := tree.Source

	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt == nil {
			continue
		}
		m.analyzeTopLevelStatement(stmt, src, pureNames)
	}

	m.finalizeExports()
	return m
}

func (m *Module) analyzeTopLevelStatement(stmt *tree_sitter.Node, src []byte, pureNames map[string]bool) {
	switch stmt.Kind() {
	case "import_statement":
		m.extractImportStatement(stmt, src, types.ScopeModule)
		m.recordPureNamesFromImport(stmt, src, pureNames)

	case "import_from_statement":
		m.extractImportFromStatement(stmt, src, types.ScopeModule)
		m.recordPureNamesFromImportFrom(stmt, src, pureNames)

	case "future_import_statement":
		m.extractFutureImport(stmt, src)

	case "function_definition":
		name := fieldText(stmt, "name", src)
		m.bind(name, types.SymFunctionDef, pyparse.Line(stmt))
		pureNames[name] = true
		m.scanRefs(name, stmt, src)
		m.scanNested(stmt, src)

	case "class_definition":
		name := fieldText(stmt, "name", src)
		m.bind(name, types.SymClassDef, pyparse.Line(stmt))
		pureNames[name] = true
		m.scanRefs(name, stmt, src)
		m.scanNested(stmt, src)

	case "decorated_definition":
		// A def/class preceded by decorators: recurse into the definition
		// child only. The decorator expressions are not scanned: they never
		// mark the module side-effectful and their references are not
		// recorded.
		for i := uint(0); i < stmt.ChildCount(); i++ {
			child := stmt.Child(i)
			if child != nil && (child.Kind() == "function_definition" || child.Kind() == "class_definition") {
				m.analyzeTopLevelStatement(child, src, pureNames)
			}
		}

	case "expression_statement":
		m.analyzeExpressionStatement(stmt, src, pureNames)

	case "comment":
		// no-op

	case "pass_statement":
		// no-op

	case "if_statement", "try_statement", "for_statement", "while_statement", "with_statement":
		m.SideEffectful = true
		m.wholeModuleRefs = append(m.wholeModuleRefs, collectIdentifiers(stmt, src)...)

	case "raise_statement", "assert_statement", "delete_statement", "global_statement", "nonlocal_statement":
		m.SideEffectful = true

	default:
		// Any other top-level statement kind is unrecognized: conservative
		// per spec.md §4.4, treat as side-effectful.
		m.SideEffectful = true
		m.wholeModuleRefs = append(m.wholeModuleRefs, collectIdentifiers(stmt, src)...)
	}
}

func (m *Module) analyzeExpressionStatement(stmt *tree_sitter.Node, src []byte, pureNames map[string]bool) {
	inner := firstNamedChild(stmt)
	if inner == nil {
		return
	}

	switch inner.Kind() {
	case "string":
		// Bare string literal: a docstring. Pure.
		return

	case "assignment":
		m.analyzeAssignment(inner, src, pureNames)
		return

	case "augmented_assignment":
		m.SideEffectful = true
		m.wholeModuleRefs = append(m.wholeModuleRefs, collectIdentifiers(inner, src)...)
		return

	case "call":
		m.SideEffectful = true
		m.wholeModuleRefs = append(m.wholeModuleRefs, collectIdentifiers(inner, src)...)
		if calleeName(inner, src) == "exec" || calleeName(inner, src) == "eval" {
			m.HasExecOrEval = true
		}
		return

	default:
		m.SideEffectful = true
		m.wholeModuleRefs = append(m.wholeModuleRefs, collectIdentifiers(inner, src)...)
	}
}

func (m *Module) analyzeAssignment(assign *tree_sitter.Node, src []byte, pureNames map[string]bool) {
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil {
		m.SideEffectful = true
		return
	}

	// Self-reference elimination: "x = x" for a simple identifier resolving
	// to the same binding is a documented no-op idiom; skip recording it as
	// a fresh side-effect-or-binding event, but attribute self-assignment
	// (self.x = self.x) is retained, per spec.md §4.4.
	if left.Kind() == "identifier" && right.Kind() == "identifier" &&
		pyparse.NodeText(left, src) == pyparse.NodeText(right, src) {
		return
	}

	if left.Kind() != "identifier" {
		// Attribute/subscript/tuple assignment target: side-effectful.
		m.SideEffectful = true
		m.wholeModuleRefs = append(m.wholeModuleRefs, collectIdentifiers(right, src)...)
		return
	}

	name := pyparse.NodeText(left, src)

	if name == "locals" && m.ShadowsLocalsAt == 0 {
		m.ShadowsLocalsAt = pyparse.Line(assign)
	}
	if name == "globals" && m.ShadowsGlobalsAt == 0 {
		m.ShadowsGlobalsAt = pyparse.Line(assign)
	}

	if name == "__all__" {
		m.extractDunderAll(right, src)
		m.bind(name, types.SymAssignment, pyparse.Line(assign))
		return
	}

	pure := isPureLiteral(right, pureNames, src)
	m.bind(name, types.SymAssignment, pyparse.Line(assign))
	if pure {
		pureNames[name] = true
	} else {
		m.SideEffectful = true
	}
	m.bodyRefs[name] = append(m.bodyRefs[name], collectIdentifiers(right, src)...)
}

// isPureLiteral reports whether a right-hand-side expression is a literal
// constant, or a simple name reference to an already-pure symbol, per
// spec.md §4.4's side-effect definition.
func isPureLiteral(node *tree_sitter.Node, pureNames map[string]bool, src []byte) bool {
	switch node.Kind() {
	case "identifier":
		return pureNames[pyparse.NodeText(node, src)]
	case "unary_operator":
		// e.g. -1, for negative numeric literal constants.
		if operand := node.ChildByFieldName("argument"); operand != nil {
			return pureLiteralKinds[operand.Kind()]
		}
		return false
	case "list", "tuple", "set", "dictionary":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if !isPureLiteral(node.NamedChild(i), pureNames, src) {
				return false
			}
		}
		return true
	default:
		return pureLiteralKinds[node.Kind()]
	}
}

func (m *Module) extractDunderAll(right *tree_sitter.Node, src []byte) {
	if right.Kind() != "list" && right.Kind() != "tuple" {
		// Non-literal __all__: spec.md §7 says warn + fallback to
		// visibility rule; the caller (via ExportsExplicit=false) applies
		// that fallback.
		return
	}
	names := make(map[string]bool)
	ok := true
	for i := uint(0); i < right.NamedChildCount(); i++ {
		child := right.NamedChild(i)
		if child.Kind() != "string" {
			ok = false
			break
		}
		names[stringLiteralValue(child, src)] = true
	}
	if !ok {
		return
	}
	m.ExportsExplicit = true
	m.Exports = names
}

func (m *Module) finalizeExports() {
	if m.ExportsExplicit {
		return
	}
	for _, name := range m.Order {
		if strings.HasPrefix(name, "_") {
			continue
		}
		m.Exports[name] = true
	}
}

func (m *Module) bind(name string, kind types.SymbolKind, line int) {
	if _, exists := m.Bindings[name]; !exists {
		m.Order = append(m.Order, name)
	}
	m.Bindings[name] = &types.Binding{Name: name, Kind: kind, Line: line}
}

func (m *Module) scanRefs(name string, node *tree_sitter.Node, src []byte) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	m.bodyRefs[name] = append(m.bodyRefs[name], collectIdentifiers(body, src)...)
	if containsExecEval(body, src) {
		m.HasExecOrEval = true
	}
}

// scanNested walks into a function/class body to extract import statements
// that occur at function scope, which matter for reachability but (per
// spec.md §4.3) do not induce top-level graph edges.
func (m *Module) scanNested(node *tree_sitter.Node, src []byte) {
	pyparse.Walk(node, func(n *tree_sitter.Node) {
		if n == node {
			return
		}
		switch n.Kind() {
		case "import_statement":
			m.extractImportStatement(n, src, types.ScopeFunction)
		case "import_from_statement":
			m.extractImportFromStatement(n, src, types.ScopeFunction)
		}
	})
}

func containsExecEval(node *tree_sitter.Node, src []byte) bool {
	found := false
	pyparse.Walk(node, func(n *tree_sitter.Node) {
		if n.Kind() == "call" {
			name := calleeName(n, src)
			if name == "exec" || name == "eval" {
				found = true
			}
		}
	})
	return found
}

func calleeName(call *tree_sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" {
		return ""
	}
	return pyparse.NodeText(fn, src)
}

func collectIdentifiers(node *tree_sitter.Node, src []byte) []string {
	var names []string
	pyparse.Walk(node, func(n *tree_sitter.Node) {
		if n.Kind() == "identifier" {
			names = append(names, pyparse.NodeText(n, src))
		}
	})
	return names
}

func firstNamedChild(node *tree_sitter.Node) *tree_sitter.Node {
	if node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

func fieldText(node *tree_sitter.Node, field string, src []byte) string {
	f := node.ChildByFieldName(field)
	if f == nil {
		return ""
	}
	return pyparse.NodeText(f, src)
}

func stringLiteralValue(node *tree_sitter.Node, src []byte) string {
	text := pyparse.NodeText(node, src)
	text = strings.TrimSpace(text)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return text[len(q) : len(text)-len(q)]
		}
	}
	return text
}
