package semantic

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cribo-bundler/cribo/internal/pyparse"
	"github.com/cribo-bundler/cribo/pkg/types"
)

// extractImportStatement handles "import a.b.c" and "import a.b.c as x",
// including comma-separated lists of either form. Each comma-separated
// clause names a distinct target module, so each becomes its own edge.
func (m *Module) extractImportStatement(stmt *tree_sitter.Node, src []byte, scope types.ImportScope) {
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		switch child.Kind() {
		case "dotted_name":
			target := pyparse.NodeText(child, src)
			bound := strings.SplitN(target, ".", 2)[0]
			m.Imports = append(m.Imports, types.ImportEdge{
				Target: target,
				Kind:   types.ImportPlain,
				Level:  0,
				Bound:  []types.BoundName{{Local: bound, Origin: target}},
				Scope:  scope,
				Line:   pyparse.Line(child),
				Col:    pyparse.Col(child),
			})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			target := pyparse.NodeText(name, src)
			m.Imports = append(m.Imports, types.ImportEdge{
				Target: target,
				Kind:   types.ImportPlainAs,
				Level:  0,
				Bound:  []types.BoundName{{Local: pyparse.NodeText(alias, src), Origin: target}},
				Scope:  scope,
				Line:   pyparse.Line(child),
				Col:    pyparse.Col(child),
			})
		}
	}
}

// recordPureNamesFromImport marks the names bound by a plain "import x"
// statement as pure, since a module binding itself is not a side effect
// (the side effect, if any, belongs to the imported module, not the owner).
func (m *Module) recordPureNamesFromImport(stmt *tree_sitter.Node, src []byte, pureNames map[string]bool) {
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		switch child.Kind() {
		case "dotted_name":
			pureNames[strings.SplitN(pyparse.NodeText(child, src), ".", 2)[0]] = true
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				pureNames[pyparse.NodeText(alias, src)] = true
			}
		}
	}
}

// extractImportFromStatement handles "from .pkg.mod import a, b as c" and
// "from .pkg.mod import *", computing the relative-import level from the
// leading dots on the module-name node. Every imported name shares one
// target specifier, so the whole clause becomes a single edge carrying one
// BoundName per imported name.
func (m *Module) extractImportFromStatement(stmt *tree_sitter.Node, src []byte, scope types.ImportScope) {
	moduleNode := stmt.ChildByFieldName("module_name")
	target, level := moduleSpecifierAndLevel(moduleNode, src)

	line, col := pyparse.Line(stmt), pyparse.Col(stmt)

	hasStar := false
	var bound []types.BoundName
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child == moduleNode {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			hasStar = true
		case "dotted_name", "identifier":
			name := pyparse.NodeText(child, src)
			bound = append(bound, types.BoundName{Local: name, Origin: name})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			bound = append(bound, types.BoundName{
				Local:  pyparse.NodeText(aliasNode, src),
				Origin: pyparse.NodeText(nameNode, src),
			})
		}
	}

	if hasStar {
		m.Imports = append(m.Imports, types.ImportEdge{
			Target: target,
			Kind:   types.ImportFromStar,
			Level:  level,
			Scope:  scope,
			Line:   line,
			Col:    col,
		})
		return
	}

	if len(bound) == 0 {
		return
	}
	m.Imports = append(m.Imports, types.ImportEdge{
		Target: target,
		Kind:   types.ImportFrom,
		Level:  level,
		Bound:  bound,
		Scope:  scope,
		Line:   line,
		Col:    col,
	})
}

func (m *Module) recordPureNamesFromImportFrom(stmt *tree_sitter.Node, src []byte, pureNames map[string]bool) {
	moduleNode := stmt.ChildByFieldName("module_name")
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child == moduleNode {
			continue
		}
		switch child.Kind() {
		case "dotted_name", "identifier":
			pureNames[pyparse.NodeText(child, src)] = true
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				pureNames[pyparse.NodeText(alias, src)] = true
			}
		}
	}
}

// moduleSpecifierAndLevel splits a "from" clause's module-name node (which
// for relative imports is a relative_import node wrapping leading dots and
// an optional dotted_name) into its dotted specifier and level, per
// spec.md §4.2 (level 0 = absolute, level N = N leading dots).
func moduleSpecifierAndLevel(node *tree_sitter.Node, src []byte) (string, int) {
	if node == nil {
		return "", 0
	}
	if node.Kind() != "relative_import" {
		return pyparse.NodeText(node, src), 0
	}

	level := 0
	var dotted string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_prefix":
			level += strings.Count(pyparse.NodeText(child, src), ".")
		case "dotted_name":
			dotted = pyparse.NodeText(child, src)
		}
	}
	if level == 0 {
		level = 1
	}
	return dotted, level
}

// extractFutureImport records a "from __future__ import annotations, ..."
// statement's imported feature names for header merging at emit time
// (spec.md's SUPPLEMENTED FEATURES: __future__ import merging).
func (m *Module) extractFutureImport(stmt *tree_sitter.Node, src []byte) {
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child.Kind() == "identifier" || child.Kind() == "dotted_name" {
			m.HasFuture = append(m.HasFuture, pyparse.NodeText(child, src))
		}
	}
}
