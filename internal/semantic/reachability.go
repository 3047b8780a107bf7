package semantic

import "github.com/cribo-bundler/cribo/pkg/types"

// workItem is a (module, binding name) pair queued for reachability propagation.
type workItem struct {
	id   types.ModuleIdentity
	name string
}

// Graph is the minimal view reachability needs of the whole module set: one
// analyzed Module per module identity, plus the import edges recorded on
// each types.ModuleRecord (owner -> target, already resolved to identities).
type Graph struct {
	Entry   types.ModuleIdentity
	Modules map[types.ModuleIdentity]*Module
	// ResolvedTargets maps an owner module's ImportEdge (by index, matching
	// Module.Imports) to the resolved target identity. Built by the graph
	// stage alongside types.DependencyGraph.
	ResolvedTargets map[types.ModuleIdentity][]types.ModuleIdentity
}

// ComputeReachability implements spec.md §4.4's tree-shaking propagation:
// starting from every name the entry module's own top-level code references,
// follow import edges to mark the bound origin names reachable in the
// imported module, then recursively pull in any name referenced inside a
// reachable definition's body (spec.md §8 item 6: a class method body can
// make an otherwise-unused helper function reachable).
//
// Over-approximation is safe here (tree-shaking is a quality property, not a
// correctness one, per spec.md): "import m" without static attribute
// narrowing conservatively reaches every export of m, and an unresolved
// wildcard reaches every export of its source module.
func ComputeReachability(g *Graph) map[types.ModuleIdentity]map[string]bool {
	reachable := make(map[types.ModuleIdentity]map[string]bool)
	for id := range g.Modules {
		reachable[id] = make(map[string]bool)
	}

	entry := g.Modules[g.Entry]
	if entry == nil {
		return reachable
	}

	var queue []workItem

	seedNames := make(map[string]bool)
	for _, n := range entry.wholeModuleRefs {
		seedNames[n] = true
	}
	for _, names := range entry.bodyRefs {
		for _, n := range names {
			seedNames[n] = true
		}
	}
	for name := range seedNames {
		if _, bound := entry.Bindings[name]; bound {
			queue = append(queue, workItem{g.Entry, name})
		}
	}

	// Entry import edges directly seed reachability in imported modules.
	edges := entry.Imports
	targets := g.ResolvedTargets[g.Entry]
	queue = append(queue, seedFromEdges(g, edges, targets)...)

	visited := make(map[types.ModuleIdentity]map[string]bool)
	for id := range g.Modules {
		visited[id] = make(map[string]bool)
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.id][item.name] {
			continue
		}
		visited[item.id][item.name] = true
		reachable[item.id][item.name] = true

		mod := g.Modules[item.id]
		if mod == nil {
			continue
		}

		// Intra-module propagation: names referenced inside this binding's
		// body, including names bound by one of this module's imports so the
		// cross-module step below follows them.
		for _, ref := range mod.bodyRefs[item.name] {
			_, bound := mod.Bindings[ref]
			for _, edge := range mod.Imports {
				for _, bn := range edge.Bound {
					if bn.Local == ref {
						bound = true
					}
				}
			}
			if bound {
				queue = append(queue, workItem{item.id, ref})
			}
		}

		// Cross-module propagation: import edges reached via this binding's
		// body (e.g. a function body that imports at function scope, or a
		// module-level import bound to a name this binding's body uses).
		for idx, edge := range mod.Imports {
			for _, bn := range edge.Bound {
				if bn.Local != item.name {
					continue
				}
				queue = append(queue, seedFromEdgeBinding(g, resolvedTarget(g, item.id, idx), edge.Kind, bn)...)
			}
		}
	}

	return reachable
}

func seedFromEdges(g *Graph, edges []types.ImportEdge, targets []types.ModuleIdentity) []workItem {
	var out []workItem
	for i, edge := range edges {
		var target types.ModuleIdentity
		if i < len(targets) {
			target = targets[i]
		}
		out = append(out, seedFromEdge(g, edge, target)...)
	}
	return out
}

// seedFromEdge seeds reachability from one import edge's full effect: every
// bound name it introduces (for a star import, every export of the target).
func seedFromEdge(g *Graph, edge types.ImportEdge, target types.ModuleIdentity) []workItem {
	var out []workItem
	if target == "" {
		return out
	}
	targetMod := g.Modules[target]
	if targetMod == nil {
		return out
	}

	if edge.Kind == types.ImportFromStar {
		for name := range targetMod.Exports {
			out = append(out, workItem{target, name})
		}
		return out
	}

	for _, bn := range edge.Bound {
		out = append(out, seedFromEdgeBinding(g, target, edge.Kind, bn)...)
	}
	return out
}

// seedFromEdgeBinding seeds reachability for one BoundName of an import
// edge whose target is already known. A plain "import m" / "import m as a"
// binding conservatively reaches every export of m (no static
// attribute-access narrowing, per the doc comment above); a "from m import
// n [as a]" binding reaches only n.
func seedFromEdgeBinding(g *Graph, target types.ModuleIdentity, kind types.ImportKind, bn types.BoundName) []workItem {
	var out []workItem
	if target == "" {
		return out
	}
	targetMod := g.Modules[target]
	if targetMod == nil {
		return out
	}

	if kind == types.ImportPlain || kind == types.ImportPlainAs {
		for name := range targetMod.Exports {
			out = append(out, workItem{target, name})
		}
		return out
	}
	out = append(out, workItem{target, bn.Origin})
	return out
}

func resolvedTarget(g *Graph, owner types.ModuleIdentity, edgeIdx int) types.ModuleIdentity {
	targets := g.ResolvedTargets[owner]
	if edgeIdx < len(targets) {
		return targets[edgeIdx]
	}
	return ""
}
