// Package graph builds the dependency graph (spec.md §4.3): an iterative
// depth-first walk from the entry module over resolved first-party import
// edges, followed by Tarjan's strongly-connected-components algorithm to
// flag import cycles.
//
// Standard-library only: no graph/SCC library appears anywhere in the
// retrieval pack, and Tarjan's algorithm is ~90 lines of well-understood
// stdlib-only code, so no third-party dependency is introduced here. See
// DESIGN.md for the justification entry.
package graph

import (
	"fmt"
	"sort"

	"github.com/cribo-bundler/cribo/pkg/types"
)

// ResolveFunc resolves one already-extracted import edge owned by `owner` to
// the module identity it targets, returning ok=false for edges that were not
// resolvable to a first-party module (third-party/stdlib/native imports
// never become graph nodes).
type ResolveFunc func(owner types.ModuleIdentity, edge types.ImportEdge) (target types.ModuleIdentity, ok bool)

// LoadFunc loads (parses+classifies+resolves its own edges into) the
// ModuleRecord for a first-party module identity, discovering it for the
// first time during the walk.
type LoadFunc func(identity types.ModuleIdentity) (*types.ModuleRecord, error)

// Build performs the iterative DFS from entry, discovering every reachable
// first-party module exactly once, and returns the assembled
// types.DependencyGraph with SCCs computed over module-level edges only
// (spec.md §4.3: function-scoped imports never participate in cycle
// detection).
func Build(entry types.ModuleIdentity, load LoadFunc, resolve ResolveFunc) (*types.DependencyGraph, error) {
	g := &types.DependencyGraph{
		Entry: entry,
		Nodes: make(map[types.ModuleIdentity]*types.ModuleRecord),
		Edges: make(map[types.ModuleIdentity][]types.ModuleIdentity),
	}

	stack := []types.ModuleIdentity{entry}
	visited := make(map[types.ModuleIdentity]bool)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			continue
		}
		visited[id] = true

		rec, err := load(id)
		if err != nil {
			return nil, fmt.Errorf("loading module %s: %w", id, err)
		}
		g.Nodes[id] = rec

		seenTargets := make(map[types.ModuleIdentity]bool)
		for _, e := range g.Edges[id] {
			seenTargets[e] = true
		}

		for _, edge := range rec.Imports {
			if edge.Scope != types.ScopeModule {
				continue
			}
			target, ok := resolve(id, edge)
			if !ok {
				continue
			}
			if !seenTargets[target] {
				seenTargets[target] = true
				g.Edges[id] = append(g.Edges[id], target)
			}
			if !visited[target] {
				stack = append(stack, target)
			}
		}
	}

	for id := range g.Edges {
		sort.Slice(g.Edges[id], func(i, j int) bool { return g.Edges[id][i] < g.Edges[id][j] })
	}

	g.SCCs = tarjanSCCs(g)
	return g, nil
}

// tarjanSCCs computes strongly-connected components over the graph's
// module-level edges, iteratively (no recursion, to avoid stack-depth limits
// on deep import chains), returning components in deterministic order: by
// the lexicographically smallest member identity.
func tarjanSCCs(g *types.DependencyGraph) [][]types.ModuleIdentity {
	var ids []types.ModuleIdentity
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	index := make(map[types.ModuleIdentity]int)
	lowlink := make(map[types.ModuleIdentity]int)
	onStack := make(map[types.ModuleIdentity]bool)
	var stack []types.ModuleIdentity
	counter := 0
	var sccs [][]types.ModuleIdentity

	type frame struct {
		node     types.ModuleIdentity
		children []types.ModuleIdentity
		pos      int
	}

	for _, root := range ids {
		if _, seen := index[root]; seen {
			continue
		}

		var work []*frame
		work = append(work, &frame{node: root, children: g.Edges[root]})
		index[root] = counter
		lowlink[root] = counter
		counter++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := work[len(work)-1]

			if top.pos < len(top.children) {
				child := top.children[top.pos]
				top.pos++

				if _, known := g.Nodes[child]; !known {
					continue
				}

				if _, seen := index[child]; !seen {
					index[child] = counter
					lowlink[child] = counter
					counter++
					stack = append(stack, child)
					onStack[child] = true
					work = append(work, &frame{node: child, children: g.Edges[child]})
				} else if onStack[child] {
					if index[child] < lowlink[top.node] {
						lowlink[top.node] = index[child]
					}
				}
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1]
				if lowlink[top.node] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[top.node]
				}
			}

			if lowlink[top.node] == index[top.node] {
				var component []types.ModuleIdentity
				for {
					n := len(stack) - 1
					member := stack[n]
					stack = stack[:n]
					onStack[member] = false
					component = append(component, member)
					if member == top.node {
						break
					}
				}
				sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
				sccs = append(sccs, component)
			}
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// ResolveAllEdges computes, for every node's Imports in order, the resolved
// target identity (or "" if the edge did not resolve to a first-party
// module already present in nodes). The result is shared verbatim by the
// semantic reachability pass and the emitter, so both walk exactly the same
// edge-index-to-target correspondence Build itself used.
func ResolveAllEdges(nodes map[types.ModuleIdentity]*types.ModuleRecord, resolve ResolveFunc) map[types.ModuleIdentity][]types.ModuleIdentity {
	out := make(map[types.ModuleIdentity][]types.ModuleIdentity, len(nodes))
	for id, rec := range nodes {
		targets := make([]types.ModuleIdentity, len(rec.Imports))
		for i, edge := range rec.Imports {
			if target, ok := resolve(id, edge); ok {
				if _, known := nodes[target]; known {
					targets[i] = target
				}
			}
		}
		out[id] = targets
	}
	return out
}

// CyclicModules returns the set of module identities that belong to an SCC
// of size greater than one, i.e. participate in an import cycle.
func CyclicModules(g *types.DependencyGraph) map[types.ModuleIdentity]bool {
	cyclic := make(map[types.ModuleIdentity]bool)
	for _, scc := range g.SCCs {
		if len(scc) > 1 {
			for _, id := range scc {
				cyclic[id] = true
			}
		}
	}
	return cyclic
}

// TopoOrder returns module identities in dependency-first order (outside an
// import cycle, a module appears only after everything it imports): a
// recursive depth-first post-order over g.Edges, started from each node in
// sorted identity order. spec.md §4.6 requires inlined modules to be spliced
// in an order where definitions exist before use. Members of an import
// cycle appear in the order the depth-first walk finishes them.
func TopoOrder(g *types.DependencyGraph) []types.ModuleIdentity {
	visited := make(map[types.ModuleIdentity]bool)
	var order []types.ModuleIdentity

	var visit func(id types.ModuleIdentity)
	visit = func(id types.ModuleIdentity) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.Edges[id] {
			visit(dep)
		}
		order = append(order, id)
	}

	var ids []types.ModuleIdentity
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		visit(id)
	}

	return order
}
