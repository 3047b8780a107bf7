// Package rename implements the global rename planner (spec.md §4.5): since
// every inlined module's top level is spliced into one shared namespace, any
// top-level name defined by more than one module must be given a
// bundle-unique identifier before emission.
//
// Grounded on the conservative "preserve unless it collides" approach
// implied by spec.md's determinism requirement (§5): renames are a pure
// function of the module processing order and each module's sorted binding
// names, never of map iteration or any other non-deterministic input.
package rename

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/cribo-bundler/cribo/pkg/types"
)

// ReservedPrefix names the bundle's own runtime identifiers (the module
// registry, wrapper init functions). Build does not check user binding names
// or planned renames against this prefix.
const ReservedPrefix = "__cribo_"

var nonIdentChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Plan is the computed rename table: for each module, the map from its
// original top-level binding name to the name it must be emitted under.
// A module/name pair absent from the inner map means "keep the original
// name" (the overwhelmingly common case).
type Plan struct {
	perModule map[types.ModuleIdentity]map[string]string
}

// NameFor returns the bundle-global identifier for a binding originally
// named `original` in module `owner`.
func (p *Plan) NameFor(owner types.ModuleIdentity, original string) string {
	if renamed, ok := p.perModule[owner][original]; ok {
		return renamed
	}
	return original
}

// Build computes a rename Plan over a set of modules that will be inlined
// into one shared namespace. `entry` is processed first so that the entry
// module's own names are never disturbed (the entry body's only rewrites
// are import-statement removal and substitution of imported names); `order`
// gives the remaining modules in a deterministic processing order (the
// graph stage's topological order is expected).
func Build(entry types.ModuleIdentity, modules map[types.ModuleIdentity]*types.ModuleRecord, order []types.ModuleIdentity) *Plan {
	claimed := make(map[string]types.ModuleIdentity)
	plan := &Plan{perModule: make(map[types.ModuleIdentity]map[string]string)}

	processOrder := make([]types.ModuleIdentity, 0, len(order)+1)
	if _, ok := modules[entry]; ok {
		processOrder = append(processOrder, entry)
	}
	for _, id := range order {
		if id != entry {
			processOrder = append(processOrder, id)
		}
	}

	for _, id := range processOrder {
		rec, ok := modules[id]
		if !ok {
			continue
		}
		names := topLevelNames(rec)
		sort.Strings(names)

		for _, name := range names {
			if owner, taken := claimed[name]; !taken {
				claimed[name] = id
				continue
			} else if owner == id {
				continue
			}

			renamed := uniqueRename(name, id, claimed)
			claimed[renamed] = id
			if plan.perModule[id] == nil {
				plan.perModule[id] = make(map[string]string)
			}
			plan.perModule[id][name] = renamed
		}
	}

	return plan
}

// topLevelNames extracts the set of top-level binding names a module
// contributes to the shared namespace, in map iteration order (Build sorts
// them).
func topLevelNames(rec *types.ModuleRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for name := range rec.Bindings {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// uniqueRename tags `name` with a sanitized form of the owning module's
// identity, then disambiguates further with a numeric suffix in the rare
// case that tagged name is itself already claimed (e.g. two sibling modules
// named such that their sanitized identities collide).
func uniqueRename(name string, owner types.ModuleIdentity, claimed map[string]types.ModuleIdentity) string {
	base := name + "_" + sanitize(string(owner))
	if nonIdentChars.MatchString(base) {
		base = nonIdentChars.ReplaceAllString(base, "_")
	}
	candidate := base
	for i := 2; ; i++ {
		if _, taken := claimed[candidate]; !taken {
			return candidate
		}
		candidate = base + "_" + strconv.Itoa(i)
	}
}

func sanitize(identity string) string {
	return nonIdentChars.ReplaceAllString(identity, "_")
}
