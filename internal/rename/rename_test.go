package rename

import (
	"testing"

	"github.com/cribo-bundler/cribo/pkg/types"
)

func TestBuildKeepsUniqueNames(t *testing.T) {
	modules := map[types.ModuleIdentity]*types.ModuleRecord{
		"main": {Identity: "main", Bindings: map[string]*types.Binding{"run": {Name: "run"}}},
		"pkg":  {Identity: "pkg", Bindings: map[string]*types.Binding{"helper": {Name: "helper"}}},
	}
	plan := Build("main", modules, []types.ModuleIdentity{"pkg"})

	if got := plan.NameFor("main", "run"); got != "run" {
		t.Fatalf("expected run unchanged, got %s", got)
	}
	if got := plan.NameFor("pkg", "helper"); got != "helper" {
		t.Fatalf("expected helper unchanged, got %s", got)
	}
}

func TestBuildRenamesCollisionsAndPreservesEntry(t *testing.T) {
	modules := map[types.ModuleIdentity]*types.ModuleRecord{
		"main": {Identity: "main", Bindings: map[string]*types.Binding{"Config": {Name: "Config"}}},
		"pkg":  {Identity: "pkg", Bindings: map[string]*types.Binding{"Config": {Name: "Config"}}},
	}
	plan := Build("main", modules, []types.ModuleIdentity{"pkg"})

	if got := plan.NameFor("main", "Config"); got != "Config" {
		t.Fatalf("entry module's Config must keep its original name, got %s", got)
	}
	if got := plan.NameFor("pkg", "Config"); got == "Config" {
		t.Fatalf("pkg's Config must be renamed to avoid colliding with main's Config")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	modules := map[types.ModuleIdentity]*types.ModuleRecord{
		"a": {Identity: "a", Bindings: map[string]*types.Binding{"value": {Name: "value"}}},
		"b": {Identity: "b", Bindings: map[string]*types.Binding{"value": {Name: "value"}}},
		"c": {Identity: "c", Bindings: map[string]*types.Binding{"value": {Name: "value"}}},
	}
	order := []types.ModuleIdentity{"a", "b", "c"}

	first := Build("a", modules, order)
	second := Build("a", modules, order)

	for _, id := range order {
		if first.NameFor(id, "value") != second.NameFor(id, "value") {
			t.Fatalf("rename plan must be deterministic across runs for module %s", id)
		}
	}
}
