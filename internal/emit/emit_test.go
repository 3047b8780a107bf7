package emit

import (
	"strings"
	"testing"

	"github.com/cribo-bundler/cribo/internal/pyparse"
	"github.com/cribo-bundler/cribo/internal/rename"
	"github.com/cribo-bundler/cribo/internal/semantic"
	"github.com/cribo-bundler/cribo/pkg/types"
)

func parseModule(t *testing.T, p *pyparse.Parser, src string) (*pyparse.Tree, *semantic.Module) {
	t.Helper()
	tree, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree, semantic.Analyze(tree)
}

func recordFromModule(id types.ModuleIdentity, mod *semantic.Module) *types.ModuleRecord {
	return &types.ModuleRecord{
		Identity:      id,
		Bindings:      mod.Bindings,
		SideEffectful: mod.SideEffectful,
		Imports:       mod.Imports,
	}
}

func TestRenderInlinesPureModuleAndStripsImports(t *testing.T) {
	p, err := pyparse.New()
	if err != nil {
		t.Fatalf("pyparse.New: %v", err)
	}
	defer p.Close()

	pkgSrc := "def helper():\n    return 1\n"
	mainSrc := "from pkg import helper\n\nresult = helper()\n"

	pkgTree, pkgMod := parseModule(t, p, pkgSrc)
	mainTree, mainMod := parseModule(t, p, mainSrc)

	nodes := map[types.ModuleIdentity]*types.ModuleRecord{
		"pkg":  recordFromModule("pkg", pkgMod),
		"main": recordFromModule("main", mainMod),
	}
	analyzed := map[types.ModuleIdentity]*semantic.Module{"pkg": pkgMod, "main": mainMod}
	trees := map[types.ModuleIdentity]*pyparse.Tree{"pkg": pkgTree, "main": mainTree}

	plan := rename.Build("main", nodes, []types.ModuleIdentity{"pkg"})

	e := &Emitter{
		Nodes:          nodes,
		Analyzed:       analyzed,
		Trees:          trees,
		Rename:         plan,
		ResolvedTarget: map[types.ModuleIdentity][]types.ModuleIdentity{"main": {"pkg"}},
	}

	emitPlan := BuildPlan("main", []types.ModuleIdentity{"pkg", "main"}, map[types.ModuleIdentity]bool{}, e)
	out, err := e.Render(emitPlan)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if strings.Contains(out, "from pkg import") {
		t.Fatalf("expected import statement to be stripped, got:\n%s", out)
	}
	if !strings.Contains(out, "def helper") {
		t.Fatalf("expected helper definition to be inlined, got:\n%s", out)
	}
	if !strings.Contains(out, "result = helper()") {
		t.Fatalf("expected helper() call preserved by name, got:\n%s", out)
	}
}

func TestRenderWrapsSideEffectfulModule(t *testing.T) {
	p, err := pyparse.New()
	if err != nil {
		t.Fatalf("pyparse.New: %v", err)
	}
	defer p.Close()

	pkgSrc := "print(\"loading\")\nvalue = 1\n"
	mainSrc := "from pkg import value\n"

	pkgTree, pkgMod := parseModule(t, p, pkgSrc)
	mainTree, mainMod := parseModule(t, p, mainSrc)

	nodes := map[types.ModuleIdentity]*types.ModuleRecord{
		"pkg":  recordFromModule("pkg", pkgMod),
		"main": recordFromModule("main", mainMod),
	}
	analyzed := map[types.ModuleIdentity]*semantic.Module{"pkg": pkgMod, "main": mainMod}
	trees := map[types.ModuleIdentity]*pyparse.Tree{"pkg": pkgTree, "main": mainTree}

	plan := rename.Build("main", nodes, []types.ModuleIdentity{"pkg"})
	e := &Emitter{
		Nodes:          nodes,
		Analyzed:       analyzed,
		Trees:          trees,
		Rename:         plan,
		ResolvedTarget: map[types.ModuleIdentity][]types.ModuleIdentity{"main": {"pkg"}},
	}

	emitPlan := BuildPlan("main", []types.ModuleIdentity{"pkg", "main"}, map[types.ModuleIdentity]bool{}, e)
	if len(emitPlan.WrapOrder) != 1 || emitPlan.WrapOrder[0] != "pkg" {
		t.Fatalf("expected pkg to be wrapped, got inline=%v wrap=%v", emitPlan.InlineOrder, emitPlan.WrapOrder)
	}

	out, err := e.Render(emitPlan)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "__cribo_init_pkg") {
		t.Fatalf("expected wrapper init function for pkg, got:\n%s", out)
	}
}

func TestRenderHoistsThirdPartyImportToHeader(t *testing.T) {
	p, err := pyparse.New()
	if err != nil {
		t.Fatalf("pyparse.New: %v", err)
	}
	defer p.Close()

	mainSrc := "import requests\nfrom os import path as p\n\nrequests.get(p)\n"
	mainTree, mainMod := parseModule(t, p, mainSrc)

	nodes := map[types.ModuleIdentity]*types.ModuleRecord{
		"main": recordFromModule("main", mainMod),
	}
	analyzed := map[types.ModuleIdentity]*semantic.Module{"main": mainMod}
	trees := map[types.ModuleIdentity]*pyparse.Tree{"main": mainTree}

	plan := rename.Build("main", nodes, nil)
	e := &Emitter{
		Nodes:          nodes,
		Analyzed:       analyzed,
		Trees:          trees,
		Rename:         plan,
		ResolvedTarget: map[types.ModuleIdentity][]types.ModuleIdentity{"main": {"", ""}},
	}

	emitPlan := BuildPlan("main", []types.ModuleIdentity{"main"}, map[types.ModuleIdentity]bool{}, e)
	out, err := e.Render(emitPlan)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "import requests") {
		t.Fatalf("expected third-party import hoisted to header, got:\n%s", out)
	}
	if !strings.Contains(out, "from os import path as p") {
		t.Fatalf("expected stdlib from-import hoisted to header, got:\n%s", out)
	}
	if strings.Count(out, "import requests") != 1 {
		t.Fatalf("expected exactly one hoisted requests import, got:\n%s", out)
	}
}
