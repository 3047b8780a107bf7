package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cribo-bundler/cribo/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunInlinesPureHelperAndStripsImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "helper.py"), "def greet(name):\n    return 'hi ' + name\n")
	writeFile(t, filepath.Join(dir, "main.py"), "from helper import greet\nprint(greet('world'))\n")

	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(dir, "main.py"),
		SourceRoots:   []string{dir},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(result.Bundle, "import helper") {
		t.Errorf("expected import statement to be stripped, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "def ") || !strings.Contains(result.Bundle, "hi '") {
		t.Errorf("expected greet's body to be inlined, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "print(") {
		t.Errorf("expected entry module body to be emitted, got:\n%s", result.Bundle)
	}
}

func TestRunTreeShakesUnreferencedDefinitions(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "simple_treeshaking_inlining")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, want := range []string{"ALICE_NAME", "def say(", "def create_ms(", "class Person", "class Sex"} {
		if !strings.Contains(result.Bundle, want) {
			t.Errorf("expected bundle to retain %q, got:\n%s", want, result.Bundle)
		}
	}
	for _, unwanted := range []string{"BOB_NAME", "def scream(", "class Pet"} {
		if strings.Contains(result.Bundle, unwanted) {
			t.Errorf("expected bundle to tree-shake %q, got:\n%s", unwanted, result.Bundle)
		}
	}
}

func TestRunReportsUnreachableModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "used.py"), "VALUE = 1\n")
	writeFile(t, filepath.Join(dir, "orphan.py"), "VALUE = 2\n")
	writeFile(t, filepath.Join(dir, "main.py"), "from used import VALUE\nprint(VALUE)\n")

	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(dir, "main.py"),
		SourceRoots:   []string{dir},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	for _, item := range result.Diagnostics.Items() {
		if strings.Contains(item.Message, "never imported") {
			found = true
		}
	}
	if !found {
		t.Error("expected a diagnostic warning about the unreachable orphan module")
	}
}

func TestRunBuildsNamespaceObjectsForWholeModuleImports(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "collections_mixed_imports")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "__cribo_namespace(") {
		t.Errorf("expected at least one synthesized namespace object, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "__cribo_get(") {
		t.Errorf("expected wrapped-module access through the lazy registry getter, got:\n%s", result.Bundle)
	}
	for _, want := range []string{"create_ordered_dict", "check_mapping"} {
		if !strings.Contains(result.Bundle, want) {
			t.Errorf("expected %q to survive bundling, got:\n%s", want, result.Bundle)
		}
	}
	if strings.Contains(result.Bundle, "import module_a") || strings.Contains(result.Bundle, "import module_b") {
		t.Errorf("expected first-party whole-module imports to be stripped, got:\n%s", result.Bundle)
	}
}

func TestRunResolvesSubmoduleVsSymbolFromImport(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "relative_import_inlined_module")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// pkg.console is side-effectful (a print at module scope) and must be
	// wrapped; pkg.errors is pure and inlined, so the bundle must reference
	// pkg.console only through the lazy registry getter, never as a bare
	// "pkg" or "pkg.console" name.
	if !strings.Contains(result.Bundle, `__cribo_get("pkg.console")`) {
		t.Errorf("expected dotted chain access to resolve through the registry getter, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "class MyError") || !strings.Contains(result.Bundle, "class AnotherError") {
		t.Errorf("expected pkg.errors's classes to be inlined, got:\n%s", result.Bundle)
	}
	if strings.Contains(result.Bundle, "from . import errors") || strings.Contains(result.Bundle, "import pkg.console") {
		t.Errorf("expected import statements to be stripped, got:\n%s", result.Bundle)
	}
}

func TestRunHoistsCollectionsAbcAcrossModules(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "collections_abc_modules")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "from collections import OrderedDict") {
		t.Errorf("expected collections import hoisted to header, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "from collections.abc import") {
		t.Errorf("expected the collections.abc import hoisted to header, got:\n%s", result.Bundle)
	}
	if strings.Contains(result.Bundle, "import helper") {
		t.Errorf("expected first-party helper import stripped, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "def process_mapping") {
		t.Errorf("expected helper.process_mapping to be inlined, got:\n%s", result.Bundle)
	}
}

func TestRunKeepsStdlibImportsReachableInsideWrapperInit(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "wrapper_stdlib_imports")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "import logging") {
		t.Errorf("expected the stdlib logging import to be hoisted to the header, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "def get_logger") {
		t.Errorf("expected wrapper_module's function to survive wrapping, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "__cribo_init_wrapper_module") {
		t.Errorf("expected wrapper_module to be wrapped (it has a module-level print), got:\n%s", result.Bundle)
	}
}

func TestRunOrdersMetaclassAndWildcardImportedSymbols(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "wildcard_metaclass_ordering")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "class YAMLObjectMetaclass") || !strings.Contains(result.Bundle, "class BaseResolver") {
		t.Errorf("expected both the metaclass and the wildcard-imported base class to be inlined, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "__cribo_namespace(") {
		t.Errorf("expected a synthesized namespace for yaml_module, got:\n%s", result.Bundle)
	}
}

func TestRunDisambiguatesFirstPartyModuleFromStdlibOfSameName(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "stdlib_module_name_collision")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "mypkg", "console.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "import abc") {
		t.Errorf("expected the stdlib abc import to still be hoisted to the header, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "def create_object") {
		t.Errorf("expected the first-party mypkg.abc module to be inlined despite sharing a name with stdlib abc, got:\n%s", result.Bundle)
	}
	if strings.Contains(result.Bundle, "from . import abc") {
		t.Errorf("expected the relative from-import to be stripped after being resolved as a submodule, got:\n%s", result.Bundle)
	}
}

func TestRunPreservesMultilineStringBoundaries(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "multiline_strings")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// strings_inline is inlined (no wrapping indentation applied to its body),
	// so its triple-quoted template must survive the byte-range splice as-is.
	if !strings.Contains(result.Bundle, "Report for {name}") {
		t.Errorf("expected the inlined module's triple-quoted string to survive untouched, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "__cribo_init_side_effect_module") {
		t.Errorf("expected side_effect_module to be wrapped, got:\n%s", result.Bundle)
	}
}

func TestRunKeepsDecoratorsFunctionalInsideWrapperInit(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "stdlib_decorator")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "import contextlib") {
		t.Errorf("expected contextlib hoisted to the header so the wrapper init function can use it, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "@contextlib.contextmanager") {
		t.Errorf("expected the decorator to survive bundling unchanged, got:\n%s", result.Bundle)
	}
}

func TestRunBundlesMultiPackageSelfReferenceAssignments(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "no_ops_multimodule_self_refs")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, want := range []string{"class DataProcessor", "class User", "class UserManager", "class Settings", "def main("} {
		if !strings.Contains(result.Bundle, want) {
			t.Errorf("expected %q to survive bundling across the package/module graph, got:\n%s", want, result.Bundle)
		}
	}
	if !strings.Contains(result.Bundle, "__cribo_namespace(") {
		t.Errorf("expected package __init__ re-exports to produce a synthesized namespace, got:\n%s", result.Bundle)
	}
}

func TestRunRespectsLocalsGlobalsShadowingWithoutCrashing(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "locals_globals_shadowing")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "locals = some_custom_function") {
		t.Errorf("expected the locals-shadowing assignment to survive unchanged, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "builtin_locals_result = locals()") {
		t.Errorf("expected the pre-shadowing locals() call to survive unchanged, got:\n%s", result.Bundle)
	}
}

func TestRunHoistsAliasedStdlibImports(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "stdlib_hoisting_aliases")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "file_utils.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, want := range []string{"import os as py_os", "import json as js", "from pathlib import Path as PyPath", "from datetime import datetime as DT"} {
		if !strings.Contains(result.Bundle, want) {
			t.Errorf("expected aliased stdlib import %q preserved verbatim, got:\n%s", want, result.Bundle)
		}
	}
}

func TestRunHoistsAliasedImportlibWithoutChasingDynamicCalls(t *testing.T) {
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "importlib_static_renaming")
	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(fixture, "main.py"),
		SourceRoots:   []string{fixture},
		PythonVersion: "3.12",
		TreeShake:     true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(result.Bundle, "import importlib as il") {
		t.Errorf("expected the aliased importlib import hoisted to header, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, "from importlib import import_module as im") {
		t.Errorf("expected the renamed import_module from-import hoisted to header, got:\n%s", result.Bundle)
	}
	if !strings.Contains(result.Bundle, `il.import_module("foo")`) {
		t.Errorf("expected the dynamic import_module call to survive unchanged (not treated as a static import), got:\n%s", result.Bundle)
	}
}

func TestRunEmitsRequirementsForThirdPartyImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.py"), "import requests\nrequests.get('https://example.com')\n")

	cfg := types.BundleConfig{
		EntryPath:     filepath.Join(dir, "main.py"),
		SourceRoots:   []string{dir},
		PythonVersion: "3.12",
		TreeShake:     true,
		EmitReqs:      true,
	}
	result, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(result.Requirements, "requests") {
		t.Errorf("expected requirements.txt contents to list 'requests', got: %q", result.Requirements)
	}
}
