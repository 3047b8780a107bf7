package semantic

import (
	"testing"

	"github.com/cribo-bundler/cribo/internal/pyparse"
	"github.com/cribo-bundler/cribo/pkg/types"
)

func mustAnalyze(t *testing.T, src string) *Module {
	t.Helper()
	p, err := pyparse.New()
	if err != nil {
		t.Fatalf("pyparse.New: %v", err)
	}
	defer p.Close()

	tree, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	return Analyze(tree)
}

func TestAnalyzePureModuleHasNoSideEffects(t *testing.T) {
	src := `"""docstring"""
import os


def greet(name):
    return "hi " + name


class Pet:
    pass
`
	m := mustAnalyze(t, src)
	if m.SideEffectful {
		t.Fatalf("expected pure module, got side-effectful")
	}
	if _, ok := m.Bindings["greet"]; !ok {
		t.Fatalf("expected greet binding")
	}
	if _, ok := m.Bindings["Pet"]; !ok {
		t.Fatalf("expected Pet binding")
	}
}

func TestAnalyzeCallStatementIsSideEffectful(t *testing.T) {
	src := `print("hello")
`
	m := mustAnalyze(t, src)
	if !m.SideEffectful {
		t.Fatalf("expected call statement to mark module side-effectful")
	}
}

func TestAnalyzeExplicitDunderAll(t *testing.T) {
	src := `__all__ = ["a", "b"]

a = 1
b = 2
c = 3
`
	m := mustAnalyze(t, src)
	if !m.ExportsExplicit {
		t.Fatalf("expected explicit __all__")
	}
	if !m.Exports["a"] || !m.Exports["b"] {
		t.Fatalf("expected a, b exported, got %v", m.Exports)
	}
	if m.Exports["c"] {
		t.Fatalf("c should not be exported")
	}
}

func TestAnalyzeDefaultExportsSkipUnderscorePrefixed(t *testing.T) {
	src := `def public_fn():
    pass


def _private_fn():
    pass
`
	m := mustAnalyze(t, src)
	if !m.Exports["public_fn"] {
		t.Fatalf("expected public_fn exported by default")
	}
	if m.Exports["_private_fn"] {
		t.Fatalf("_private_fn should not be exported by default")
	}
}

func TestAnalyzeSelfReferenceAssignmentIsNoOp(t *testing.T) {
	src := `x = 1
x = x
`
	m := mustAnalyze(t, src)
	if m.SideEffectful {
		t.Fatalf("x = x should not mark the module side-effectful")
	}
}

func TestAnalyzeAttributeSelfAssignmentIsSideEffectful(t *testing.T) {
	src := `class Cls:
    x = 1


Cls.x = Cls.x
`
	m := mustAnalyze(t, src)
	if !m.SideEffectful {
		t.Fatalf("Cls.x = Cls.x is an attribute assignment and must be retained as a side effect")
	}
}

func TestAnalyzeImportBindings(t *testing.T) {
	src := `import os
import os.path as osp
from pkg import helper
from pkg.sub import thing as renamed
from pkg import *
from . import sibling
from ..parent import cousin
`
	m := mustAnalyze(t, src)
	// import os; import os.path as osp; from pkg import helper;
	// from pkg.sub import thing as renamed; from pkg import *;
	// from . import sibling; from ..parent import cousin
	if len(m.Imports) != 7 {
		t.Fatalf("expected 7 import edges, got %d: %+v", len(m.Imports), m.Imports)
	}

	first := m.Imports[0]
	if first.Target != "os" || len(first.Bound) != 1 || first.Bound[0].Local != "os" {
		t.Fatalf("unexpected plain import: %+v", first)
	}

	aliased := m.Imports[1]
	if aliased.Target != "os.path" || aliased.Bound[0].Local != "osp" {
		t.Fatalf("unexpected aliased import: %+v", aliased)
	}

	star := m.Imports[4]
	if star.Target != "pkg" || star.Kind != types.ImportFromStar {
		t.Fatalf("unexpected wildcard import target: %+v", star)
	}

	sibling := m.Imports[5]
	if sibling.Level != 1 || sibling.Bound[0].Local != "sibling" {
		t.Fatalf("unexpected single-dot relative import: %+v", sibling)
	}

	cousin := m.Imports[6]
	if cousin.Level != 2 || cousin.Target != "parent" || cousin.Bound[0].Local != "cousin" {
		t.Fatalf("unexpected two-dot relative import: %+v", cousin)
	}
}

func TestAnalyzeFutureImport(t *testing.T) {
	src := `from __future__ import annotations, division
`
	m := mustAnalyze(t, src)
	if len(m.HasFuture) != 2 {
		t.Fatalf("expected 2 future feature names, got %v", m.HasFuture)
	}
}
