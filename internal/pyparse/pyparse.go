// Package pyparse is the parser façade (spec.md §2 stage 3): parse each
// first-party Python file once into a Tree-sitter syntax tree, with
// byte-accurate source ranges. This package keeps no cache; internal/bundle
// holds one tree per module identity.
//
// Adapted directly from the teacher's internal/parser/treesitter.go, trimmed
// to Python only (Go/TypeScript parsing has no home in a Python bundler) and
// generalized from a pooled single-parser design to a per-goroutine parser
// pool, since spec.md §5 permits parallel parsing of independent files as
// long as they join before the graph-building stage.
package pyparse

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Tree wraps a parsed Tree-sitter syntax tree with the source bytes it was
// parsed from. Callers must call Close when the tree is no longer needed.
type Tree struct {
	Root    *tree_sitter.Node
	Source  []byte
	release func()
}

// Close releases the underlying Tree-sitter tree.
func (t *Tree) Close() {
	if t.release != nil {
		t.release()
		t.release = nil
	}
}

// Parser is a pool of Tree-sitter Python parsers. Tree-sitter parsers are
// not thread-safe individually, so the pool hands out one parser per
// concurrent caller and returns it afterward (mirroring the teacher's
// mutex-serialized single parser, generalized for the bundler's concurrent
// stage-3 parse fan-out).
type Parser struct {
	mu   sync.Mutex
	pool []*tree_sitter.Parser
	lang *tree_sitter.Language
}

// New creates a Python Parser pool.
func New() (*Parser, error) {
	lang := tree_sitter.NewLanguage(tree_sitter_python.Language())
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("set python language: %w", err)
	}
	return &Parser{pool: []*tree_sitter.Parser{p}, lang: lang}, nil
}

// acquire takes a parser from the pool, creating a new one if none is idle.
func (p *Parser) acquire() (*tree_sitter.Parser, error) {
	p.mu.Lock()
	if n := len(p.pool); n > 0 {
		ps := p.pool[n-1]
		p.pool = p.pool[:n-1]
		p.mu.Unlock()
		return ps, nil
	}
	p.mu.Unlock()

	ps := tree_sitter.NewParser()
	if err := ps.SetLanguage(p.lang); err != nil {
		ps.Close()
		return nil, fmt.Errorf("set python language: %w", err)
	}
	return ps, nil
}

func (p *Parser) release(ps *tree_sitter.Parser) {
	p.mu.Lock()
	p.pool = append(p.pool, ps)
	p.mu.Unlock()
}

// Parse parses Python source into a Tree. Safe to call concurrently.
func (p *Parser) Parse(source []byte) (*Tree, error) {
	ps, err := p.acquire()
	if err != nil {
		return nil, err
	}

	tree := ps.Parse(source, nil)
	p.release(ps)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter parse returned nil")
	}

	return &Tree{Root: tree.RootNode(), Source: source, release: tree.Close}, nil
}

// Close releases every idle parser in the pool.
func (p *Parser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ps := range p.pool {
		ps.Close()
	}
	p.pool = nil
}

// NodeText extracts the text content of a Tree-sitter node from source.
func NodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// Walk walks a Tree-sitter tree depth-first, calling fn for each node.
// Grounded on the teacher's shared.WalkTree helper.
func Walk(node *tree_sitter.Node, fn func(*tree_sitter.Node)) {
	if node == nil {
		return
	}
	fn(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			Walk(child, fn)
		}
	}
}

// Line returns the 1-based source line a node starts on.
func Line(node *tree_sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

// Col returns the 0-based source column a node starts on.
func Col(node *tree_sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Column)
}
