package scanner

import (
	"fmt"
	"sync"
	"time"

	"relink/internal/core/config"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
)

// ParserPool recycles tree-sitter parser instances to avoid the per-file
// allocation overhead of sitter.NewParser() / parser.Close().
//
// Each pool is tied to a single grammar. Usage:
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type ParserPool struct {
	lang *sitter.Language
	pool sync.Pool

	leases   map[*sitter.Parser]time.Time
	leasesMu sync.Mutex
}

// NewParserPool creates a pool for the given language grammar.
// The language must remain valid for the lifetime of the pool.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{
		lang:   lang,
		leases: make(map[*sitter.Parser]time.Time),
	}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			_ = sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

// Get retrieves a parser from the pool, or allocates a new one if the pool is
// empty. The returned parser is already configured for the pool's language.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)

	p.leasesMu.Lock()
	p.leases[sp] = time.Now()
	p.leasesMu.Unlock()

	return sp
}

// Put returns a parser to the pool for reuse. Callers must not use sp after
// calling Put.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}

	p.leasesMu.Lock()
	delete(p.leases, sp)
	p.leasesMu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}

// Stats returns the number of currently leased parsers.
func (p *ParserPool) Stats() int {
	p.leasesMu.Lock()
	defer p.leasesMu.Unlock()
	return len(p.leases)
}

// Parse parses source with a pooled parser. The caller owns the returned tree
// and must Close it.
func (p *ParserPool) Parse(source []byte) (*sitter.Tree, error) {
	sp := p.Get()
	defer p.Put(sp)
	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree")
	}
	return tree, nil
}

// Pools holds one ParserPool per content format.
type Pools struct {
	byFormat map[config.Format]*ParserPool
}

func NewPools() *Pools {
	return &Pools{
		byFormat: map[config.Format]*ParserPool{
			config.FormatHTML: NewParserPool(sitter.NewLanguage(tree_sitter_html.Language())),
			config.FormatCSS:  NewParserPool(sitter.NewLanguage(tree_sitter_css.Language())),
			config.FormatJS:   NewParserPool(sitter.NewLanguage(tree_sitter_javascript.Language())),
			config.FormatJSON: NewParserPool(sitter.NewLanguage(tree_sitter_json.Language())),
		},
	}
}

func (p *Pools) For(format config.Format) (*ParserPool, error) {
	pool, ok := p.byFormat[format]
	if !ok {
		return nil, fmt.Errorf("no grammar for format %q", format)
	}
	return pool, nil
}
