package formula

import "sync"

// astKey is a normalized AST rendering used for deduplication: two
// formulas with the same structure (ignoring whitespace) share one key.
// we use a string key because maps are not comparable.
type astKey string

func normalizeAST(ast ASTNode) astKey {
	if ast == nil {
		return ""
	}
	return astKey(ast.ToString())
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// ParseCache memoizes parsed formulas. ASTs are immutable, so one parse
// can be shared by every cell carrying the same formula text; a second
// index on the normalized rendering deduplicates formulas that differ
// only in spacing. safe for concurrent use.
type ParseCache struct {
	mu       sync.RWMutex
	byText   map[string]ASTNode
	byShape  map[astKey]ASTNode
	hits     int64
	misses   int64
}

// NewParseCache creates an empty cache
func NewParseCache() *ParseCache {
	return &ParseCache{
		byText:  make(map[string]ASTNode),
		byShape: make(map[astKey]ASTNode),
	}
}

// Parse returns the cached AST for text, parsing and caching on a miss.
// parse failures are never cached; malformed text is usually mid-edit
// and will change.
func (c *ParseCache) Parse(text string) (ASTNode, error) {
	c.mu.RLock()
	ast, ok := c.byText[text]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return ast, nil
	}

	ast, err := ParseFormula(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	// a structurally identical formula may already be interned under a
	// different spelling; reuse its AST
	key := normalizeAST(ast)
	if shared, exists := c.byShape[key]; exists {
		c.byText[text] = shared
		return shared, nil
	}
	c.byShape[key] = ast
	c.byText[text] = ast
	return ast, nil
}

// Stats returns a snapshot of cache counters
func (c *ParseCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.byText),
	}
}

// Clear removes all cached formulas and resets the counters
func (c *ParseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byText = make(map[string]ASTNode)
	c.byShape = make(map[astKey]ASTNode)
	c.hits = 0
	c.misses = 0
}
