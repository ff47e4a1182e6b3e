// Package index provides in-memory symbol lookup over one analysis session.
//
// Three match modes are supported: exact, prefix, and fuzzy. Exact and
// prefix match against both simple and qualified names; fuzzy scoring uses
// case-insensitive Jaro-Winkler similarity over the simple name, so
// symbols differing only in case score identically. Result order is
// deterministic for every mode: score (fuzzy only), then qualified name,
// then file path. Fuzzy queries are cached in a small LRU keyed by the
// query shape, since interactive clients tend to repeat them while typing.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hbollon/go-edlib"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// MatchMode selects the name-matching strategy for FindByName.
type MatchMode string

const (
	MatchExact  MatchMode = "exact"
	MatchPrefix MatchMode = "prefix"
	MatchFuzzy  MatchMode = "fuzzy"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a fuzzy hit.
const fuzzyThreshold = 0.80

// defaultLimit bounds result sets when the caller does not set one.
const defaultLimit = 50

// fuzzyCacheSize bounds the fuzzy query cache.
const fuzzyCacheSize = 256

// Query carries search parameters for FindByName and Filter.
type Query struct {
	Name  string
	Mode  MatchMode
	Limit int

	// Optional filters, applied after matching. Empty means no constraint.
	Kinds     []types.SymbolKind
	Languages []types.Language
	Files     []string
}

// Result is one search hit. Score is 1.0 for exact and prefix matches.
type Result struct {
	Symbol types.Symbol `json:"symbol"`
	Score  float64      `json:"score"`
}

// Index is an immutable in-memory symbol index over one session.
type Index struct {
	symbols  []types.Symbol
	byID     map[string]int
	byFile   map[string][]int
	children map[string][]int

	fuzzyCache *lru.Cache[string, []Result]
}

// Build constructs an index over the given analyses. Symbols keep session
// order: files in session order, symbols in extraction order within a file.
func Build(files []*types.FileAnalysis) *Index {
	idx := &Index{
		byID:     make(map[string]int),
		byFile:   make(map[string][]int),
		children: make(map[string][]int),
	}
	for _, fa := range files {
		for _, sym := range fa.Symbols {
			i := len(idx.symbols)
			idx.symbols = append(idx.symbols, sym)
			idx.byID[sym.ID] = i
			idx.byFile[sym.FilePath] = append(idx.byFile[sym.FilePath], i)
			if sym.ParentID != "" {
				idx.children[sym.ParentID] = append(idx.children[sym.ParentID], i)
			}
		}
	}
	cache, err := lru.New[string, []Result](fuzzyCacheSize)
	if err == nil {
		idx.fuzzyCache = cache
	}
	return idx
}

// Len returns the number of indexed symbols.
func (idx *Index) Len() int {
	return len(idx.symbols)
}

// Get returns the symbol with the given ID, or ErrNotFound.
func (idx *Index) Get(id string) (types.Symbol, error) {
	i, ok := idx.byID[id]
	if !ok {
		return types.Symbol{}, fmt.Errorf("symbol %q: %w", id, types.ErrNotFound)
	}
	return idx.symbols[i], nil
}

// Children returns the direct child symbols of the given ID, in extraction
// order. A missing or childless ID yields an empty slice.
func (idx *Index) Children(id string) []types.Symbol {
	ids := idx.children[id]
	out := make([]types.Symbol, 0, len(ids))
	for _, i := range ids {
		out = append(out, idx.symbols[i])
	}
	return out
}

// SymbolsInFile returns every symbol of one file in extraction order, so a
// parent always precedes its children. Unknown paths yield ErrNotFound.
func (idx *Index) SymbolsInFile(path string) ([]types.Symbol, error) {
	ids, ok := idx.byFile[path]
	if !ok {
		return nil, fmt.Errorf("file %q: %w", path, types.ErrNotFound)
	}
	out := make([]types.Symbol, 0, len(ids))
	for _, i := range ids {
		out = append(out, idx.symbols[i])
	}
	return out, nil
}

// FindByName searches the index. An empty name or unknown mode is
// ErrInvalidInput; a valid query with no hits returns an empty, non-nil
// slice.
func (idx *Index) FindByName(q Query) ([]Result, error) {
	if strings.TrimSpace(q.Name) == "" {
		return nil, fmt.Errorf("search name is required: %w", types.ErrInvalidInput)
	}
	mode := q.Mode
	if mode == "" {
		mode = MatchExact
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var hits []Result
	switch mode {
	case MatchExact:
		for _, sym := range idx.symbols {
			if sym.Name == q.Name || sym.QualifiedName == q.Name {
				hits = append(hits, Result{Symbol: sym, Score: 1.0})
			}
		}
		sortResults(hits)
	case MatchPrefix:
		for _, sym := range idx.symbols {
			if strings.HasPrefix(sym.Name, q.Name) || strings.HasPrefix(sym.QualifiedName, q.Name) {
				hits = append(hits, Result{Symbol: sym, Score: 1.0})
			}
		}
		sortResults(hits)
	case MatchFuzzy:
		hits = idx.fuzzy(q.Name)
	default:
		return nil, fmt.Errorf("unknown match mode %q: %w", q.Mode, types.ErrInvalidInput)
	}

	hits = filterResults(hits, q)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []Result{}
	}
	return hits, nil
}

// Filter lists symbols matching the kind and language constraints, in
// session order. Empty constraint slices match everything; an empty index
// yields an empty, non-nil slice.
func (idx *Index) Filter(kinds []types.SymbolKind, languages []types.Language) []types.Symbol {
	kindSet := make(map[types.SymbolKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}
	langSet := make(map[types.Language]bool, len(languages))
	for _, l := range languages {
		langSet[l] = true
	}

	out := []types.Symbol{}
	for _, sym := range idx.symbols {
		if len(kindSet) > 0 && !kindSet[sym.Kind] {
			continue
		}
		if len(langSet) > 0 && !langSet[sym.Language] {
			continue
		}
		out = append(out, sym)
	}
	return out
}

// fuzzy scores every symbol name case-insensitively and keeps those above
// the threshold. Equal-score hits fall through to sortResults' qualified
// name and file path ordering.
func (idx *Index) fuzzy(name string) []Result {
	name = strings.ToLower(name)
	key := cacheKey(name)
	if idx.fuzzyCache != nil {
		if cached, ok := idx.fuzzyCache.Get(key); ok {
			return append([]Result(nil), cached...)
		}
	}

	var hits []Result
	for _, sym := range idx.symbols {
		score, err := edlib.StringsSimilarity(name, strings.ToLower(sym.Name), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) >= fuzzyThreshold {
			hits = append(hits, Result{Symbol: sym, Score: float64(score)})
		}
	}
	sortResults(hits)

	if idx.fuzzyCache != nil {
		idx.fuzzyCache.Add(key, append([]Result(nil), hits...))
	}
	return hits
}

// sortResults orders hits by score descending, then qualified name, then
// file path. Ties are impossible past that: (path, qualified name, kind) is
// unique and kind differences hash into distinct IDs.
func sortResults(hits []Result) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Symbol.QualifiedName != hits[j].Symbol.QualifiedName {
			return hits[i].Symbol.QualifiedName < hits[j].Symbol.QualifiedName
		}
		return hits[i].Symbol.FilePath < hits[j].Symbol.FilePath
	})
}

// filterResults applies kind, language, and file constraints while keeping
// result order.
func filterResults(hits []Result, q Query) []Result {
	if len(q.Kinds) == 0 && len(q.Languages) == 0 && len(q.Files) == 0 {
		return hits
	}
	kinds := make(map[types.SymbolKind]bool, len(q.Kinds))
	for _, k := range q.Kinds {
		kinds[k] = true
	}
	langs := make(map[types.Language]bool, len(q.Languages))
	for _, l := range q.Languages {
		langs[l] = true
	}
	files := make(map[string]bool, len(q.Files))
	for _, f := range q.Files {
		files[f] = true
	}

	out := hits[:0]
	for _, h := range hits {
		if len(kinds) > 0 && !kinds[h.Symbol.Kind] {
			continue
		}
		if len(langs) > 0 && !langs[h.Symbol.Language] {
			continue
		}
		if len(files) > 0 && !files[h.Symbol.FilePath] {
			continue
		}
		out = append(out, h)
	}
	return out
}

func cacheKey(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}
