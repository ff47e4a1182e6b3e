// Package session orchestrates the analysis pipeline for one repository
// root: discover -> extract -> normalize -> resolve -> index.
package session

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codemap-mcp/internal/depgraph"
	"github.com/dshills/codemap-mcp/internal/index"
	"github.com/dshills/codemap-mcp/internal/lang"
	"github.com/dshills/codemap-mcp/internal/normalize"
	"github.com/dshills/codemap-mcp/internal/source"
	"github.com/dshills/codemap-mcp/pkg/types"
)

// Config controls one analysis run.
type Config struct {
	Workers int // concurrent extraction workers (default: runtime.NumCPU())
	Filters source.Filters
}

// Stats summarizes an analysis run.
type Stats struct {
	FilesDiscovered int           `json:"files_discovered"`
	FilesAnalyzed   int           `json:"files_analyzed"`
	FilesFailed     int           `json:"files_failed"`
	TotalSymbols    int           `json:"total_symbols"`
	TotalWarnings   int           `json:"total_warnings"`
	ResolvedEdges   int           `json:"resolved_edges"`
	ExternalEdges   int           `json:"external_edges"`
	Duration        time.Duration `json:"duration"`
}

// Session is one completed analysis. It is immutable: re-analyzing a root
// produces a new Session rather than mutating an old one, so concurrent
// readers never observe a half-built state.
type Session struct {
	Root      string
	CreatedAt time.Time
	Stats     Stats

	files []*types.FileAnalysis
	graph *depgraph.Graph
	index *index.Index
}

// Analyzer runs analysis sessions.
type Analyzer struct {
	workers int
}

// New creates an Analyzer with a default worker count.
func New() *Analyzer {
	return &Analyzer{workers: runtime.NumCPU()}
}

// Analyze runs the full pipeline over root. Files are processed
// concurrently but the session is deterministic: results are ordered by
// path regardless of completion order, and extraction of every file
// finishes before dependency resolution begins. A file that cannot be read
// is recorded with a warning; it never fails the session.
func (a *Analyzer) Analyze(ctx context.Context, root string, cfg Config) (*Session, error) {
	if root == "" {
		return nil, fmt.Errorf("analysis root is required: %w", types.ErrInvalidInput)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = a.workers
	}

	start := time.Now()

	discovered, err := source.Scan(root, cfg.Filters)
	if err != nil {
		return nil, err
	}

	// Pre-sized result slice keyed by discovery order keeps output
	// deterministic regardless of worker scheduling.
	raw := make([]*lang.RawFile, len(discovered))
	var failed int32

	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, workers)

	for i, f := range discovered {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			data, err := source.Read(root, f.Path)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				rf := &lang.RawFile{Path: f.Path, Language: lang.Detect(f.Path)}
				rf.Warnings = append(rf.Warnings, types.Warning{
					Code:    types.WarnParseRecoverable,
					Message: fmt.Sprintf("read failed: %v", err),
				})
				raw[i] = rf
				return nil
			}
			raw[i] = lang.Extract(string(data), f.Path)
			return nil
		})
	}

	// Extraction barrier: resolution needs the complete file set.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	files := normalize.Files(raw)
	graph := depgraph.Build(files)

	s := &Session{
		Root:      root,
		CreatedAt: time.Now(),
		files:     files,
		graph:     graph,
		index:     index.Build(files),
	}

	s.Stats = Stats{
		FilesDiscovered: len(discovered),
		FilesAnalyzed:   len(discovered) - int(failed),
		FilesFailed:     int(failed),
		Duration:        time.Since(start),
	}
	for _, fa := range files {
		s.Stats.TotalSymbols += len(fa.Symbols)
		s.Stats.TotalWarnings += len(fa.Warnings)
	}
	for _, e := range graph.Edges() {
		if e.Resolved {
			s.Stats.ResolvedEdges++
		} else {
			s.Stats.ExternalEdges++
		}
	}
	return s, nil
}

// Files returns every analysis in path order. Callers must not mutate the
// returned slice.
func (s *Session) Files() []*types.FileAnalysis {
	return s.files
}

// File returns one file's analysis, or ErrNotFound.
func (s *Session) File(path string) (*types.FileAnalysis, error) {
	for _, fa := range s.files {
		if fa.Path == path {
			return fa, nil
		}
	}
	return nil, fmt.Errorf("file %q: %w", path, types.ErrNotFound)
}

// Graph returns the session's dependency graph.
func (s *Session) Graph() *depgraph.Graph {
	return s.graph
}

// Index returns the session's symbol index.
func (s *Session) Index() *index.Index {
	return s.index
}

// Detail is a symbol joined with its structural context. Dependents holds
// the symbols of every file with a resolved dependency edge to the
// symbol's file; DependentFiles is the file-level view of the same edges.
type Detail struct {
	Symbol         types.Symbol   `json:"symbol"`
	Children       []types.Symbol `json:"children,omitempty"`
	DependentFiles []string       `json:"dependent_files,omitempty"`
	Dependents     []types.Symbol `json:"dependents,omitempty"`
}

// SymbolDetail resolves one symbol ID to its full context: the symbol, its
// direct children, and the symbols declared in files that import its file.
// Edges stay file-level; each dependent file expands to its symbol list.
func (s *Session) SymbolDetail(id string) (*Detail, error) {
	sym, err := s.index.Get(id)
	if err != nil {
		return nil, err
	}
	files := s.graph.Dependents(sym.FilePath)
	var dependents []types.Symbol
	for _, f := range files {
		syms, err := s.index.SymbolsInFile(f)
		if err != nil {
			continue
		}
		dependents = append(dependents, syms...)
	}
	return &Detail{
		Symbol:         sym,
		Children:       s.index.Children(id),
		DependentFiles: files,
		Dependents:     dependents,
	}, nil
}

// Manager holds the latest session per analysis root. Re-analysis swaps the
// session atomically; readers holding the old one keep a consistent view.
type Manager struct {
	mu       sync.RWMutex
	analyzer *Analyzer
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		analyzer: New(),
		sessions: make(map[string]*Session),
	}
}

// Analyze runs a fresh session for root and makes it current.
func (m *Manager) Analyze(ctx context.Context, root string, cfg Config) (*Session, error) {
	s, err := m.analyzer.Analyze(ctx, root, cfg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[root] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the current session for root, or ErrNotFound when the root
// has not been analyzed.
func (m *Manager) Get(root string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[root]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no analysis session for %q: %w", root, types.ErrNotFound)
	}
	return s, nil
}

// Roots lists the analyzed roots.
func (m *Manager) Roots() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roots := make([]string, 0, len(m.sessions))
	for r := range m.sessions {
		roots = append(roots, r)
	}
	return roots
}
