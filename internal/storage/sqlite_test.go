package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemap-mcp/pkg/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSnapshot(root string) *Snapshot {
	mkSym := func(path, qname string, kind types.SymbolKind, parentID string) types.Symbol {
		name := qname
		if i := len(qname) - 1; i >= 0 {
			for j := i; j >= 0; j-- {
				if qname[j] == '.' {
					name = qname[j+1:]
					break
				}
			}
		}
		return types.Symbol{
			ID:            types.SymbolID(path, qname, kind),
			Name:          name,
			QualifiedName: qname,
			Kind:          kind,
			Language:      types.LangPython,
			FilePath:      path,
			StartLine:     1,
			EndLine:       5,
			ParentID:      parentID,
		}
	}

	service := mkSym("svc.py", "Service", types.KindClass, "")
	fetch := mkSym("svc.py", "Service.fetch", types.KindMethod, service.ID)
	fetch.Signature = "fetch(self, id)"
	fetch.DocComment = "Fetch one record."
	fetch.Modifiers = []string{"async", "static"}

	return &Snapshot{
		RootPath: root,
		Files: []*types.FileAnalysis{
			{
				Path:     "svc.py",
				Language: types.LangPython,
				Symbols:  []types.Symbol{service, fetch},
			},
			{
				Path:     "main.py",
				Language: types.LangPython,
				Symbols:  []types.Symbol{mkSym("main.py", "run", types.KindFunction, "")},
				Warnings: []types.Warning{{Code: types.WarnParseRecoverable, Message: "odd indent", Line: 9}},
			},
		},
		Edges: []types.DependencyEdge{
			{FromFile: "main.py", ToTarget: "svc.py", Resolved: true},
			{FromFile: "main.py", ToTarget: "requests", Resolved: false},
		},
		AnalyzedAt: time.Now(),
		Duration:   125 * time.Millisecond,
	}
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	p, err := s.GetProject(ctx, "/repo/alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalFiles)
	assert.Equal(t, 3, p.TotalSymbols)
	assert.Equal(t, 2, p.TotalEdges)
	assert.Equal(t, int64(125), p.DurationMS)

	files, err := s.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "main.py", files[0].FilePath)
	assert.Equal(t, "svc.py", files[1].FilePath)
	assert.Equal(t, 1, files[0].WarningCount)
	assert.Equal(t, 2, files[1].SymbolCount)

	svc, err := s.GetFile(ctx, p.ID, "svc.py")
	require.NoError(t, err)
	assert.Equal(t, "python", svc.Language)

	symbols, err := s.ListSymbolsByFile(ctx, svc.ID)
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "Service", symbols[0].Name)

	fetch := symbols[1]
	assert.Equal(t, "Service.fetch", fetch.QualifiedName)
	assert.Equal(t, "fetch(self, id)", fetch.Signature)
	assert.Equal(t, symbols[0].SymbolID, fetch.ParentID)

	// Round-trip back to the canonical model keeps modifiers intact.
	sym := fetch.ToTypesSymbol("svc.py")
	assert.Equal(t, []string{"async", "static"}, sym.Modifiers)
	assert.Equal(t, types.KindMethod, sym.Kind)

	edges, err := s.ListEdges(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "requests", edges[0].ToTarget)
	assert.False(t, edges[0].Resolved)
	assert.True(t, edges[1].Resolved)
}

func TestSaveSnapshotReplaces(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	// Second snapshot of the same root: one file, no edges.
	snap := &Snapshot{
		RootPath: "/repo/alpha",
		Files: []*types.FileAnalysis{
			{Path: "only.py", Language: types.LangPython},
		},
	}
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	p, err := s.GetProject(ctx, "/repo/alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalFiles)
	assert.Equal(t, 0, p.TotalSymbols)

	files, err := s.ListFiles(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "only.py", files[0].FilePath)

	edges, err := s.ListEdges(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestSaveSnapshotInvalid(t *testing.T) {
	s := newTestStorage(t)
	err := s.SaveSnapshot(context.Background(), &Snapshot{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGetSymbolByStableID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	p, err := s.GetProject(ctx, "/repo/alpha")
	require.NoError(t, err)

	id := types.SymbolID("svc.py", "Service.fetch", types.KindMethod)
	sym, err := s.GetSymbol(ctx, p.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "fetch", sym.Name)
	assert.Equal(t, "Fetch one record.", sym.DocComment)

	_, err = s.GetSymbol(ctx, p.ID, "ffffffffffffffff")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSearchSymbols(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	p, err := s.GetProject(ctx, "/repo/alpha")
	require.NoError(t, err)

	hits, err := s.SearchSymbols(ctx, p.ID, "fetch", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Service.fetch", hits[0].QualifiedName)

	// Doc comments are indexed too.
	hits, err = s.SearchSymbols(ctx, p.ID, "record", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fetch", hits[0].Name)

	hits, err = s.SearchSymbols(ctx, p.ID, "nomatch", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = s.SearchSymbols(ctx, p.ID, "  ", 10)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSearchSymbolsQuotesSyntax(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	p, err := s.GetProject(ctx, "/repo/alpha")
	require.NoError(t, err)

	// FTS5 operators in the query must not cause a syntax error.
	_, err = s.SearchSymbols(ctx, p.ID, `fetch AND "NOT(`, 10)
	assert.NoError(t, err)
}

func TestDeleteProject(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	require.NoError(t, s.DeleteProject(ctx, "/repo/alpha"))

	_, err := s.GetProject(ctx, "/repo/alpha")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteProject(ctx, "/repo/alpha")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStatus(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("/repo/alpha")))

	p, err := s.GetProject(ctx, "/repo/alpha")
	require.NoError(t, err)

	status, err := s.GetStatus(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "/repo/alpha", status.Project.RootPath)
	assert.Equal(t, 2, status.FilesCount)
	assert.Equal(t, 3, status.SymbolsCount)
	assert.Equal(t, 2, status.EdgesCount)
	assert.Equal(t, 1, status.WarningsCount)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.FTSIndexBuilt)
	assert.Positive(t, status.DBSizeMB)

	_, err = s.GetStatus(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetProject(context.Background(), "/no/such/root")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
