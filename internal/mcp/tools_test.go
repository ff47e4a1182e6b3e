package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.storage.Close() })
	return s
}

func writeTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"models.py": "class Foo:\n    def bar(self):\n        return 1\n",
		"app.py":    "from models import Foo\n\ndef run():\n    return Foo()\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}
	return root
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func analyze(t *testing.T, s *Server, root string) map[string]interface{} {
	t.Helper()
	result, err := s.handleAnalyzeRepository(context.Background(),
		callRequest("analyze_repository", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	return resultJSON(t, result)
}

func TestHandleAnalyzeRepository(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)

	resp := analyze(t, s, root)
	assert.Equal(t, true, resp["analyzed"])
	assert.Equal(t, float64(2), resp["files_discovered"])
	assert.Equal(t, float64(2), resp["files_analyzed"])
	assert.Equal(t, float64(3), resp["total_symbols"])
	assert.Equal(t, float64(1), resp["resolved_edges"])
	assert.Equal(t, true, resp["persisted"])

	// The snapshot lands in storage when persist is on.
	p, err := s.storage.GetProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalFiles)
}

func TestHandleAnalyzeRepositoryNoPersist(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)

	result, err := s.handleAnalyzeRepository(context.Background(),
		callRequest("analyze_repository", map[string]interface{}{
			"path":    root,
			"persist": false,
		}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, false, resp["persisted"])

	_, err = s.storage.GetProject(context.Background(), root)
	assert.Error(t, err)
}

func TestHandleAnalyzeRepositoryInvalidPath(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleAnalyzeRepository(context.Background(),
		callRequest("analyze_repository", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleAnalyzeRepository(context.Background(),
		callRequest("analyze_repository", map[string]interface{}{"path": "relative/path"}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleAnalyzeRepository(context.Background(),
		callRequest("analyze_repository", map[string]interface{}{
			"path": filepath.Join(t.TempDir(), "missing"),
		}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleSearchSymbols(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)
	analyze(t, s, root)

	result, err := s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path": root,
			"name": "Foo",
		}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, float64(1), resp["count"])
	assert.Equal(t, "exact", resp["mode"])

	result, err = s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path": root,
			"name": "Fo",
			"mode": "prefix",
		}))
	require.NoError(t, err)
	resp = resultJSON(t, result)
	assert.Equal(t, float64(2), resp["count"])

	result, err = s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path":  root,
			"name":  "bar",
			"kinds": []interface{}{"method"},
		}))
	require.NoError(t, err)
	resp = resultJSON(t, result)
	assert.Equal(t, float64(1), resp["count"])
}

func TestHandleSearchSymbolsFilterOnly(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)
	analyze(t, s, root)

	// No name: kinds/languages alone list matching symbols in session order.
	result, err := s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path":  root,
			"kinds": []interface{}{"method"},
		}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, "filter", resp["mode"])
	assert.Equal(t, float64(1), resp["count"])
	symbols := resp["symbols"].([]interface{})
	require.Len(t, symbols, 1)
	assert.Equal(t, "bar", symbols[0].(map[string]interface{})["name"])

	result, err = s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path":      root,
			"languages": []interface{}{"python"},
		}))
	require.NoError(t, err)
	resp = resultJSON(t, result)
	assert.Equal(t, float64(3), resp["count"])
}

func TestHandleSearchSymbolsErrors(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)

	// Searching before analysis is a distinct error code.
	_, err := s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path": root,
			"name": "Foo",
		}))
	requireMCPError(t, err, ErrorCodeNotAnalyzed)

	analyze(t, s, root)

	_, err = s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{"path": root}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)

	_, err = s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path":  root,
			"name":  "Foo",
			"limit": float64(500),
		}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path": root,
			"name": "Foo",
			"mode": "regex",
		}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleSymbolDetail(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)
	analyze(t, s, root)

	// Find Foo's ID through search, then resolve its detail.
	result, err := s.handleSearchSymbols(context.Background(),
		callRequest("search_symbols", map[string]interface{}{
			"path": root,
			"name": "Foo",
		}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	results := resp["results"].([]interface{})
	require.Len(t, results, 1)
	symbol := results[0].(map[string]interface{})["symbol"].(map[string]interface{})
	id := symbol["id"].(string)

	result, err = s.handleSymbolDetail(context.Background(),
		callRequest("symbol_detail", map[string]interface{}{
			"path":      root,
			"symbol_id": id,
		}))
	require.NoError(t, err)
	detail := resultJSON(t, result)
	sym := detail["symbol"].(map[string]interface{})
	assert.Equal(t, "Foo", sym["name"])
	children := detail["children"].([]interface{})
	require.Len(t, children, 1)
	assert.Equal(t, "bar", children[0].(map[string]interface{})["name"])
	assert.Equal(t, []interface{}{"app.py"}, detail["dependent_files"])
	dependents := detail["dependents"].([]interface{})
	require.Len(t, dependents, 1)
	assert.Equal(t, "run", dependents[0].(map[string]interface{})["name"])

	_, err = s.handleSymbolDetail(context.Background(),
		callRequest("symbol_detail", map[string]interface{}{
			"path":      root,
			"symbol_id": "ffffffffffffffff",
		}))
	requireMCPError(t, err, ErrorCodeNotFound)
}

func TestHandleListFileSymbols(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)
	analyze(t, s, root)

	result, err := s.handleListFileSymbols(context.Background(),
		callRequest("list_file_symbols", map[string]interface{}{
			"path": root,
			"file": "models.py",
		}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, float64(2), resp["count"])
	assert.Equal(t, "python", resp["language"])

	symbols := resp["symbols"].([]interface{})
	first := symbols[0].(map[string]interface{})
	assert.Equal(t, "Foo", first["name"])

	_, err = s.handleListFileSymbols(context.Background(),
		callRequest("list_file_symbols", map[string]interface{}{
			"path": root,
			"file": "nope.py",
		}))
	requireMCPError(t, err, ErrorCodeNotFound)
}

func TestHandleDependencyGraph(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)
	analyze(t, s, root)

	result, err := s.handleDependencyGraph(context.Background(),
		callRequest("dependency_graph", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, float64(1), resp["edge_count"])

	result, err = s.handleDependencyGraph(context.Background(),
		callRequest("dependency_graph", map[string]interface{}{
			"path": root,
			"file": "app.py",
		}))
	require.NoError(t, err)
	resp = resultJSON(t, result)
	deps := resp["dependencies"].([]interface{})
	require.Len(t, deps, 1)
	assert.Empty(t, resp["dependents"])

	result, err = s.handleDependencyGraph(context.Background(),
		callRequest("dependency_graph", map[string]interface{}{
			"path": root,
			"file": "models.py",
		}))
	require.NoError(t, err)
	resp = resultJSON(t, result)
	assert.Equal(t, []interface{}{"app.py"}, resp["dependents"])

	_, err = s.handleDependencyGraph(context.Background(),
		callRequest("dependency_graph", map[string]interface{}{
			"path": root,
			"file": "nope.py",
		}))
	requireMCPError(t, err, ErrorCodeNotFound)
}

func TestHandleGetStatus(t *testing.T) {
	s := newTestServer(t)
	root := writeTestRepo(t)

	// Before any analysis: not analyzed, no error.
	result, err := s.handleGetStatus(context.Background(),
		callRequest("get_status", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, false, resp["analyzed"])

	analyze(t, s, root)

	result, err = s.handleGetStatus(context.Background(),
		callRequest("get_status", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	resp = resultJSON(t, result)
	assert.Equal(t, true, resp["analyzed"])
	assert.Equal(t, "session", resp["source"])
}

func TestHandleGetStatusSnapshotFallback(t *testing.T) {
	dbDir := t.TempDir()
	root := writeTestRepo(t)

	s1, err := NewServer(dbDir)
	require.NoError(t, err)
	analyze(t, s1, root)
	require.NoError(t, s1.storage.Close())

	// A fresh server has no live session; status comes from the snapshot.
	s2, err := NewServer(dbDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.storage.Close() })

	result, err := s2.handleGetStatus(context.Background(),
		callRequest("get_status", map[string]interface{}{"path": root}))
	require.NoError(t, err)
	resp := resultJSON(t, result)
	assert.Equal(t, true, resp["analyzed"])
	assert.Equal(t, "snapshot", resp["source"])

	stats := resp["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["files_count"])
	assert.Equal(t, float64(3), stats["symbols_count"])

	health := resp["health"].(map[string]interface{})
	assert.Equal(t, true, health["database_accessible"])
	assert.Equal(t, true, health["fts_index_built"])
}

func TestHandleInvalidArguments(t *testing.T) {
	s := newTestServer(t)
	req := mcp.CallToolRequest{}
	req.Params.Name = "search_symbols"
	req.Params.Arguments = "not a map"

	_, err := s.handleSearchSymbols(context.Background(), req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, validatePath(dir))

	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("relative"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(dir, "missing")), ErrPathNotFound)

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
}
