package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codemap-mcp/internal/index"
	"github.com/dshills/codemap-mcp/internal/session"
	"github.com/dshills/codemap-mcp/internal/source"
	"github.com/dshills/codemap-mcp/internal/storage"
	"github.com/dshills/codemap-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotAnalyzed   = -32001 // Repository has no analysis session
	ErrorCodeNotFound      = -32002 // Requested symbol or file not found
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleAnalyzeRepository handles the analyze_repository tool invocation
func (s *Server) handleAnalyzeRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	cfg := session.Config{
		Workers: getIntDefault(args, "workers", 0),
		Filters: source.Filters{
			Include: getStringSlice(args, "include"),
			Exclude: getStringSlice(args, "exclude"),
		},
	}
	persist := getBoolDefault(args, "persist", true)

	sess, err := s.sessions.Analyze(ctx, path, cfg)
	if err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid analysis parameters", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if persist {
		snap := &storage.Snapshot{
			RootPath:   path,
			Files:      sess.Files(),
			Edges:      sess.Graph().Edges(),
			AnalyzedAt: sess.CreatedAt,
			Duration:   sess.Stats.Duration,
		}
		if err := s.storage.SaveSnapshot(ctx, snap); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to persist snapshot", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := map[string]interface{}{
		"analyzed":         true,
		"files_discovered": sess.Stats.FilesDiscovered,
		"files_analyzed":   sess.Stats.FilesAnalyzed,
		"files_failed":     sess.Stats.FilesFailed,
		"total_symbols":    sess.Stats.TotalSymbols,
		"total_warnings":   sess.Stats.TotalWarnings,
		"resolved_edges":   sess.Stats.ResolvedEdges,
		"external_edges":   sess.Stats.ExternalEdges,
		"duration_ms":      sess.Stats.Duration.Milliseconds(),
		"persisted":        persist,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sess, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	name := getStringDefault(args, "name", "")
	kinds := getStringSlice(args, "kinds")
	languages := getStringSlice(args, "languages")

	// Without a name this is a pure kind/language listing in session order.
	if name == "" {
		if len(kinds) == 0 && len(languages) == 0 {
			return nil, newMCPError(ErrorCodeEmptyQuery, "name or kinds/languages filters are required", map[string]interface{}{
				"param":  "name",
				"reason": "missing or empty",
			})
		}
		symbols := sess.Index().Filter(toKinds(kinds), toLanguages(languages))
		response := map[string]interface{}{
			"mode":    "filter",
			"count":   len(symbols),
			"symbols": symbols,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	q := index.Query{
		Name:      name,
		Mode:      index.MatchMode(getStringDefault(args, "mode", string(index.MatchExact))),
		Limit:     limit,
		Kinds:     toKinds(kinds),
		Languages: toLanguages(languages),
	}

	results, err := sess.Index().FindByName(q)
	if err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid search parameters", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"query":   name,
		"mode":    string(q.Mode),
		"count":   len(results),
		"results": results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSymbolDetail handles the symbol_detail tool invocation
func (s *Server) handleSymbolDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sess, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	symbolID, ok := args["symbol_id"].(string)
	if !ok || symbolID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "symbol_id parameter is required", map[string]interface{}{
			"param":  "symbol_id",
			"reason": "missing or empty",
		})
	}

	detail, err := sess.SymbolDetail(symbolID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "symbol not found", map[string]interface{}{
				"symbol_id": symbolID,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSONValue(detail)), nil
}

// handleListFileSymbols handles the list_file_symbols tool invocation
func (s *Server) handleListFileSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sess, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	file, ok := args["file"].(string)
	if !ok || file == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file parameter is required", map[string]interface{}{
			"param":  "file",
			"reason": "missing or empty",
		})
	}

	symbols, err := sess.Index().SymbolsInFile(file)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "file not found in analysis", map[string]interface{}{
				"file": file,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	fa, err := sess.File(file)
	response := map[string]interface{}{
		"file":    file,
		"count":   len(symbols),
		"symbols": symbols,
	}
	if err == nil {
		response["language"] = fa.Language
		if len(fa.Warnings) > 0 {
			response["warnings"] = fa.Warnings
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDependencyGraph handles the dependency_graph tool invocation
func (s *Server) handleDependencyGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sess, mcpErr := s.sessionFromArgs(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	graph := sess.Graph()
	if file, ok := args["file"].(string); ok && file != "" {
		if _, err := sess.File(file); err != nil {
			return nil, newMCPError(ErrorCodeNotFound, "file not found in analysis", map[string]interface{}{
				"file": file,
			})
		}
		response := map[string]interface{}{
			"file":         file,
			"dependencies": graph.Dependencies(file),
			"dependents":   graph.Dependents(file),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	edges := graph.Edges()
	response := map[string]interface{}{
		"edge_count": len(edges),
		"edges":      edges,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	// Prefer the live session; fall back to the stored snapshot.
	if sess, err := s.sessions.Get(path); err == nil {
		response := map[string]interface{}{
			"analyzed":    true,
			"source":      "session",
			"path":        path,
			"analyzed_at": sess.CreatedAt.Format(time.RFC3339),
			"statistics":  sess.Stats,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	project, err := s.storage.GetProject(ctx, path)
	if errors.Is(err, types.ErrNotFound) {
		response := map[string]interface{}{
			"analyzed": false,
			"path":     path,
			"message":  "Repository not analyzed. Use the analyze_repository tool first.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"analyzed": true,
		"source":   "snapshot",
		"project": map[string]interface{}{
			"path":        project.RootPath,
			"analyzed_at": project.AnalyzedAt.Format(time.RFC3339),
			"duration_ms": project.DurationMS,
		},
		"statistics": map[string]interface{}{
			"files_count":    status.FilesCount,
			"symbols_count":  status.SymbolsCount,
			"edges_count":    status.EdgesCount,
			"warnings_count": status.WarningsCount,
			"db_size_mb":     fmt.Sprintf("%.2f", status.DBSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_index_built":     status.Health.FTSIndexBuilt,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// sessionFromArgs resolves the session for the path argument, converting
// misses into MCP errors.
func (s *Server) sessionFromArgs(args map[string]interface{}) (*session.Session, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	sess, err := s.sessions.Get(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeNotAnalyzed, "repository not analyzed", map[string]interface{}{
			"path":    path,
			"message": "Use the analyze_repository tool first.",
		})
	}
	return sess, nil
}

func toKinds(names []string) []types.SymbolKind {
	out := make([]types.SymbolKind, 0, len(names))
	for _, n := range names {
		out = append(out, types.SymbolKind(n))
	}
	return out
}

func toLanguages(names []string) []types.Language {
	out := make([]types.Language, 0, len(names))
	for _, n := range names {
		out = append(out, types.Language(n))
	}
	return out
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is an accessible directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// formatJSONValue formats any value as indented JSON
func formatJSONValue(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
