package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// analyzeRepositoryTool returns the tool definition for analyze_repository
func analyzeRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_repository",
		Description: "Analyze a repository: extract symbols, resolve file dependencies, and build a searchable index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"include": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for files to include (e.g. 'src/**/*.py'); empty means all supported files",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for files to exclude",
					"items":       map[string]interface{}{"type": "string"},
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of concurrent extraction workers (default: CPU count)",
					"minimum":     1,
				},
				"persist": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, store the analysis snapshot in the database",
					"default":     true,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Search symbols in an analyzed repository by name, or list them by kind/language when no name is given",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an analyzed repository",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name or qualified name to search for; omit to list by kinds/languages only",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Match mode: exact, prefix, or fuzzy",
					"enum":        []string{"exact", "prefix", "fuzzy"},
					"default":     "exact",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
				"kinds": map[string]interface{}{
					"type":        "array",
					"description": "Filter by symbol kind",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"function", "class", "method", "interface", "enum", "field"},
					},
				},
				"languages": map[string]interface{}{
					"type":        "array",
					"description": "Filter by source language",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"python", "javascript", "typescript", "java", "kotlin"},
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// symbolDetailTool returns the tool definition for symbol_detail
func symbolDetailTool() mcp.Tool {
	return mcp.Tool{
		Name:        "symbol_detail",
		Description: "Get full detail for one symbol: location, signature, children, and the symbols of files that depend on it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an analyzed repository",
				},
				"symbol_id": map[string]interface{}{
					"type":        "string",
					"description": "Stable symbol ID from a previous search",
				},
			},
			Required: []string{"path", "symbol_id"},
		},
	}
}

// listFileSymbolsTool returns the tool definition for list_file_symbols
func listFileSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_file_symbols",
		Description: "List every symbol in one file, parents before children",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an analyzed repository",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the repository root",
				},
			},
			Required: []string{"path", "file"},
		},
	}
}

// dependencyGraphTool returns the tool definition for dependency_graph
func dependencyGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "dependency_graph",
		Description: "Get the file-level dependency graph, or one file's dependencies and dependents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an analyzed repository",
				},
				"file": map[string]interface{}{
					"type":        "string",
					"description": "Optional file path to scope the graph to one file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query analysis status and statistics for a repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository",
				},
			},
			Required: []string{"path"},
		},
	}
}
