// Package mcp implements the Model Context Protocol (MCP) server for CodeMap.
//
// The MCP server exposes six tools to AI coding assistants:
//   - analyze_repository: Run the full analysis pipeline over a repository
//   - search_symbols: Find symbols by exact, prefix, or fuzzy name match,
//     or list them by kind/language filters alone
//   - symbol_detail: Resolve one symbol ID to its full context
//   - list_file_symbols: List a file's symbols, parents before children
//   - dependency_graph: Inspect file-level dependencies
//   - get_status: Check analysis status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Standard output is reserved for protocol messages; all logging goes to
// standard error.
//
// # Sessions
//
// analyze_repository builds an immutable in-memory session per root and
// optionally persists a snapshot to SQLite. The query tools read from the
// live session of the given root; get_status falls back to the stored
// snapshot when no session exists in this process.
//
// # Error Handling
//
// Handlers return MCP protocol errors with conventional codes:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  repository not analyzed
//	-32002  symbol or file not found
//	-32004  empty query
package mcp
