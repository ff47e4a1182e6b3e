// Package types provides shared type definitions for the CodeMap MCP server.
//
// This package defines the canonical symbol model produced by the analysis
// engine and consumed by the index, dependency graph, storage, CLI, and MCP
// tool handlers.
//
// # Core Types
//
// Symbol represents a named code construct (function, class, method,
// interface, enum, field) extracted from source text:
//
//	symbol := types.Symbol{
//	    ID:            types.SymbolID("a.py", "Foo.bar", types.KindMethod),
//	    Name:          "bar",
//	    QualifiedName: "Foo.bar",
//	    Kind:          types.KindMethod,
//	    Language:      types.LangPython,
//	    Signature:     "bar(self)",
//	}
//
// FileAnalysis is one file's extraction result: its symbols in extraction
// order (a parent always precedes its children), its raw import statements,
// and any non-fatal warnings.
//
// DependencyEdge is a directed file-level dependency. Resolved edges point
// at another analyzed file; unresolved edges carry the external module
// specifier verbatim.
//
// # Identity
//
// Symbol IDs are stable: the same (file path, qualified name, kind) triple
// always hashes to the same ID, so re-analyzing identical input yields
// byte-identical symbol lists.
//
// # Error Taxonomy
//
// Extraction problems are warnings, never errors: unsupported-language files
// are skipped with a warning, and unparseable constructs produce
// parse-recoverable warnings while extraction continues. Lookup misses
// return ErrNotFound; only ErrInvalidInput fails an operation, and it never
// aborts a session of otherwise-valid files.
package types
