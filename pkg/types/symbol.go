package types

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// SymbolKind represents the canonical kind of an extracted symbol.
// The set is closed: new kinds are added as new constants, never by
// language-specific subtypes.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindMethod    SymbolKind = "method"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindField     SymbolKind = "field"
)

// Language identifies a supported source language.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangUnknown    Language = "unknown"
)

// Shared modifier tags. Language-specific modifiers that have no direct
// mapping (e.g. Python decorators, Kotlin "data") are kept verbatim.
const (
	ModPublic    = "public"
	ModPrivate   = "private"
	ModProtected = "protected"
	ModStatic    = "static"
	ModAbstract  = "abstract"
	ModAsync     = "async"
	ModExported  = "exported"
)

// Symbol is a named, located code construct extracted from one source file.
type Symbol struct {
	// ID is stable across runs: derived from (file path, qualified name, kind).
	ID string `json:"id"`

	Name          string     `json:"name"`
	QualifiedName string     `json:"qualified_name"` // dotted path including enclosing scopes, e.g. "Foo.bar"
	Kind          SymbolKind `json:"kind"`
	Language      Language   `json:"language"`

	// Signature is a best-effort textual parameter/return description.
	// It is never type-checked.
	Signature string `json:"signature,omitempty"`

	// FilePath is the path of the file the symbol was extracted from,
	// relative to the analysis root.
	FilePath string `json:"file_path"`

	// StartLine and EndLine are 1-based and inclusive.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Modifiers holds normalized shared tags where a mapping exists,
	// otherwise language-specific free-form tags.
	Modifiers []string `json:"modifiers,omitempty"`

	// ParentID refers to an enclosing symbol in the same file, or "" for
	// top-level symbols. Parents never cross file boundaries.
	ParentID string `json:"parent_id,omitempty"`

	// DocComment is the leading comment or docstring, verbatim.
	DocComment string `json:"doc_comment,omitempty"`
}

// SymbolID derives the stable identifier for a symbol. The same
// (path, qualifiedName, kind) triple always produces the same ID.
func SymbolID(filePath, qualifiedName string, kind SymbolKind) string {
	h := xxhash.New()
	_, _ = h.WriteString(filePath)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(qualifiedName)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(kind))
	return fmt.Sprintf("%016x", h.Sum64())
}

// ValidKind reports whether k is a member of the closed kind set.
func ValidKind(k SymbolKind) bool {
	switch k {
	case KindFunction, KindClass, KindMethod, KindInterface, KindEnum, KindField:
		return true
	}
	return false
}

// HasModifier reports whether the symbol carries the given modifier tag.
func (s *Symbol) HasModifier(mod string) bool {
	for _, m := range s.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// Validate performs structural validation of the symbol.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}
	if s.ID == "" {
		return errors.New("symbol id is required")
	}
	if !ValidKind(s.Kind) {
		return fmt.Errorf("invalid symbol kind %q", s.Kind)
	}
	if s.FilePath == "" {
		return errors.New("symbol file path is required")
	}
	if s.StartLine <= 0 || s.EndLine <= 0 {
		return errors.New("invalid range: line numbers must be positive")
	}
	if s.StartLine > s.EndLine {
		return errors.New("invalid range: start line must be <= end line")
	}
	return nil
}

// SortModifiers orders the modifier tags lexically so that equal symbols
// compare byte-identical regardless of extraction order.
func (s *Symbol) SortModifiers() {
	sort.Strings(s.Modifiers)
}
