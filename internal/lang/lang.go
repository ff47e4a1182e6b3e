package lang

import (
	"path/filepath"
	"strings"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// RawSymbol is a language extractor's record of one construct, before
// normalization. Extractors record nesting depth; they never assign IDs,
// parents, or qualified names.
type RawSymbol struct {
	Name       string
	Kind       types.SymbolKind
	Depth      int // 0 = top level; a symbol's parent is the nearest preceding symbol at Depth-1
	StartLine  int // 1-based
	EndLine    int // 1-based, inclusive
	Signature  string
	Modifiers  []string // language-specific vocabulary, mapped to shared tags by the normalizer
	DocComment string
}

// RawFile is the unnormalized extraction result for one file.
type RawFile struct {
	Path     string
	Language types.Language
	Symbols  []RawSymbol
	Imports  []types.ImportRef
	Warnings []types.Warning
}

// ExtractFunc turns source text into raw symbol records. It never fails:
// malformed input produces warnings, not errors.
type ExtractFunc func(source, path string) *RawFile

// extractors is the closed set of per-language strategies.
var extractors = map[types.Language]ExtractFunc{
	types.LangPython:     extractPython,
	types.LangJavaScript: extractJavaScript,
	types.LangTypeScript: extractTypeScript,
	types.LangJava:       extractJava,
	types.LangKotlin:     extractKotlin,
}

// extensionMap maps file extensions to languages.
var extensionMap = map[string]types.Language{
	".py":  types.LangPython,
	".pyw": types.LangPython,
	".js":  types.LangJavaScript,
	".mjs": types.LangJavaScript,
	".cjs": types.LangJavaScript,
	".jsx": types.LangJavaScript,
	".ts":  types.LangTypeScript,
	".tsx": types.LangTypeScript,
	".java": types.LangJava,
	".kt":  types.LangKotlin,
	".kts": types.LangKotlin,
}

// Detect returns the language for a file path based on its extension.
func Detect(path string) types.Language {
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := extensionMap[ext]; ok {
		return l
	}
	return types.LangUnknown
}

// Supported reports whether the path maps to a known extractor.
func Supported(path string) bool {
	return Detect(path) != types.LangUnknown
}

// Extensions returns all file extensions with a registered extractor.
func Extensions() []string {
	exts := make([]string, 0, len(extensionMap))
	for ext := range extensionMap {
		exts = append(exts, ext)
	}
	return exts
}

// Extract dispatches to the extractor for the file's language. Files with
// an unsupported extension yield an empty RawFile carrying a single
// unsupported-language warning; callers must tolerate mixed-language trees.
func Extract(source, path string) *RawFile {
	language := Detect(path)
	fn, ok := extractors[language]
	if !ok {
		rf := &RawFile{Path: path, Language: types.LangUnknown}
		rf.Warnings = append(rf.Warnings, types.Warning{
			Code:    types.WarnUnsupportedLanguage,
			Message: "no extractor for extension " + filepath.Ext(path),
		})
		return rf
	}
	return fn(source, path)
}

// splitLines splits source text for line scanning. A trailing newline does
// not produce a phantom final line.
func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.Split(source, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// indentWidth counts leading whitespace, expanding tabs to 4 columns.
func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// warn appends a parse-recoverable warning to the raw file.
func (rf *RawFile) warn(line int, msg string) {
	rf.Warnings = append(rf.Warnings, types.Warning{
		Code:    types.WarnParseRecoverable,
		Message: msg,
		Line:    line,
	})
}
