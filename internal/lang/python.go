package lang

import (
	"regexp"
	"strings"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// Python extraction is a heuristic line scan, not a grammar parse. Nesting
// is tracked with an indentation-based scope stack; multi-line signatures
// and code embedded in strings are documented limitations.
var (
	pyClassRe     = regexp.MustCompile(`^class\s+(\w+)(?:\s*\(([^)]*)\))?\s*:`)
	pyDefRe       = regexp.MustCompile(`^(async\s+)?def\s+(\w+)\s*\(([^)]*)\)(?:\s*->\s*([^:]+))?\s*:`)
	pyDecoratorRe = regexp.MustCompile(`^@([\w.]+)(?:\((.*)\))?\s*$`)
	pyImportRe    = regexp.MustCompile(`^import\s+(.+?)\s*$`)
	pyFromRe      = regexp.MustCompile(`^from\s+(\S+)\s+import\s+`)
)

type pyScope struct {
	indent int
	sym    int // index into RawFile.Symbols
}

func extractPython(source, path string) *RawFile {
	rf := &RawFile{Path: path, Language: types.LangPython}
	lines := splitLines(source)

	var stack []pyScope
	var decorators []string
	lastCode := 0

	closeTo := func(indent int) {
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if rf.Symbols[top.sym].EndLine < lastCode {
				rf.Symbols[top.sym].EndLine = lastCode
			}
		}
	}

	for i := 0; i < len(lines); i++ {
		ln := i + 1
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := indentWidth(lines[i])

		// Decorators bind to the following def/class and do not close scopes.
		if m := pyDecoratorRe.FindStringSubmatch(trimmed); m != nil {
			decorators = append(decorators, "@"+m[1])
			lastCode = ln
			continue
		}

		closeTo(indent)

		if m := pyClassRe.FindStringSubmatch(trimmed); m != nil {
			sig := m[1]
			if m[2] != "" {
				sig += "(" + strings.TrimSpace(m[2]) + ")"
			}
			sym := RawSymbol{
				Name:      m[1],
				Kind:      types.KindClass,
				Depth:     len(stack),
				StartLine: ln,
				EndLine:   ln,
				Signature: sig,
				Modifiers: decorators,
			}
			decorators = nil
			lastCode = ln
			sym.DocComment, i = pyDocstring(rf, lines, i, &lastCode)
			rf.Symbols = append(rf.Symbols, sym)
			stack = append(stack, pyScope{indent: indent, sym: len(rf.Symbols) - 1})
			continue
		}

		if m := pyDefRe.FindStringSubmatch(trimmed); m != nil {
			sig := m[2] + "(" + strings.TrimSpace(m[3]) + ")"
			if ret := strings.TrimSpace(m[4]); ret != "" {
				sig += " -> " + ret
			}
			mods := decorators
			if m[1] != "" {
				mods = append(mods, types.ModAsync)
			}
			sym := RawSymbol{
				Name:      m[2],
				Kind:      types.KindFunction,
				Depth:     len(stack),
				StartLine: ln,
				EndLine:   ln,
				Signature: sig,
				Modifiers: mods,
			}
			decorators = nil
			lastCode = ln
			sym.DocComment, i = pyDocstring(rf, lines, i, &lastCode)
			rf.Symbols = append(rf.Symbols, sym)
			stack = append(stack, pyScope{indent: indent, sym: len(rf.Symbols) - 1})
			continue
		}

		// A def/class keyword that failed the full pattern (multi-line
		// signature, stray punctuation). Warn once and keep scanning.
		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "async def ") {
			rf.warn(ln, "unrecognized definition: "+truncate(trimmed, 60))
			decorators = nil
			lastCode = ln
			continue
		}

		if m := pyFromRe.FindStringSubmatch(trimmed); m != nil {
			rf.Imports = append(rf.Imports, types.ImportRef{Target: m[1], Line: ln})
			lastCode = ln
			continue
		}
		if m := pyImportRe.FindStringSubmatch(trimmed); m != nil {
			for _, mod := range strings.Split(m[1], ",") {
				mod = strings.TrimSpace(mod)
				if idx := strings.Index(mod, " as "); idx >= 0 {
					mod = strings.TrimSpace(mod[:idx])
				}
				if mod != "" {
					rf.Imports = append(rf.Imports, types.ImportRef{Target: mod, Line: ln})
				}
			}
			lastCode = ln
			continue
		}

		// Plain statement: skip string bodies so triple-quoted text cannot
		// fake definitions.
		if delim := openTripleQuote(trimmed); delim != "" {
			closed := false
			for i++; i < len(lines); i++ {
				if strings.Contains(lines[i], delim) {
					closed = true
					break
				}
			}
			if !closed {
				rf.warn(ln, "unterminated string literal")
			}
			lastCode = min(i+1, len(lines))
			continue
		}

		decorators = nil
		lastCode = ln
	}

	closeTo(0)
	return rf
}

// pyDocstring captures a docstring immediately following a def/class line.
// Returns the docstring text (without quotes) and the new scan position.
func pyDocstring(rf *RawFile, lines []string, i int, lastCode *int) (string, int) {
	j := i + 1
	for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
		j++
	}
	if j >= len(lines) {
		return "", i
	}
	trimmed := strings.TrimSpace(lines[j])
	var delim string
	switch {
	case strings.HasPrefix(trimmed, `"""`):
		delim = `"""`
	case strings.HasPrefix(trimmed, `'''`):
		delim = `'''`
	default:
		return "", i
	}

	body := trimmed[len(delim):]
	// Single-line docstring
	if idx := strings.Index(body, delim); idx >= 0 {
		*lastCode = j + 1
		return strings.TrimSpace(body[:idx]), j
	}

	var parts []string
	if body != "" {
		parts = append(parts, body)
	}
	for k := j + 1; k < len(lines); k++ {
		if idx := strings.Index(lines[k], delim); idx >= 0 {
			parts = append(parts, strings.TrimSpace(lines[k][:idx]))
			*lastCode = k + 1
			return strings.TrimSpace(strings.Join(parts, "\n")), k
		}
		parts = append(parts, strings.TrimRight(lines[k], " \t"))
	}
	rf.warn(j+1, "unterminated docstring")
	*lastCode = len(lines)
	return strings.TrimSpace(strings.Join(parts, "\n")), len(lines) - 1
}

// openTripleQuote reports the delimiter of a triple-quoted string that the
// line opens without closing, or "" if the line is balanced.
func openTripleQuote(line string) string {
	for _, delim := range []string{`"""`, `'''`} {
		if strings.Count(line, delim)%2 == 1 {
			return delim
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
