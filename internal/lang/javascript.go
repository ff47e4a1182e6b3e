package lang

import (
	"regexp"
	"strings"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// JavaScript/TypeScript extraction is a single-pass line scan using brace
// depth as the scope model. Template literals spanning lines and multi-line
// parameter lists are documented limitations.
var (
	jsClassRe = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(abstract\s+)?class\s+(\w+)(?:\s+extends\s+([\w.$]+))?`)
	jsIfaceRe = regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)`)
	jsEnumRe  = regexp.MustCompile(`^(?:export\s+)?(?:declare\s+)?(?:const\s+)?enum\s+(\w+)`)
	jsTypeRe  = regexp.MustCompile(`^(?:export\s+)?type\s+(\w+)(?:<[^=]*>)?\s*=`)
	jsFuncRe  = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(async\s+)?function\s*(\*)?\s*(\w+)\s*\(([^)]*)\)`)
	jsArrowRe = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)(?:\s*:\s*[^=]+)?\s*=\s*(async\s+)?(\([^)]*\)|\w+)\s*(?::\s*[^=]+)?=>`)
	jsFnExpRe = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(async\s+)?function\s*(\*)?\s*\(([^)]*)\)`)
	// Method inside a class body. Keyword statements are excluded separately.
	jsMethodRe = regexp.MustCompile(`^(?:(public|private|protected)\s+)?(?:(static)\s+)?(?:(async)\s+)?(?:(get|set)\s+)?([#\w]+)\s*(?:<[^>()]*>)?\s*\(([^)]*)\)\s*(?::\s*[^{;]+)?\s*[{;]?\s*$`)

	jsImportFromRe = regexp.MustCompile(`^(?:import|export)\s+.*?\bfrom\s+['"]([^'"]+)['"]`)
	jsImportBareRe = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	jsRequireRe    = regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsDynImportRe  = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`)

	jsStringRe      = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|` + "`[^`]*`")
	jsLineCommentRe = regexp.MustCompile(`//.*$`)

	jsStmtKeywords = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true,
		"return": true, "new": true, "typeof": true, "await": true, "do": true,
		"else": true, "try": true, "throw": true, "function": true, "super": true,
	}
)

type jsScope struct {
	closeDepth int // scope ends when brace depth returns to this value
	sym        int
	container  bool // true for class/interface/enum scopes
}

func extractJavaScript(source, path string) *RawFile {
	return scanBraceLanguage(source, path, types.LangJavaScript, false)
}

func extractTypeScript(source, path string) *RawFile {
	return scanBraceLanguage(source, path, types.LangTypeScript, true)
}

func scanBraceLanguage(source, path string, language types.Language, typescript bool) *RawFile {
	rf := &RawFile{Path: path, Language: language}
	lines := splitLines(source)

	var stack []jsScope
	depth := 0
	inBlockComment := false

	var comment []string
	commentEnd := 0

	takeDoc := func(ln int) string {
		if commentEnd == ln-1 && len(comment) > 0 {
			return strings.TrimSpace(strings.Join(comment, "\n"))
		}
		return ""
	}

	push := func(sym RawSymbol, container bool, depthBefore int) {
		sym.Depth = symbolDepth(stack)
		rf.Symbols = append(rf.Symbols, sym)
		stack = append(stack, jsScope{closeDepth: depthBefore, sym: len(rf.Symbols) - 1, container: container})
	}

	for i := 0; i < len(lines); i++ {
		ln := i + 1
		cleaned, still, doc := stripJSNoise(lines[i], inBlockComment)
		wasInBlock := inBlockComment
		inBlockComment = still
		if doc != "" || wasInBlock || still {
			if doc != "" {
				comment = append(comment, doc)
			}
			commentEnd = ln
		}
		if wasInBlock && still {
			continue
		}
		trimmed := strings.TrimSpace(cleaned)
		if trimmed == "" {
			if commentEnd == ln-1 {
				// Comment block continues across the blank line boundary only
				// when directly adjacent; a blank line detaches it.
				comment = nil
				commentEnd = 0
			}
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "//") {
			comment = append(comment, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "//")))
			commentEnd = ln
			continue
		}

		depthBefore := depth
		depth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
		if depth < 0 {
			rf.warn(ln, "unbalanced closing brace")
			depth = 0
		}

		// Imports first: they never open scopes. Specifiers live inside
		// string literals, so they are matched on the raw line, before
		// noise stripping.
		raw := strings.TrimSpace(lines[i])
		if m := jsImportFromRe.FindStringSubmatch(raw); m != nil {
			rf.Imports = append(rf.Imports, types.ImportRef{Target: m[1], Line: ln})
		} else if m := jsImportBareRe.FindStringSubmatch(raw); m != nil {
			rf.Imports = append(rf.Imports, types.ImportRef{Target: m[1], Line: ln})
		} else {
			for _, m := range jsRequireRe.FindAllStringSubmatch(raw, -1) {
				rf.Imports = append(rf.Imports, types.ImportRef{Target: m[1], Line: ln})
			}
			for _, m := range jsDynImportRe.FindAllStringSubmatch(raw, -1) {
				rf.Imports = append(rf.Imports, types.ImportRef{Target: m[1], Line: ln})
			}
		}

		switch {
		case jsClassRe.MatchString(trimmed):
			m := jsClassRe.FindStringSubmatch(trimmed)
			sig := "class " + m[2]
			if m[3] != "" {
				sig += " extends " + m[3]
			}
			mods := jsExportMods(trimmed)
			if m[1] != "" {
				mods = append(mods, types.ModAbstract)
			}
			push(RawSymbol{
				Name: m[2], Kind: types.KindClass, StartLine: ln, EndLine: ln,
				Signature: sig, Modifiers: mods, DocComment: takeDoc(ln),
			}, true, depthBefore)

		case typescript && jsIfaceRe.MatchString(trimmed):
			m := jsIfaceRe.FindStringSubmatch(trimmed)
			push(RawSymbol{
				Name: m[1], Kind: types.KindInterface, StartLine: ln, EndLine: ln,
				Signature: "interface " + m[1], Modifiers: jsExportMods(trimmed),
				DocComment: takeDoc(ln),
			}, true, depthBefore)

		case typescript && jsEnumRe.MatchString(trimmed):
			m := jsEnumRe.FindStringSubmatch(trimmed)
			push(RawSymbol{
				Name: m[1], Kind: types.KindEnum, StartLine: ln, EndLine: ln,
				Signature: "enum " + m[1], Modifiers: jsExportMods(trimmed),
				DocComment: takeDoc(ln),
			}, true, depthBefore)

		case typescript && jsTypeRe.MatchString(trimmed):
			// Type aliases map onto the interface kind; no body scope.
			m := jsTypeRe.FindStringSubmatch(trimmed)
			rf.Symbols = append(rf.Symbols, RawSymbol{
				Name: m[1], Kind: types.KindInterface, Depth: symbolDepth(stack),
				StartLine: ln, EndLine: ln, Signature: "type " + m[1],
				Modifiers:  append(jsExportMods(trimmed), "type"),
				DocComment: takeDoc(ln),
			})

		case jsFuncRe.MatchString(trimmed):
			m := jsFuncRe.FindStringSubmatch(trimmed)
			sig := "function " + m[3] + "(" + strings.TrimSpace(m[4]) + ")"
			mods := jsExportMods(trimmed)
			if m[1] != "" {
				mods = append(mods, types.ModAsync)
			}
			if m[2] != "" {
				mods = append(mods, "generator")
			}
			push(RawSymbol{
				Name: m[3], Kind: types.KindFunction, StartLine: ln, EndLine: ln,
				Signature: sig, Modifiers: mods, DocComment: takeDoc(ln),
			}, false, depthBefore)

		case jsFnExpRe.MatchString(trimmed):
			m := jsFnExpRe.FindStringSubmatch(trimmed)
			mods := jsExportMods(trimmed)
			if m[2] != "" {
				mods = append(mods, types.ModAsync)
			}
			push(RawSymbol{
				Name: m[1], Kind: types.KindFunction, StartLine: ln, EndLine: ln,
				Signature: m[1] + "(" + strings.TrimSpace(m[4]) + ")",
				Modifiers: mods, DocComment: takeDoc(ln),
			}, false, depthBefore)

		case jsArrowRe.MatchString(trimmed):
			m := jsArrowRe.FindStringSubmatch(trimmed)
			params := m[3]
			if !strings.HasPrefix(params, "(") {
				params = "(" + params + ")"
			}
			mods := jsExportMods(trimmed)
			if m[2] != "" {
				mods = append(mods, types.ModAsync)
			}
			sym := RawSymbol{
				Name: m[1], Kind: types.KindFunction, StartLine: ln, EndLine: ln,
				Signature: m[1] + params + " =>", Modifiers: mods, DocComment: takeDoc(ln),
			}
			if depth > depthBefore {
				push(sym, false, depthBefore)
			} else {
				sym.Depth = symbolDepth(stack)
				rf.Symbols = append(rf.Symbols, sym)
			}

		case insideContainer(stack, depthBefore) && jsMethodRe.MatchString(trimmed) &&
			!jsStmtKeywords[firstWord(trimmed)]:
			m := jsMethodRe.FindStringSubmatch(trimmed)
			name := m[5]
			if jsStmtKeywords[name] {
				break
			}
			var mods []string
			if m[1] != "" {
				mods = append(mods, m[1]) // public/private/protected
			} else if strings.HasPrefix(name, "#") {
				mods = append(mods, types.ModPrivate)
			}
			if m[2] != "" {
				mods = append(mods, types.ModStatic)
			}
			if m[3] != "" {
				mods = append(mods, types.ModAsync)
			}
			if m[4] != "" {
				mods = append(mods, m[4]) // get/set
			}
			sym := RawSymbol{
				Name: name, Kind: types.KindMethod, StartLine: ln, EndLine: ln,
				Signature: name + "(" + strings.TrimSpace(m[6]) + ")",
				Modifiers: mods, DocComment: takeDoc(ln),
			}
			if depth > depthBefore {
				push(sym, false, depthBefore)
			} else {
				sym.Depth = symbolDepth(stack)
				rf.Symbols = append(rf.Symbols, sym)
			}

		case strings.HasPrefix(trimmed, "function") || strings.HasPrefix(trimmed, "class "):
			rf.warn(ln, "unrecognized definition: "+truncate(trimmed, 60))
		}

		// Close any scopes whose body ended on this line.
		for len(stack) > 0 && depth <= stack[len(stack)-1].closeDepth {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			rf.Symbols[top.sym].EndLine = ln
		}

		comment = nil
		commentEnd = 0
	}

	if depth != 0 {
		rf.warn(len(lines), "unbalanced braces at end of file")
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		rf.Symbols[top.sym].EndLine = len(lines)
	}
	return rf
}

// symbolDepth counts enclosing symbol scopes (not raw brace depth).
func symbolDepth(stack []jsScope) int {
	return len(stack)
}

// insideContainer reports whether the innermost open symbol scope is a
// class-like body and the line sits directly inside it.
func insideContainer(stack []jsScope, depthBefore int) bool {
	if len(stack) == 0 {
		return false
	}
	top := stack[len(stack)-1]
	return top.container && depthBefore == top.closeDepth+1
}

func jsExportMods(trimmed string) []string {
	if strings.HasPrefix(trimmed, "export ") {
		return []string{"export"}
	}
	return nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '(' || r == '\t' {
			return s[:i]
		}
	}
	return s
}

// stripJSNoise removes string literals and comments so brace counting and
// pattern matching see only code. Returns the cleaned line, whether a block
// comment continues past this line, and any doc-comment text found.
func stripJSNoise(line string, inBlock bool) (cleaned string, stillInBlock bool, doc string) {
	s := line
	if inBlock {
		end := strings.Index(s, "*/")
		if end < 0 {
			return "", true, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "*"))
		}
		doc = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s[:end]), "*/"))
		doc = strings.TrimSpace(strings.TrimPrefix(doc, "*"))
		s = s[end+2:]
	}
	s = jsStringRe.ReplaceAllString(s, `""`)
	if start := strings.Index(s, "/*"); start >= 0 {
		end := strings.Index(s[start:], "*/")
		if end < 0 {
			if strings.HasPrefix(strings.TrimSpace(s[start:]), "/**") {
				doc = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s[start:]), "/**"))
			}
			return s[:start], true, doc
		}
		if seg := strings.TrimSpace(s[start : start+end]); strings.HasPrefix(seg, "/**") {
			doc = strings.TrimSpace(strings.TrimPrefix(seg, "/**"))
		}
		s = s[:start] + s[start+end+2:]
	}
	s = jsLineCommentRe.ReplaceAllString(s, "")
	return s, false, doc
}
