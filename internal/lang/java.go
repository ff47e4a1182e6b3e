package lang

import (
	"regexp"
	"strings"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// Java/Kotlin extraction shares the brace-depth scan model with JS/TS.
// Annotations are captured as modifiers; generics in signatures are kept
// textually, never parsed.
var (
	jvTypeRe   = regexp.MustCompile(`^((?:\w+\s+)*?)(class|interface|enum|object)\s+(\w+)`)
	jvMethodRe = regexp.MustCompile(`^((?:\w+\s+)*?)(?:<[^>]+>\s*)?([\w<>\[\],.?\s]+?)\s+(\w+)\s*\(([^)]*)\)\s*(?:throws\s+[\w.,\s]+)?\s*[{;]\s*$`)
	jvCtorRe   = regexp.MustCompile(`^((?:public|private|protected)\s+)?(\w+)\s*\(([^)]*)\)\s*\{`)
	jvFunRe    = regexp.MustCompile(`^((?:\w+\s+)*?)fun\s+(?:<[^>]+>\s+)?(\w+)\s*\(([^)]*)\)(?:\s*:\s*([^{=]+))?`)
	jvFieldRe  = regexp.MustCompile(`^((?:\w+\s+)+?)([\w<>\[\],.?]+)\s+(\w+)\s*(?:=[^;]*)?;\s*$`)
	jvPropRe   = regexp.MustCompile(`^((?:\w+\s+)*?)(val|var)\s+(\w+)(?:\s*:\s*([^={]+))?`)
	jvImportRe = regexp.MustCompile(`^import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;?\s*$`)
	jvAnnotRe  = regexp.MustCompile(`^@(\w+)(?:\(.*\))?\s*$`)

	jvModifiers = map[string]bool{
		"public": true, "private": true, "protected": true, "internal": true,
		"static": true, "final": true, "abstract": true, "sealed": true,
		"open": true, "data": true, "inner": true, "synchronized": true,
		"native": true, "default": true, "override": true, "suspend": true,
		"inline": true, "operator": true, "infix": true, "tailrec": true,
		"const": true, "lateinit": true, "transient": true, "volatile": true,
		"strictfp": true, "companion": true, "enum": true,
	}

	jvKeywords = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true,
		"return": true, "new": true, "else": true, "try": true, "do": true,
		"throw": true, "super": true, "this": true, "when": true, "package": true,
		"import": true, "assert": true, "break": true, "continue": true,
	}
)

func extractJava(source, path string) *RawFile {
	return scanJVMLanguage(source, path, types.LangJava)
}

func extractKotlin(source, path string) *RawFile {
	return scanJVMLanguage(source, path, types.LangKotlin)
}

func scanJVMLanguage(source, path string, language types.Language) *RawFile {
	kotlin := language == types.LangKotlin
	rf := &RawFile{Path: path, Language: language}
	lines := splitLines(source)

	var stack []jsScope
	var annotations []string
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

	containerName := func() string {
		for j := len(stack) - 1; j >= 0; j-- {
			if stack[j].container {
				return rf.Symbols[stack[j].sym].Name
			}
		}
		return ""
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
			continue
		}

		if m := jvAnnotRe.FindStringSubmatch(trimmed); m != nil {
			annotations = append(annotations, "@"+m[1])
			if commentEnd == ln-1 {
				commentEnd = ln // annotation line keeps the doc attached
			}
			continue
		}

		depthBefore := depth
		depth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
		if depth < 0 {
			rf.warn(ln, "unbalanced closing brace")
			depth = 0
		}

		push := func(sym RawSymbol, container bool) {
			sym.Depth = symbolDepth(stack)
			rf.Symbols = append(rf.Symbols, sym)
			if depth > depthBefore {
				stack = append(stack, jsScope{closeDepth: depthBefore, sym: len(rf.Symbols) - 1, container: container})
			}
		}

		switch {
		case jvImportRe.MatchString(trimmed):
			m := jvImportRe.FindStringSubmatch(trimmed)
			rf.Imports = append(rf.Imports, types.ImportRef{Target: m[1], Line: ln})

		case matchJVMType(trimmed) != nil:
			m := matchJVMType(trimmed)
			mods := append(annotations, jvSplitModifiers(m[1])...)
			kind := types.KindClass
			switch {
			case m[2] == "interface":
				kind = types.KindInterface
			case m[2] == "enum" || containsWord(m[1], "enum"):
				kind = types.KindEnum
				mods = removeWord(mods, "enum")
			case m[2] == "object":
				mods = append(mods, "object")
			}
			push(RawSymbol{
				Name: m[3], Kind: kind, StartLine: ln, EndLine: ln,
				Signature: m[2] + " " + m[3], Modifiers: mods, DocComment: takeDoc(ln),
			}, true)
			annotations = nil

		case kotlin && jvFunRe.MatchString(trimmed):
			m := jvFunRe.FindStringSubmatch(trimmed)
			sig := "fun " + m[2] + "(" + strings.TrimSpace(m[3]) + ")"
			if ret := strings.TrimSpace(m[4]); ret != "" {
				sig += ": " + ret
			}
			push(RawSymbol{
				Name: m[2], Kind: types.KindFunction, StartLine: ln, EndLine: ln,
				Signature: sig, Modifiers: append(annotations, jvSplitModifiers(m[1])...),
				DocComment: takeDoc(ln),
			}, false)
			annotations = nil

		case !kotlin && insideContainer(stack, depthBefore) && jvCtorRe.MatchString(trimmed) &&
			jvCtorName(trimmed) == containerName():
			m := jvCtorRe.FindStringSubmatch(trimmed)
			push(RawSymbol{
				Name: m[2], Kind: types.KindMethod, StartLine: ln, EndLine: ln,
				Signature: m[2] + "(" + strings.TrimSpace(m[3]) + ")",
				Modifiers: append(annotations, jvSplitModifiers(m[1])...),
				DocComment: takeDoc(ln),
			}, false)
			annotations = nil

		case !kotlin && insideContainer(stack, depthBefore) && jvMethodRe.MatchString(trimmed):
			m := jvMethodRe.FindStringSubmatch(trimmed)
			name := m[3]
			retType := strings.TrimSpace(m[2])
			if jvKeywords[name] || jvKeywords[firstWord(trimmed)] || jvModifiers[retType] {
				break
			}
			sig := retType + " " + name + "(" + strings.TrimSpace(m[4]) + ")"
			push(RawSymbol{
				Name: name, Kind: types.KindMethod, StartLine: ln, EndLine: ln,
				Signature: sig, Modifiers: append(annotations, jvSplitModifiers(m[1])...),
				DocComment: takeDoc(ln),
			}, false)
			annotations = nil

		case kotlin && insideContainer(stack, depthBefore) && jvPropRe.MatchString(trimmed):
			m := jvPropRe.FindStringSubmatch(trimmed)
			sig := m[2] + " " + m[3]
			if t := strings.TrimSpace(m[4]); t != "" {
				sig += ": " + t
			}
			rf.Symbols = append(rf.Symbols, RawSymbol{
				Name: m[3], Kind: types.KindField, Depth: symbolDepth(stack),
				StartLine: ln, EndLine: ln, Signature: sig,
				Modifiers:  append(annotations, jvSplitModifiers(m[1])...),
				DocComment: takeDoc(ln),
			})
			annotations = nil

		case !kotlin && insideContainer(stack, depthBefore) && jvFieldRe.MatchString(trimmed):
			m := jvFieldRe.FindStringSubmatch(trimmed)
			mods := jvSplitModifiers(m[1])
			if len(mods) == 0 || jvKeywords[m[3]] {
				break
			}
			rf.Symbols = append(rf.Symbols, RawSymbol{
				Name: m[3], Kind: types.KindField, Depth: symbolDepth(stack),
				StartLine: ln, EndLine: ln, Signature: m[2] + " " + m[3],
				Modifiers:  append(annotations, mods...),
				DocComment: takeDoc(ln),
			})
			annotations = nil

		case strings.HasPrefix(trimmed, "class ") || strings.HasPrefix(trimmed, "fun ") ||
			strings.HasPrefix(trimmed, "interface "):
			rf.warn(ln, "unrecognized definition: "+truncate(trimmed, 60))
			annotations = nil
		}

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

// matchJVMType matches a class/interface/enum/object declaration, rejecting
// lines whose leading words are not known modifiers.
func matchJVMType(trimmed string) []string {
	m := jvTypeRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil
	}
	for _, w := range strings.Fields(m[1]) {
		if !jvModifiers[w] {
			return nil
		}
	}
	return m
}

func jvCtorName(trimmed string) string {
	m := jvCtorRe.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	return m[2]
}

// jvSplitModifiers keeps only recognized modifier keywords from a matched
// prefix, dropping return types the regex may have swallowed.
func jvSplitModifiers(prefix string) []string {
	var mods []string
	for _, w := range strings.Fields(prefix) {
		if jvModifiers[w] && w != "enum" {
			mods = append(mods, w)
		}
	}
	return mods
}

func containsWord(s, word string) bool {
	for _, w := range strings.Fields(s) {
		if w == word {
			return true
		}
	}
	return false
}

func removeWord(words []string, word string) []string {
	out := words[:0]
	for _, w := range words {
		if w != word {
			out = append(out, w)
		}
	}
	return out
}
