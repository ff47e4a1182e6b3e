// Package normalize converts raw per-language extraction records into the
// canonical symbol model.
//
// Extractors record only what the source text shows: names, nesting depth,
// line ranges, language-specific modifier vocabulary. The normalizer owns
// everything cross-cutting: parent links, qualified names, stable IDs,
// shared modifier tags, and the function-to-method promotion for callables
// declared inside a class-like scope. Normalization is deterministic; the
// same raw input always yields a byte-identical FileAnalysis.
package normalize

import (
	"fmt"
	"strings"

	"github.com/dshills/codemap-mcp/internal/lang"
	"github.com/dshills/codemap-mcp/pkg/types"
)

// modifierMap translates language-specific modifier spellings onto the
// shared tag vocabulary. Unmapped modifiers pass through verbatim.
var modifierMap = map[string]string{
	"@staticmethod":   types.ModStatic,
	"@abstractmethod": types.ModAbstract,
	"@classmethod":    types.ModStatic,
	"export":          types.ModExported,
	"final":           "final",
	"open":            "open",
}

// containerKinds are the kinds whose direct callable children become methods.
var containerKinds = map[types.SymbolKind]bool{
	types.KindClass:     true,
	types.KindInterface: true,
	types.KindEnum:      true,
}

// File normalizes one raw extraction result. The returned analysis keeps
// extraction order, so a parent always precedes its children.
func File(rf *lang.RawFile) *types.FileAnalysis {
	fa := &types.FileAnalysis{
		Path:     rf.Path,
		Language: rf.Language,
		Imports:  append([]types.ImportRef(nil), rf.Imports...),
		Warnings: append([]types.Warning(nil), rf.Warnings...),
	}
	if len(rf.Symbols) == 0 {
		return fa
	}

	fa.Symbols = make([]types.Symbol, 0, len(rf.Symbols))

	// scope stack of indices into fa.Symbols, one entry per nesting level
	var scopes []int
	// occurrence count per (base qualified name, kind), for overload suffixes
	seen := make(map[string]int)
	// final (qualified name, kind) pairs already assigned in this file
	used := make(map[string]bool)

	for _, raw := range rf.Symbols {
		if raw.Depth < 0 {
			raw.Depth = 0
		}
		if raw.Depth > len(scopes) {
			// Depth gaps happen when an extractor loses track of a scope in
			// malformed input. Clamp rather than invent phantom parents.
			raw.Depth = len(scopes)
		}
		scopes = scopes[:raw.Depth]

		sym := types.Symbol{
			Name:       raw.Name,
			Kind:       raw.Kind,
			Language:   rf.Language,
			Signature:  raw.Signature,
			FilePath:   rf.Path,
			StartLine:  raw.StartLine,
			EndLine:    raw.EndLine,
			Modifiers:  mapModifiers(raw.Modifiers),
			DocComment: raw.DocComment,
		}
		if sym.StartLine <= 0 {
			sym.StartLine = 1
		}
		if sym.EndLine < sym.StartLine {
			sym.EndLine = sym.StartLine
		}

		if len(scopes) > 0 {
			parent := &fa.Symbols[scopes[len(scopes)-1]]
			sym.ParentID = parent.ID
			sym.QualifiedName = parent.QualifiedName + "." + sym.Name
			if sym.Kind == types.KindFunction && containerKinds[parent.Kind] {
				sym.Kind = types.KindMethod
			}
		} else {
			sym.QualifiedName = sym.Name
		}

		// Qualified names are unique per file and kind. The second and
		// later occurrences of an overloaded name get a signature-derived
		// suffix; an ordinal covers signatures the extractor missed.
		key := sym.QualifiedName + "\x00" + string(sym.Kind)
		seen[key]++
		if n := seen[key]; n > 1 {
			sym.QualifiedName += overloadSuffix(sym.Signature, n)
			if used[sym.QualifiedName+"\x00"+string(sym.Kind)] {
				sym.QualifiedName += fmt.Sprintf("#%d", n)
			}
		}
		used[sym.QualifiedName+"\x00"+string(sym.Kind)] = true
		sym.ID = types.SymbolID(sym.FilePath, sym.QualifiedName, sym.Kind)
		sym.SortModifiers()

		fa.Symbols = append(fa.Symbols, sym)
		scopes = append(scopes, len(fa.Symbols)-1)
	}

	return fa
}

// Files normalizes a batch of raw files, preserving input order.
func Files(raw []*lang.RawFile) []*types.FileAnalysis {
	out := make([]*types.FileAnalysis, len(raw))
	for i, rf := range raw {
		out[i] = File(rf)
	}
	return out
}

// overloadSuffix derives a disambiguating suffix from the parameter list
// of a signature. Symbols without a captured parameter list fall back to
// an occurrence ordinal.
func overloadSuffix(signature string, n int) string {
	open := strings.Index(signature, "(")
	end := strings.LastIndex(signature, ")")
	if open >= 0 && end > open {
		if params := strings.TrimSpace(signature[open+1 : end]); params != "" {
			return "(" + params + ")"
		}
	}
	return fmt.Sprintf("#%d", n)
}

// mapModifiers applies the shared-tag mapping and removes duplicates.
// Decorator modifiers keep their "@" form when no mapping exists.
func mapModifiers(mods []string) []string {
	if len(mods) == 0 {
		return nil
	}
	out := make([]string, 0, len(mods))
	present := make(map[string]bool, len(mods))
	for _, m := range mods {
		mapped := m
		if shared, ok := modifierMap[strings.ToLower(m)]; ok {
			mapped = shared
		}
		if mapped == "" || present[mapped] {
			continue
		}
		present[mapped] = true
		out = append(out, mapped)
	}
	return out
}
