package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemap-mcp/internal/lang"
	"github.com/dshills/codemap-mcp/pkg/types"
)

func rawFixture() *lang.RawFile {
	return &lang.RawFile{
		Path:     "pkg/model.py",
		Language: types.LangPython,
		Symbols: []lang.RawSymbol{
			{Name: "Foo", Kind: types.KindClass, Depth: 0, StartLine: 1, EndLine: 20},
			{Name: "bar", Kind: types.KindFunction, Depth: 1, StartLine: 3, EndLine: 8,
				Modifiers: []string{"@staticmethod"}},
			{Name: "helper", Kind: types.KindFunction, Depth: 2, StartLine: 5, EndLine: 6},
			{Name: "top", Kind: types.KindFunction, Depth: 0, StartLine: 22, EndLine: 25,
				Modifiers: []string{"async"}},
		},
		Imports: []types.ImportRef{{Target: "os", Line: 1}},
	}
}

func TestFileParentsAndQualifiedNames(t *testing.T) {
	fa := File(rawFixture())
	require.Len(t, fa.Symbols, 4)

	foo := fa.Symbols[0]
	assert.Equal(t, "Foo", foo.QualifiedName)
	assert.Empty(t, foo.ParentID)

	bar := fa.Symbols[1]
	assert.Equal(t, "Foo.bar", bar.QualifiedName)
	assert.Equal(t, foo.ID, bar.ParentID)

	helper := fa.Symbols[2]
	assert.Equal(t, "Foo.bar.helper", helper.QualifiedName)
	assert.Equal(t, bar.ID, helper.ParentID)

	top := fa.Symbols[3]
	assert.Equal(t, "top", top.QualifiedName)
	assert.Empty(t, top.ParentID)
}

func TestFileMethodPromotion(t *testing.T) {
	fa := File(rawFixture())

	// A callable directly inside a class becomes a method.
	assert.Equal(t, types.KindMethod, fa.Symbols[1].Kind)
	// A callable nested in another callable stays a function.
	assert.Equal(t, types.KindFunction, fa.Symbols[2].Kind)
	// Top-level callables stay functions.
	assert.Equal(t, types.KindFunction, fa.Symbols[3].Kind)
}

func TestFileModifierMapping(t *testing.T) {
	fa := File(rawFixture())
	assert.Contains(t, fa.Symbols[1].Modifiers, types.ModStatic)
	assert.Contains(t, fa.Symbols[3].Modifiers, types.ModAsync)
}

func TestFileDeterministicIDs(t *testing.T) {
	a := File(rawFixture())
	b := File(rawFixture())
	require.Equal(t, a, b)

	// IDs derive from (path, qualified name, kind): same symbol in another
	// file gets a different ID.
	other := rawFixture()
	other.Path = "pkg/other.py"
	c := File(other)
	assert.NotEqual(t, a.Symbols[0].ID, c.Symbols[0].ID)
}

func TestFileOverloads(t *testing.T) {
	rf := &lang.RawFile{
		Path:     "src/Api.java",
		Language: types.LangJava,
		Symbols: []lang.RawSymbol{
			{Name: "Api", Kind: types.KindClass, Depth: 0, StartLine: 1, EndLine: 10},
			{Name: "get", Kind: types.KindMethod, Depth: 1, StartLine: 2, EndLine: 4,
				Signature: "Response get(String id)"},
			{Name: "get", Kind: types.KindMethod, Depth: 1, StartLine: 5, EndLine: 7,
				Signature: "Response get(String id, int timeout)"},
		},
	}
	fa := File(rf)
	require.Len(t, fa.Symbols, 3)

	// The first occurrence keeps the plain qualified name; later overloads
	// get a signature-derived suffix so names stay unique per file and kind.
	first, second := fa.Symbols[1], fa.Symbols[2]
	assert.Equal(t, "Api.get", first.QualifiedName)
	assert.Equal(t, "Api.get(String id, int timeout)", second.QualifiedName)
	assert.NotEqual(t, first.QualifiedName, second.QualifiedName)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestFileOverloadsWithoutSignature(t *testing.T) {
	rf := &lang.RawFile{
		Path:     "src/Api.java",
		Language: types.LangJava,
		Symbols: []lang.RawSymbol{
			{Name: "Api", Kind: types.KindClass, Depth: 0, StartLine: 1, EndLine: 10},
			{Name: "get", Kind: types.KindMethod, Depth: 1, StartLine: 2, EndLine: 4},
			{Name: "get", Kind: types.KindMethod, Depth: 1, StartLine: 5, EndLine: 7},
			{Name: "get", Kind: types.KindMethod, Depth: 1, StartLine: 8, EndLine: 9},
		},
	}
	fa := File(rf)
	require.Len(t, fa.Symbols, 4)

	// No signature to derive a suffix from; an ordinal keeps names apart.
	assert.Equal(t, "Api.get", fa.Symbols[1].QualifiedName)
	assert.Equal(t, "Api.get#2", fa.Symbols[2].QualifiedName)
	assert.Equal(t, "Api.get#3", fa.Symbols[3].QualifiedName)
}

func TestFileDepthGapClamped(t *testing.T) {
	// Malformed input can skip a nesting level; the symbol attaches to the
	// deepest open scope instead of a phantom parent.
	rf := &lang.RawFile{
		Path:     "x.py",
		Language: types.LangPython,
		Symbols: []lang.RawSymbol{
			{Name: "A", Kind: types.KindClass, Depth: 0, StartLine: 1, EndLine: 10},
			{Name: "deep", Kind: types.KindFunction, Depth: 5, StartLine: 2, EndLine: 3},
		},
	}
	fa := File(rf)
	require.Len(t, fa.Symbols, 2)
	assert.Equal(t, fa.Symbols[0].ID, fa.Symbols[1].ParentID)
	assert.Equal(t, "A.deep", fa.Symbols[1].QualifiedName)
}

func TestFileRangeRepair(t *testing.T) {
	rf := &lang.RawFile{
		Path:     "x.py",
		Language: types.LangPython,
		Symbols: []lang.RawSymbol{
			{Name: "f", Kind: types.KindFunction, Depth: 0, StartLine: 4, EndLine: 2},
		},
	}
	fa := File(rf)
	sym := fa.Symbols[0]
	assert.Equal(t, 4, sym.StartLine)
	assert.Equal(t, 4, sym.EndLine)
	assert.NoError(t, sym.Validate())
}

func TestFileCarriesImportsAndWarnings(t *testing.T) {
	rf := rawFixture()
	rf.Warnings = []types.Warning{{Code: types.WarnParseRecoverable, Message: "x", Line: 9}}
	fa := File(rf)
	assert.Equal(t, rf.Imports, fa.Imports)
	assert.Equal(t, rf.Warnings, fa.Warnings)
	assert.Equal(t, types.LangPython, fa.Language)
	for i := range fa.Symbols {
		assert.NoError(t, fa.Symbols[i].Validate())
	}
}
