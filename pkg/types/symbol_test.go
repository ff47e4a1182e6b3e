package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolIDStable(t *testing.T) {
	a := SymbolID("pkg/a.py", "Foo.bar", KindMethod)
	b := SymbolID("pkg/a.py", "Foo.bar", KindMethod)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	// Any component change produces a different ID.
	assert.NotEqual(t, a, SymbolID("pkg/b.py", "Foo.bar", KindMethod))
	assert.NotEqual(t, a, SymbolID("pkg/a.py", "Foo.baz", KindMethod))
	assert.NotEqual(t, a, SymbolID("pkg/a.py", "Foo.bar", KindFunction))
}

func TestValidKind(t *testing.T) {
	assert.True(t, ValidKind(KindClass))
	assert.True(t, ValidKind(KindField))
	assert.False(t, ValidKind(SymbolKind("struct")))
	assert.False(t, ValidKind(SymbolKind("")))
}

func TestSymbolValidate(t *testing.T) {
	valid := Symbol{
		ID:        SymbolID("a.py", "f", KindFunction),
		Name:      "f",
		Kind:      KindFunction,
		FilePath:  "a.py",
		StartLine: 1,
		EndLine:   3,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Symbol)
	}{
		{"missing name", func(s *Symbol) { s.Name = "" }},
		{"missing id", func(s *Symbol) { s.ID = "" }},
		{"bad kind", func(s *Symbol) { s.Kind = "struct" }},
		{"missing path", func(s *Symbol) { s.FilePath = "" }},
		{"zero start", func(s *Symbol) { s.StartLine = 0 }},
		{"inverted range", func(s *Symbol) { s.StartLine = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestHasModifier(t *testing.T) {
	s := Symbol{Modifiers: []string{ModAsync, ModStatic}}
	assert.True(t, s.HasModifier(ModAsync))
	assert.False(t, s.HasModifier(ModPrivate))
	assert.False(t, (&Symbol{}).HasModifier(ModAsync))
}

func TestSortModifiers(t *testing.T) {
	s := Symbol{Modifiers: []string{ModStatic, ModAsync, "data"}}
	s.SortModifiers()
	assert.Equal(t, []string{ModAsync, "data", ModStatic}, s.Modifiers)
}
