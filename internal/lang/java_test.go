package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemap-mcp/pkg/types"
)

const javaSample = `import java.util.List;

/** Order entity. */
public class Order {
    private final List<String> items;

    public Order(List<String> items) {
        this.items = items;
    }

    public int count() {
        return items.size();
    }
}

interface Shape {
    double area();
}
`

func TestExtractJava(t *testing.T) {
	rf := extractJava(javaSample, "Order.java")
	require.NotNil(t, rf)
	assert.Empty(t, rf.Warnings)

	require.Len(t, rf.Imports, 1)
	assert.Equal(t, "java.util.List", rf.Imports[0].Target)

	require.Len(t, rf.Symbols, 5)

	order := rf.Symbols[0]
	assert.Equal(t, "Order", order.Name)
	assert.Equal(t, types.KindClass, order.Kind)
	assert.Equal(t, "Order entity.", order.DocComment)
	assert.Contains(t, order.Modifiers, "public")
	assert.Equal(t, 4, order.StartLine)
	assert.Equal(t, 14, order.EndLine)

	items := rf.Symbols[1]
	assert.Equal(t, "items", items.Name)
	assert.Equal(t, types.KindField, items.Kind)
	assert.Equal(t, 1, items.Depth)
	assert.ElementsMatch(t, []string{"private", "final"}, items.Modifiers)

	ctor := rf.Symbols[2]
	assert.Equal(t, "Order", ctor.Name)
	assert.Equal(t, types.KindMethod, ctor.Kind)
	assert.Equal(t, 7, ctor.StartLine)
	assert.Equal(t, 9, ctor.EndLine)

	count := rf.Symbols[3]
	assert.Equal(t, "count", count.Name)
	assert.Equal(t, types.KindMethod, count.Kind)
	assert.Contains(t, count.Modifiers, "public")

	area := rf.Symbols[4]
	assert.Equal(t, "area", area.Name)
	assert.Equal(t, types.KindMethod, area.Kind)
	assert.Equal(t, 17, area.StartLine)
}

func TestExtractJavaEnumAndAnnotations(t *testing.T) {
	source := `public enum Status {
    OPEN,
    CLOSED;
}

@Deprecated
public class Legacy {
}
`
	rf := extractJava(source, "Status.java")
	require.Len(t, rf.Symbols, 2)

	status := rf.Symbols[0]
	assert.Equal(t, "Status", status.Name)
	assert.Equal(t, types.KindEnum, status.Kind)

	legacy := rf.Symbols[1]
	assert.Equal(t, "Legacy", legacy.Name)
	assert.Contains(t, legacy.Modifiers, "@Deprecated")
}

const kotlinSample = `import com.example.model.User

data class User(val id: Int)

class Repo {
    fun find(id: Int): User? {
        return null
    }
}

fun main() {
    println("hi")
}
`

func TestExtractKotlin(t *testing.T) {
	rf := extractKotlin(kotlinSample, "User.kt")
	require.NotNil(t, rf)
	assert.Empty(t, rf.Warnings)

	require.Len(t, rf.Imports, 1)
	assert.Equal(t, "com.example.model.User", rf.Imports[0].Target)

	require.Len(t, rf.Symbols, 4)

	user := rf.Symbols[0]
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, types.KindClass, user.Kind)
	assert.Contains(t, user.Modifiers, "data")
	assert.Equal(t, 3, user.StartLine)
	assert.Equal(t, 3, user.EndLine)

	repo := rf.Symbols[1]
	assert.Equal(t, "Repo", repo.Name)
	assert.Equal(t, types.KindClass, repo.Kind)
	assert.Equal(t, 9, repo.EndLine)

	find := rf.Symbols[2]
	assert.Equal(t, "find", find.Name)
	assert.Equal(t, types.KindFunction, find.Kind)
	assert.Equal(t, 1, find.Depth)
	assert.Equal(t, "fun find(id: Int): User?", find.Signature)

	main := rf.Symbols[3]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, 0, main.Depth)
	assert.Equal(t, 13, main.EndLine)
}

func TestExtractKotlinProperties(t *testing.T) {
	source := `class Config {
    val name: String = "x"
    private var count: Int = 0
}
`
	rf := extractKotlin(source, "Config.kt")
	require.Len(t, rf.Symbols, 3)

	name := rf.Symbols[1]
	assert.Equal(t, "name", name.Name)
	assert.Equal(t, types.KindField, name.Kind)

	count := rf.Symbols[2]
	assert.Equal(t, "count", count.Name)
	assert.Contains(t, count.Modifiers, "private")
}

func TestExtractJavaUnbalanced(t *testing.T) {
	rf := extractJava("public class Broken {\n    int x;\n", "Broken.java")
	require.Len(t, rf.Warnings, 1)
	assert.Equal(t, types.WarnParseRecoverable, rf.Warnings[0].Code)
	require.NotEmpty(t, rf.Symbols)
	assert.Equal(t, 2, rf.Symbols[0].EndLine)
}
