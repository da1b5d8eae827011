package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(Func{
		ToolName:        "echo",
		ToolDescription: "echoes",
		Schema:          map[string]any{"type": "object"},
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprint(args["text"]), nil
		},
	}))

	tool, ok := registry.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", tool.Name())

	out, err := tool.Execute(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Func{})
	assert.Error(t, err)
}

func TestRegistryListSortsByName(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, registry.Register(Func{
			ToolName: name,
			Run:      func(context.Context, map[string]any) (string, error) { return "", nil },
		}))
	}

	var names []string
	for _, tool := range registry.List() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

type addParams struct {
	A int `json:"a" jsonschema:"required,description=First addend"`
	B int `json:"b" jsonschema:"required,description=Second addend"`
}

func TestAddGeneratesSchemaAndDecodesArguments(t *testing.T) {
	registry := NewRegistry()
	err := Add(registry, "add", "Add two integers",
		func(_ context.Context, p addParams) (string, error) {
			return fmt.Sprint(p.A + p.B), nil
		})
	require.NoError(t, err)

	tool, ok := registry.Lookup("add")
	require.True(t, ok)

	schema := tool.InputSchema()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")

	out, err := tool.Execute(context.Background(), map[string]any{"a": float64(2), "b": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, "5", out)
}

func TestAddRejectsMalformedArguments(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, Add(registry, "add", "Add two integers",
		func(_ context.Context, p addParams) (string, error) {
			return fmt.Sprint(p.A + p.B), nil
		}))

	tool, _ := registry.Lookup("add")
	_, err := tool.Execute(context.Background(), map[string]any{"a": "not a number"})
	assert.Error(t, err)
}
