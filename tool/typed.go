package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Add registers a type-safe tool handler using generics. The argument
// schema is generated from T's json and jsonschema struct tags, and
// arguments are unmarshaled into T before the handler runs.
//
// Example:
//
//	type EchoParams struct {
//	    Text string `json:"text" jsonschema:"required,description=Text to echo back"`
//	}
//
//	tool.Add(registry, "echo", "Echo back the input text",
//	    func(ctx context.Context, params EchoParams) (string, error) {
//	        return params.Text, nil
//	    })
func Add[T any](registry *Registry, name, description string, handler func(context.Context, T) (string, error)) error {
	schema, err := generateSchema[T]()
	if err != nil {
		return fmt.Errorf("generate schema for tool %s: %w", name, err)
	}

	return registry.Register(Func{
		ToolName:        name,
		ToolDescription: description,
		Schema:          schema,
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return "", fmt.Errorf("encode arguments for tool %s: %w", name, err)
			}
			var params T
			if err := json.Unmarshal(raw, &params); err != nil {
				return "", fmt.Errorf("invalid arguments for tool %s: %w", name, err)
			}
			return handler(ctx, params)
		},
	})
}

// generateSchema reflects a JSON schema from a Go struct type, inlining
// all definitions so the result is a single self-contained object.
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
