package params

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/runforge-labs/actiond/internal/domain"
)

// fragment keys that are the registration contract's own vocabulary, not
// JSON Schema; they are lifted out before the fragment is compiled.
const (
	fragmentKeyRequired = "required"
	fragmentKeyDefault  = "default"
)

// MergeSchemas combines the runner type's base parameter schema with the
// action's own schema. The merge is a deterministic reduce keyed by
// parameter name: fragments merge key by key, action keys winning on
// conflict.
func MergeSchemas(runner, action domain.ParameterSchema) domain.ParameterSchema {
	merged := make(domain.ParameterSchema, len(runner)+len(action))
	for name, fragment := range runner {
		merged[name] = fragment.Clone()
	}
	for name, fragment := range action {
		base, ok := merged[name]
		if !ok {
			merged[name] = fragment.Clone()
			continue
		}
		for key, value := range fragment {
			base[key] = value
		}
		merged[name] = base
	}
	return merged
}

// BuildEffectiveSchema compiles a merged parameter schema into one object
// schema: each fragment becomes a property, per-fragment `required: true`
// booleans collect into the object's required list, and properties not
// declared in any fragment are rejected.
func BuildEffectiveSchema(merged domain.ParameterSchema) (*openapi3.Schema, error) {
	root := openapi3.NewObjectSchema()
	root.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)}

	required := make([]string, 0)
	for name, fragment := range merged {
		compilable := make(map[string]any, len(fragment))
		for key, value := range fragment {
			if key == fragmentKeyRequired {
				if isRequired, ok := value.(bool); ok && isRequired {
					required = append(required, name)
				}
				continue
			}
			compilable[key] = value
		}
		raw, err := json.Marshal(compilable)
		if err != nil {
			return nil, fmt.Errorf("encode schema fragment for %q: %w", name, err)
		}
		var prop openapi3.Schema
		if err := prop.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("compile schema fragment for %q: %w", name, err)
		}
		root.Properties[name] = openapi3.NewSchemaRef("", &prop)
	}
	sort.Strings(required)
	root.Required = required
	return root, nil
}

// ApplyDefaults returns a copy of supplied with every unset parameter that
// declares a default populated from the merged schema.
func ApplyDefaults(merged domain.ParameterSchema, supplied domain.Metadata) domain.Metadata {
	candidate := supplied.Clone()
	for name, fragment := range merged {
		if _, set := candidate[name]; set {
			continue
		}
		if value, declared := fragment[fragmentKeyDefault]; declared {
			candidate[name] = value
		}
	}
	return candidate
}
