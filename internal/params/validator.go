// Package params merges the two independently declared parameter contracts
// of an execution request (the runner type's base schema and the action's
// own schema) into one effective schema and validates a caller-supplied
// parameter set against it.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/runforge-labs/actiond/internal/domain"
)

// Validate merges schemas, applies declared defaults to unset parameters,
// and validates the candidate set. On success the returned map is the
// normalized parameter set (defaults populated, values in canonical JSON
// form). Pure: neither input is mutated and nothing is resolved or stored.
func Validate(action domain.Action, rt domain.RunnerType, supplied domain.Metadata) (domain.Metadata, error) {
	merged := MergeSchemas(rt.RunnerParameters, action.Parameters)

	verr := &ValidationError{}
	unknown := make([]string, 0)
	for name := range supplied {
		if _, declared := merged[name]; !declared {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		verr.Add(Issue{
			Parameter:  name,
			Constraint: "additionalProperties",
			Reason:     fmt.Sprintf("parameter %q is not declared by action %s or runner type %q", name, action.Ref(), rt.Name),
		})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	candidate := ApplyDefaults(merged, supplied)
	normalized, err := normalizeValues(candidate)
	if err != nil {
		return nil, err
	}

	schema, err := BuildEffectiveSchema(merged)
	if err != nil {
		return nil, err
	}
	if err := schema.VisitJSON(map[string]any(normalized), openapi3.MultiErrors()); err != nil {
		return nil, toValidationError(err)
	}
	return normalized, nil
}

// normalizeValues round-trips the candidate set through JSON so every value
// is in canonical decoded form (numbers as float64, nested maps as
// map[string]any) regardless of whether it arrived from YAML registration
// defaults or an API request body.
func normalizeValues(candidate domain.Metadata) (domain.Metadata, error) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize parameters: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return domain.Metadata(out), nil
}

func toValidationError(err error) error {
	verr := &ValidationError{}
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, item := range multi {
			addSchemaIssue(verr, item)
		}
	} else {
		addSchemaIssue(verr, err)
	}
	return verr.OrNil()
}

func addSchemaIssue(verr *ValidationError, err error) {
	var serr *openapi3.SchemaError
	if errors.As(err, &serr) {
		reason := serr.Reason
		if reason == "" {
			reason = serr.Error()
		}
		verr.Add(Issue{
			Parameter:  strings.Join(serr.JSONPointer(), "."),
			Constraint: serr.SchemaField,
			Reason:     reason,
		})
		return
	}
	verr.Add(Issue{Reason: err.Error()})
}
