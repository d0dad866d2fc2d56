package params

import (
	"errors"
	"testing"

	"github.com/runforge-labs/actiond/internal/domain"
)

func shellRunnerType() domain.RunnerType {
	return domain.RunnerType{
		Name:         "local-shell-script",
		Enabled:      true,
		RunnerModule: "actiond.runners.localshell",
		RunnerParameters: domain.ParameterSchema{
			"hosts":   {"type": "string"},
			"cmd":     {"type": "string"},
			"timeout": {"type": "number", "default": 60},
		},
	}
}

func shellAction() domain.Action {
	return domain.Action{
		Pack:       "default",
		Name:       "my.action",
		Enabled:    true,
		RunnerType: "local-shell-script",
		Parameters: domain.ParameterSchema{
			"hosts": {"required": true},
			"a":     {"type": "string", "default": "abc"},
		},
	}
}

func TestValidate_AppliesDefaults(t *testing.T) {
	normalized, err := Validate(shellAction(), shellRunnerType(), domain.Metadata{
		"hosts": "127.0.0.1",
		"cmd":   "uptime",
	})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if got := normalized["a"]; got != "abc" {
		t.Fatalf("a=%v, want default abc", got)
	}
	if got := normalized["hosts"]; got != "127.0.0.1" {
		t.Fatalf("hosts=%v, want supplied value", got)
	}
	// JSON normalization turns numeric defaults into float64.
	if got := normalized["timeout"]; got != float64(60) {
		t.Fatalf("timeout=%v (%T), want 60 as float64", got, got)
	}
}

func TestValidate_DoesNotMutateInputs(t *testing.T) {
	supplied := domain.Metadata{"hosts": "h1", "cmd": "true"}

	if _, err := Validate(shellAction(), shellRunnerType(), supplied); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(supplied) != 2 {
		t.Fatalf("supplied map mutated: %v", supplied)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	_, err := Validate(shellAction(), shellRunnerType(), domain.Metadata{"cmd": "uptime"})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v, want *ValidationError", err)
	}
	if len(verr.Issues) == 0 {
		t.Fatal("validation error carries no issues")
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	_, err := Validate(shellAction(), shellRunnerType(), domain.Metadata{
		"hosts": "h1",
		"a":     123,
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v, want *ValidationError", err)
	}
	found := false
	for _, issue := range verr.Issues {
		if issue.Parameter == "a" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no issue names parameter a: %v", verr.Issues)
	}
}

func TestValidate_UnknownParameter(t *testing.T) {
	_, err := Validate(shellAction(), shellRunnerType(), domain.Metadata{
		"hosts":  "h1",
		"bogus":  true,
		"bogus2": 1,
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v, want *ValidationError", err)
	}
	if len(verr.Issues) != 2 {
		t.Fatalf("issues=%v, want one per unknown parameter", verr.Issues)
	}
	// Unknowns report deterministically, sorted by name.
	if verr.Issues[0].Parameter != "bogus" || verr.Issues[1].Parameter != "bogus2" {
		t.Fatalf("issues=%v, want bogus then bogus2", verr.Issues)
	}
	for _, issue := range verr.Issues {
		if issue.Constraint != "additionalProperties" {
			t.Fatalf("constraint=%q, want additionalProperties", issue.Constraint)
		}
	}
}

func TestValidate_NoDeclaredParameters(t *testing.T) {
	action := domain.Action{Pack: "default", Name: "noop", Enabled: true, RunnerType: "noop"}
	rt := domain.RunnerType{Name: "noop", Enabled: true, RunnerModule: "actiond.runners.noop"}

	normalized, err := Validate(action, rt, nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(normalized) != 0 {
		t.Fatalf("normalized=%v, want empty", normalized)
	}

	if _, err := Validate(action, rt, domain.Metadata{"x": 1}); err == nil {
		t.Fatal("undeclared parameter accepted by empty schema")
	}
}

func TestValidate_ActionOverridesRunnerDefault(t *testing.T) {
	rt := shellRunnerType()
	action := shellAction()
	action.Parameters["timeout"] = domain.Metadata{"default": 5}

	normalized, err := Validate(action, rt, domain.Metadata{"hosts": "h1"})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got := normalized["timeout"]; got != float64(5) {
		t.Fatalf("timeout=%v, want action override 5", got)
	}
}
