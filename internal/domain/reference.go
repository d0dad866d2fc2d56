package domain

import (
	"fmt"
	"strings"
)

// ActionReference identifies a registered action as (pack, name).
// Its canonical string form is "<pack>.<name>"; the name part may itself
// contain dots, so parsing splits on the first separator only.
type ActionReference struct {
	Pack string
	Name string
}

func NewActionReference(pack, name string) (ActionReference, error) {
	ref := ActionReference{Pack: strings.TrimSpace(pack), Name: strings.TrimSpace(name)}
	if err := ref.Validate(); err != nil {
		return ActionReference{}, err
	}
	return ref, nil
}

// ParseActionReference parses the canonical "pack.name" form.
func ParseActionReference(value string) (ActionReference, error) {
	value = strings.TrimSpace(value)
	pack, name, ok := strings.Cut(value, ".")
	if !ok {
		return ActionReference{}, fmt.Errorf("invalid action reference %q: expected pack.name", value)
	}
	return NewActionReference(pack, name)
}

func (r ActionReference) String() string {
	return r.Pack + "." + r.Name
}

func (r ActionReference) Validate() error {
	if r.Pack == "" {
		return fmt.Errorf("action reference pack is required")
	}
	if r.Name == "" {
		return fmt.Errorf("action reference name is required")
	}
	return nil
}
