package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ParameterSchema maps a parameter name to its raw schema fragment
// (type, constraints, optional default). Fragments stay unstructured here;
// the params package compiles them into one effective schema.
type ParameterSchema map[string]Metadata

func (s ParameterSchema) Clone() ParameterSchema {
	if s == nil {
		return nil
	}
	copy := make(ParameterSchema, len(s))
	for name, fragment := range s {
		copy[name] = fragment.Clone()
	}
	return copy
}

// NotificationRule describes the message and channels for one lifecycle event.
type NotificationRule struct {
	Message  string   `json:"message" yaml:"message"`
	Channels []string `json:"channels" yaml:"channels"`
}

// NotificationSpec maps a lifecycle event name (e.g. "on_complete") to its rule.
type NotificationSpec map[string]NotificationRule

func (n NotificationSpec) Clone() NotificationSpec {
	if n == nil {
		return nil
	}
	copy := make(NotificationSpec, len(n))
	for event, rule := range n {
		channels := make([]string, len(rule.Channels))
		for i, ch := range rule.Channels {
			channels[i] = ch
		}
		copy[event] = NotificationRule{Message: rule.Message, Channels: channels}
	}
	return copy
}

// RunnerType describes a class of executors sharing a parameter contract
// and a loadable implementation.
type RunnerType struct {
	Name             string
	Description      string
	Enabled          bool
	RunnerParameters ParameterSchema
	RunnerModule     string
}

func (rt RunnerType) Validate() error {
	if strings.TrimSpace(rt.Name) == "" {
		return errors.New("runner type name is required")
	}
	if strings.TrimSpace(rt.RunnerModule) == "" {
		return errors.New("runner module is required")
	}
	return nil
}

// Action is a registered, runnable unit of work.
type Action struct {
	Pack        string
	Name        string
	Description string
	Enabled     bool
	EntryPoint  string
	RunnerType  string
	Parameters  ParameterSchema
	Notify      NotificationSpec
}

// Ref returns the action's (pack, name) reference.
func (a Action) Ref() ActionReference {
	return ActionReference{Pack: a.Pack, Name: a.Name}
}

func (a Action) Validate() error {
	if strings.TrimSpace(a.Pack) == "" {
		return errors.New("action pack is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("action name is required")
	}
	if strings.TrimSpace(a.RunnerType) == "" {
		return fmt.Errorf("action %s: runner type is required", a.Ref())
	}
	return nil
}
