package domain

import (
	"errors"
	"strings"
	"time"
)

// LiveAction is one execution record of an action run with concrete
// parameters. Everything except Status, Result and EndTimestamp is set
// once at admission and never mutated.
type LiveAction struct {
	ID             string
	Action         string
	Context        Metadata
	Parameters     Metadata
	Status         Status
	StartTimestamp time.Time
	EndTimestamp   *time.Time
	Result         Metadata
	Notify         NotificationSpec
}

// Ref parses the record's action reference back into its (pack, name) form.
func (la LiveAction) Ref() (ActionReference, error) {
	return ParseActionReference(la.Action)
}

func (la LiveAction) Validate() error {
	if strings.TrimSpace(la.ID) == "" {
		return errors.New("live action id is required")
	}
	if strings.TrimSpace(la.Action) == "" {
		return errors.New("live action action is required")
	}
	if NormalizeStatus(string(la.Status)) == "" {
		return errors.New("live action status is required")
	}
	if la.StartTimestamp.IsZero() {
		return errors.New("live action start timestamp is required")
	}
	if la.Status.IsTerminal() && la.EndTimestamp == nil {
		return errors.New("terminal live action requires an end timestamp")
	}
	return nil
}
