package promotion

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a discount action whose parameters cannot be used.
	// It is never retried; only the offending action is aborted.
	ErrConfiguration = errors.New("promotion: invalid action configuration")
	// ErrMissingBinding is returned when an action is applied without a container
	// or a required collaborator. It indicates a wiring defect.
	ErrMissingBinding = errors.New("promotion: container not bound")
)

// ConfigError describes which parameter of which action failed to parse.
type ConfigError struct {
	RuleID   int64
	ActionID int64
	Field    string
	Value    string
	Err      error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("promotion: rule %d action %d: invalid %s %q", e.RuleID, e.ActionID, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrConfiguration and the underlying cause to errors.Is/As.
func (e *ConfigError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

func configError(p ActionParams, field, value string, err error) *ConfigError {
	return &ConfigError{RuleID: p.RuleID, ActionID: p.ActionID, Field: field, Value: value, Err: err}
}
