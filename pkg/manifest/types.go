package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is a parsed mapping declaration.
type Manifest struct {
	// Name identifies the mapping in logs.
	Name string `yaml:"name,omitempty"`

	// Controls are declared before any script runs.
	Controls []Control `yaml:"controls,omitempty"`

	// Settings are the mapping's user preferences.
	Settings map[string]any `yaml:"settings,omitempty"`

	// SoftTakeover lists "group,item" keys armed on Apply.
	SoftTakeover []string `yaml:"softTakeover,omitempty"`
}

// Control declares one control cell.
type Control struct {
	// Key is "group,item".
	Key string `yaml:"key"`

	// Min and Max give the value range. Both or neither must be set.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Default is the reset value.
	Default *float64 `yaml:"default,omitempty"`

	line int
}

// UnmarshalYAML records the source line for error reporting.
func (c *Control) UnmarshalYAML(value *yaml.Node) error {
	type plain Control
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Control(p)
	c.line = value.Line
	return nil
}

// Line returns the line the control was declared on, or 0.
func (c Control) Line() int { return c.line }

// LoadError provides details about a manifest loading error.
type LoadError struct {
	// File is the path of the manifest (empty for Parse).
	File string

	// Line is the line number where the error occurred (0 if unknown).
	Line int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	case e.File != "":
		return e.File + ": " + msg
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	default:
		return msg
	}
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
