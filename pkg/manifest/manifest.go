package manifest

import (
	"errors"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/takeover"
)

// Validation errors.
var (
	ErrDuplicateControl = errors.New("duplicate control")
	ErrPartialRange     = errors.New("min and max must both be set")
)

// Parse parses a manifest from YAML bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load loads a manifest from a file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	m, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[control.Key]bool, len(m.Controls))
	for _, c := range m.Controls {
		key, err := control.ParseKey(c.Key)
		if err != nil {
			return &LoadError{Line: c.line, Message: "control " + c.Key, Cause: err}
		}
		if seen[key] {
			return &LoadError{Line: c.line, Message: "control " + key.String(), Cause: ErrDuplicateControl}
		}
		seen[key] = true
		if (c.Min == nil) != (c.Max == nil) {
			return &LoadError{Line: c.line, Message: "control " + key.String(), Cause: ErrPartialRange}
		}
	}
	for _, s := range m.SoftTakeover {
		if _, err := control.ParseKey(s); err != nil {
			return &LoadError{Message: "softTakeover " + s, Cause: err}
		}
	}
	return nil
}

// Spec converts the declaration to a cell spec.
func (c Control) Spec() control.Spec {
	var spec control.Spec
	if c.Min != nil && c.Max != nil {
		spec.Range = &control.Range{Min: *c.Min, Max: *c.Max}
	}
	if c.Default != nil {
		d := *c.Default
		spec.Default = &d
	}
	return spec
}

// Apply declares every control in reg and arms soft takeover on the listed
// keys. tk may be nil. Apply returns the number of controls declared.
func (m *Manifest) Apply(reg *control.Registry, tk *takeover.Controller) int {
	n := 0
	for _, c := range m.Controls {
		key, err := control.ParseKey(c.Key)
		if err != nil {
			continue
		}
		reg.Declare(key, c.Spec())
		n++
	}
	if tk != nil {
		for _, s := range m.SoftTakeover {
			if key, err := control.ParseKey(s); err == nil {
				tk.Enable(key)
			}
		}
	}
	return n
}

// Setting returns the named setting.
func (m *Manifest) Setting(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.Settings[name]
	return v, ok
}

// SettingNames returns the setting names in sorted order.
func (m *Manifest) SettingNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Settings))
	for name := range m.Settings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
