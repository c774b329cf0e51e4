package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/takeover"
)

const sample = `
name: Test Mapping
controls:
  - key: "[Channel1],volume"
    min: 0
    max: 1
    default: 1
  - key: "[Master],crossfader"
    min: -1
    max: 1
  - key: "[Channel1],play"
settings:
  jogSensitivity: 0.5
  useShift: true
  label: deck
softTakeover:
  - "[Channel1],volume"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Test Mapping", m.Name)
	require.Len(t, m.Controls, 3)
	assert.Equal(t, "[Channel1],volume", m.Controls[0].Key)
	assert.Equal(t, 4, m.Controls[0].Line())
	assert.Nil(t, m.Controls[2].Min)
	assert.Equal(t, []string{"[Channel1],volume"}, m.SoftTakeover)
	assert.Equal(t, []string{"jogSensitivity", "label", "useShift"}, m.SettingNames())

	v, ok := m.Setting("jogSensitivity")
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)
	v, ok = m.Setting("useShift")
	assert.True(t, ok)
	assert.Equal(t, true, v)
	_, ok = m.Setting("missing")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cause error
		line  int
	}{
		{
			name:  "bad key",
			input: "controls:\n  - key: volume\n",
			cause: control.ErrInvalidKey,
			line:  2,
		},
		{
			name:  "duplicate",
			input: "controls:\n  - key: \"[A],x\"\n  - key: \"[A], x\"\n",
			cause: ErrDuplicateControl,
			line:  3,
		},
		{
			name:  "partial range",
			input: "controls:\n  - key: \"[A],x\"\n    min: 0\n",
			cause: ErrPartialRange,
			line:  2,
		},
		{
			name:  "bad takeover key",
			input: "softTakeover: [\"nocomma\"]\n",
			cause: control.ErrInvalidKey,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.cause), "got %v", err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tc.line, le.Line)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("controls: [unclosed"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "failed to parse YAML", le.Message)
	assert.NotNil(t, le.Cause)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Controls, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, filepath.Join(dir, "missing.yaml"), le.File)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadReportsFileAndLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("controls:\n  - key: volume\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path+":2: control volume")
}

func TestApply(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	reg := control.NewRegistry()
	tk := takeover.NewController(takeover.WithClock(func() time.Time { return time.Unix(0, 0) }))
	assert.Equal(t, 3, m.Apply(reg, tk))

	volume, ok := reg.Find(control.K("[Channel1]", "volume"))
	require.True(t, ok)
	assert.True(t, volume.Ranged())
	assert.Equal(t, 1.0, volume.Get())

	xfader, ok := reg.Find(control.K("[Master]", "crossfader"))
	require.True(t, ok)
	assert.Equal(t, 0.0, xfader.Default(), "default is the range midpoint")
	assert.Equal(t, 0.5, xfader.Parameter())

	play, ok := reg.Find(control.K("[Channel1]", "play"))
	require.True(t, ok)
	assert.False(t, play.Ranged())

	assert.True(t, tk.Enabled(control.K("[Channel1]", "volume")))
	assert.False(t, tk.Enabled(control.K("[Master]", "crossfader")))
}

func TestApplyKeepsExistingCells(t *testing.T) {
	reg := control.NewRegistry()
	existing := reg.GetOrCreate(control.K("[Channel1]", "volume"))
	existing.Set(0.25)

	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	m.Apply(reg, nil)

	cell, _ := reg.Find(control.K("[Channel1]", "volume"))
	assert.Same(t, existing, cell)
	assert.Equal(t, 0.25, cell.Get())
}

func TestNilManifestSettings(t *testing.T) {
	var m *Manifest
	_, ok := m.Setting("x")
	assert.False(t, ok)
	assert.Nil(t, m.SettingNames())
}
