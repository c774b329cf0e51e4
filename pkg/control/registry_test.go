package control_test

import (
	"sync"
	"testing"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/control/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateSameCell(t *testing.T) {
	reg := control.NewRegistry()

	a := reg.GetOrCreate(control.K("[Channel1]", "volume"))
	b := reg.GetOrCreate(control.Key{Group: "[Channel1]", Item: "volume"})
	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryFirstSpecWins(t *testing.T) {
	reg := control.NewRegistry()
	key := control.K("[Channel1]", "rate")

	first := reg.GetOrCreate(key, control.WithRange(-1, 1))
	second := reg.GetOrCreate(key, control.WithRange(0, 100))
	require.Same(t, first, second)

	r, ok := second.Range()
	require.True(t, ok)
	assert.Equal(t, control.Range{Min: -1, Max: 1}, r)

	third := reg.Declare(key, control.Spec{Range: &control.Range{Min: 5, Max: 6}})
	assert.Same(t, first, third)
}

func TestRegistryDeclare(t *testing.T) {
	reg := control.NewRegistry()
	def := 0.75
	cell := reg.Declare(control.K("[Master]", "gain"), control.Spec{
		Range:   &control.Range{Min: 0, Max: 1},
		Default: &def,
	})

	assert.True(t, cell.Ranged())
	assert.Equal(t, 0.75, cell.Get())
}

func TestRegistryFindDoesNotCreate(t *testing.T) {
	reg := control.NewRegistry()

	_, ok := reg.Find(control.K("[Nope]", "nothing"))
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	reg.GetOrCreate(control.K("[Yes]", "thing"))
	cell, ok := reg.Find(control.K("[Yes]", "thing"))
	require.True(t, ok)
	assert.Equal(t, "thing", cell.Key().Item)
}

func TestRegistryEmptyKey(t *testing.T) {
	reg := control.NewRegistry()
	cell := reg.GetOrCreate(control.Key{})
	require.NotNil(t, cell)
	assert.True(t, cell.Set(1))
}

func TestRegistryKeysSorted(t *testing.T) {
	reg := control.NewRegistry()
	reg.GetOrCreate(control.K("[Channel2]", "volume"))
	reg.GetOrCreate(control.K("[Channel1]", "rate"))
	reg.GetOrCreate(control.K("[Channel1]", "play"))

	assert.Equal(t, []control.Key{
		control.K("[Channel1]", "play"),
		control.K("[Channel1]", "rate"),
		control.K("[Channel2]", "volume"),
	}, reg.Keys())
}

func TestRegistryConcurrentCreate(t *testing.T) {
	reg := control.NewRegistry()
	key := control.K("[Channel1]", "volume")

	cells := make([]*control.Cell, 16)
	var wg sync.WaitGroup
	for i := range cells {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cells[i] = reg.GetOrCreate(key)
		}(i)
	}
	wg.Wait()

	for _, c := range cells {
		assert.Same(t, cells[0], c)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryCloseDetachesListeners(t *testing.T) {
	reg := control.NewRegistry()
	cell := reg.GetOrCreate(control.K("[Channel1]", "volume"))

	// No expectations: any Notify after Close fails the test.
	cell.Subscribe(mocks.NewMockListener(t))

	reg.Close()
	reg.Close()
	cell.Set(1)

	assert.Equal(t, 0, cell.Listeners())
	assert.Equal(t, 1.0, cell.Get())
}
