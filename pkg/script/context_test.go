package script

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cobridge/cobridge-go/pkg/log"
	"github.com/cobridge/cobridge-go/pkg/log/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestContextID(t *testing.T) {
	a, b := NewContext(), NewContext()
	_, err := uuid.Parse(a.ID())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestContextProcessEventsRunsInOrder(t *testing.T) {
	c := NewContext()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, c.Post(func() { got = append(got, i) }))
	}
	assert.Equal(t, 5, c.Pending())

	assert.Equal(t, 5, c.ProcessEvents())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, c.Pending())
}

func TestContextProcessEventsOnlyDrainsSnapshot(t *testing.T) {
	c := NewContext()

	var got []string
	c.Post(func() {
		got = append(got, "first")
		c.Post(func() { got = append(got, "later") })
	})

	assert.Equal(t, 1, c.ProcessEvents())
	assert.Equal(t, []string{"first"}, got)

	assert.Equal(t, 1, c.ProcessEvents())
	assert.Equal(t, []string{"first", "later"}, got)
}

func TestContextProcessEventsNotReentrant(t *testing.T) {
	c := NewContext()

	nested := -1
	c.Post(func() { nested = c.ProcessEvents() })
	c.Post(func() {})

	assert.Equal(t, 2, c.ProcessEvents())
	assert.Equal(t, 0, nested)
}

func TestContextPostFromManyGoroutines(t *testing.T) {
	c := NewContext()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Post(func() {})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, c.ProcessEvents())
}

func TestContextRun(t *testing.T) {
	c := NewContext()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	c.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestContextRunReturnsOnClose(t *testing.T) {
	c := NewContext()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	c.Close()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestContextGlobals(t *testing.T) {
	c := NewContext()
	fn := c.Define("onVolume", func(any, ...any) error { return nil })

	got, ok := c.Lookup("onVolume")
	require.True(t, ok)
	assert.Same(t, fn, got)

	resolved, err := c.Resolve(ByName("onVolume"))
	require.NoError(t, err)
	assert.Same(t, fn, resolved)

	resolved, err = c.Resolve(ByValue(fn))
	require.NoError(t, err)
	assert.Same(t, fn, resolved)

	_, err = c.Resolve(ByName("missing"))
	assert.True(t, errors.Is(err, ErrUnknownGlobal))

	_, err = c.Resolve(Target{})
	assert.True(t, errors.Is(err, ErrNotCallable))

	c.Undefine("onVolume")
	_, ok = c.Lookup("onVolume")
	assert.False(t, ok)

	c.DefineFunction(NewFunction("", nil))
	c.DefineFunction(nil)
}

func TestContextCallRecovers(t *testing.T) {
	events := mocks.NewMockLogger(t)
	events.EXPECT().Log(mock.MatchedBy(func(e log.Event) bool {
		return e.Category == log.CategoryError && e.Error != nil && e.Error.Context == "boom"
	})).Once()
	events.EXPECT().Log(mock.MatchedBy(func(e log.Event) bool {
		return e.Category == log.CategoryError && e.Error != nil && e.Error.Context == "fails"
	})).Once()

	c := NewContext(WithEventLogger(events))

	err := c.Call(NewFunction("boom", func(any, ...any) error { panic("kaput") }))
	assert.True(t, errors.Is(err, ErrCallbackPanic))

	sentinel := errors.New("script error")
	err = c.Call(NewFunction("fails", func(any, ...any) error { return sentinel }))
	assert.True(t, errors.Is(err, sentinel))

	assert.NoError(t, c.Call(NewFunction("ok", func(any, ...any) error { return nil })))
	assert.Equal(t, uint64(2), c.Failures())
}

func TestContextTaskPanicDoesNotStopProcessing(t *testing.T) {
	c := NewContext()

	ran := false
	c.Post(func() { panic("task") })
	c.Post(func() { ran = true })

	assert.Equal(t, 2, c.ProcessEvents())
	assert.True(t, ran)
	assert.Equal(t, uint64(1), c.Failures())
}

func TestContextClose(t *testing.T) {
	c := NewContext()

	var order []string
	c.OnClose(func() { order = append(order, "first") })
	c.OnClose(func() { order = append(order, "second") })

	ran := false
	c.Post(func() { ran = true })

	c.Close()
	c.Close()

	assert.True(t, c.Closed())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, 0, c.ProcessEvents())
	assert.False(t, ran)
	assert.False(t, c.Post(func() {}))
	assert.True(t, errors.Is(c.Call(NewFunction("x", nil)), ErrContextClosed))

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}
}
