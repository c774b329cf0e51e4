package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobridge/cobridge-go/pkg/bridge"
	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/manifest"
	"github.com/cobridge/cobridge-go/pkg/script"
)

const testMapping = `
name: Console Test
controls:
  - key: "[Channel1],volume"
    min: 0
    max: 1
    default: 0.5
settings:
  jogSensitivity: 0.5
`

// syncBuffer is written by the script context and read by the test.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *syncBuffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.Reset()
}

type testHost struct {
	host *Host
	out  *syncBuffer
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()

	m, err := manifest.Parse([]byte(testMapping))
	require.NoError(t, err)

	reg := control.NewRegistry()
	sctx := script.NewContext()
	m.Apply(reg, nil)
	engine := bridge.New(reg, sctx, bridge.WithSettings(m))

	runCtx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	h := New(runCtx, engine, m, out)

	go func() { _ = sctx.Run(runCtx) }()
	t.Cleanup(func() {
		cancel()
		sctx.Close()
		reg.Close()
	})
	return &testHost{host: h, out: out}
}

// exec runs line and returns what it printed.
func (th *testHost) exec(line string) string {
	th.out.Reset()
	th.host.Exec(line)
	return th.out.String()
}

func TestExecQuit(t *testing.T) {
	th := newTestHost(t)

	assert.True(t, th.host.Exec("quit"))
	assert.True(t, th.host.Exec("  EXIT "))
	assert.False(t, th.host.Exec(""))
	assert.Contains(t, th.exec("bogus"), "Unknown command: bogus")
	assert.Contains(t, th.exec("help"), "Soft takeover:")
}

func TestExecUsage(t *testing.T) {
	th := newTestHost(t)

	assert.Equal(t, "Usage: set <group,item> <value>\n", th.exec("set [Channel1],volume"))
	assert.Equal(t, "Usage: brake <deck> on|off [factor] [rate]\n", th.exec("brake 1"))
}

func TestValues(t *testing.T) {
	th := newTestHost(t)

	assert.Equal(t, "[Channel1],volume = 0.5\n", th.exec("get [Channel1],volume"))
	assert.Equal(t, "[Channel1],volume = 0.75\n", th.exec("set [Channel1],volume 0.75"))
	assert.Contains(t, th.exec("list [Channel1]"), "[Channel1],volume")
	assert.Equal(t, "No controls\n", th.exec("list [Channel2]"))

	assert.Equal(t, "[Channel1],volume parameter = 1\n", th.exec("param [Channel1],volume 2"))
	assert.Equal(t, "[Channel1],volume = 0.5\n", th.exec("reset [Channel1],volume"))

	assert.Contains(t, th.exec("get [Channel9],rate"), "Error: unknown control")
	assert.Contains(t, th.exec("get volume"), "Error: invalid control key")
	assert.Contains(t, th.exec("set [Channel1],volume loud"), "Error: invalid value")
}

func TestSetCreatesControl(t *testing.T) {
	th := newTestHost(t)

	assert.Equal(t, "[Channel2],rate = 3\n", th.exec("set [Channel2],rate 3"))
	info := th.exec("info [Channel2],rate")
	assert.Contains(t, info, "Range:     unranged")
	assert.Contains(t, info, "Takeover:  UNARMED")
}

func TestInfo(t *testing.T) {
	th := newTestHost(t)

	info := th.exec("info [Channel1],volume")
	assert.Contains(t, info, "Range:     [0, 1]")
	assert.Contains(t, info, "Default:   0.5 (parameter 0.5)")
	assert.Contains(t, info, "Listeners: 0")
}

func TestWatch(t *testing.T) {
	th := newTestHost(t)

	assert.Contains(t, th.exec("watch [Channel1],volume"), "Watching [Channel1],volume")
	assert.Contains(t, th.exec("watch [Channel1],volume"), "Error: already watching")

	th.exec("set [Channel1],volume 0.25")
	assert.Eventually(t, func() bool {
		return strings.Contains(th.out.String(), "[Channel1],volume -> 0.25")
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, th.exec("unwatch [Channel1],volume"), "Stopped watching")
	assert.Contains(t, th.exec("unwatch [Channel1],volume"), "Error: not watching")
	assert.Equal(t, "No connections\n", th.exec("conns"))
}

func TestConnectByName(t *testing.T) {
	th := newTestHost(t)

	assert.Contains(t, th.exec("connect [Channel1],volume print"), "Connected print to [Channel1],volume")
	assert.Contains(t, th.exec("conns [Channel1],volume"), "print")

	th.exec("trigger [Channel1],volume")
	assert.Eventually(t, func() bool {
		return strings.Contains(th.out.String(), "print(0.5)")
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, th.exec("connect [Channel1],volume print off"), "Disconnected print")
	assert.Equal(t, "No connections\n", th.exec("conns"))
	assert.Contains(t, th.exec("connect [Channel1],volume nope"), "Error: no such global function")
}

func TestSoftTakeover(t *testing.T) {
	th := newTestHost(t)

	assert.Contains(t, th.exec("takeover [Channel1],volume on"), "AWAITING_FIRST")

	// The first write after enabling is ignored.
	assert.Equal(t, "[Channel1],volume = 0.5\n", th.exec("set [Channel1],volume 0.9"))
	assert.Contains(t, th.exec("info [Channel1],volume"), "Takeover:  ARMED")

	th.exec("ignore-next [Channel1],volume")
	assert.Equal(t, "true\n", th.exec("will-ignore [Channel1],volume 0.5"))

	assert.Contains(t, th.exec("takeover [Channel1],volume off"), "UNARMED")
	assert.Equal(t, "false\n", th.exec("will-ignore [Channel1],volume 0.9"))
	assert.Contains(t, th.exec("takeover [Channel1],volume maybe"), "Error: expected on or off")
}

func TestTimers(t *testing.T) {
	th := newTestHost(t)

	assert.Equal(t, "No timers\n", th.exec("timers"))
	assert.Contains(t, th.exec("timer 60000 print"), "Started timer")

	list := th.exec("timers")
	assert.Contains(t, list, "print")
	assert.Contains(t, list, "repeat")

	assert.Contains(t, th.exec("stop 999"), "Error: timer not found")
	assert.Contains(t, th.exec("timer 1000 nope"), "Error: no such global function")
	assert.Contains(t, th.exec("timer soon print"), "Error: invalid interval")
}

func TestCountTimer(t *testing.T) {
	th := newTestHost(t)

	th.exec("timer 20 count once")
	assert.Eventually(t, func() bool {
		return th.exec("get [Console],count") == "[Console],count = 1\n"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "No timers\n", th.exec("timers"))
}

func TestDecks(t *testing.T) {
	th := newTestHost(t)

	assert.Contains(t, th.exec("scratch 1"), "Scratching: false")
	assert.Contains(t, th.exec("brake x on"), "Error: invalid deck")
	assert.Contains(t, th.exec("spinback 1 maybe"), "Error: expected on or off")
	assert.Contains(t, th.exec("softstart 1 on fast"), "Error: invalid number")
}

func TestSettingAndStatus(t *testing.T) {
	th := newTestHost(t)

	assert.Contains(t, th.exec("setting"), "jogSensitivity")
	assert.Equal(t, "jogSensitivity = 0.5\n", th.exec("setting jogSensitivity"))
	assert.Contains(t, th.exec("setting missing"), "Error: unknown setting")

	status := th.exec("status")
	assert.Contains(t, status, "Mapping:     Console Test")
	assert.Contains(t, status, "Controls:    1")
}

func TestSettingWithoutMapping(t *testing.T) {
	reg := control.NewRegistry()
	sctx := script.NewContext()
	t.Cleanup(sctx.Close)

	out := &syncBuffer{}
	h := New(context.Background(), bridge.New(reg, sctx), nil, out)
	go func() { _ = sctx.Run(context.Background()) }()

	h.Exec("setting")
	assert.Contains(t, out.String(), "Error: no mapping loaded")
}

// execWithin runs line and fails the test if it does not return promptly.
func execWithin(t *testing.T, h *Host, line string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		h.Exec(line)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Exec(%q) did not return", line)
	}
}

func TestExecAfterLoopStopped(t *testing.T) {
	reg := control.NewRegistry()
	sctx := script.NewContext()
	t.Cleanup(sctx.Close)

	runCtx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	h := New(runCtx, bridge.New(reg, sctx), nil, out)

	stopped := make(chan struct{})
	go func() {
		_ = sctx.Run(runCtx)
		close(stopped)
	}()
	cancel()
	<-stopped

	execWithin(t, h, "list")
	assert.Equal(t, stoppedMessage+"\n", out.String())
}

func TestExecWhileContextCloses(t *testing.T) {
	reg := control.NewRegistry()
	sctx := script.NewContext()

	out := &syncBuffer{}
	h := New(context.Background(), bridge.New(reg, sctx), nil, out)

	// No loop runs, so the command stays queued until Close drops it.
	time.AfterFunc(50*time.Millisecond, sctx.Close)
	execWithin(t, h, "status")
	assert.Equal(t, stoppedMessage+"\n", out.String())

	out.Reset()
	execWithin(t, h, "status")
	assert.Equal(t, stoppedMessage+"\n", out.String())
}
