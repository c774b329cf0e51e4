// Package interactive provides the command-line interface of cobridge: a
// prompt for poking controls, connections, timers and soft takeover the way
// a mapping script would.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/cobridge/cobridge-go/pkg/bridge"
	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/manifest"
	"github.com/cobridge/cobridge-go/pkg/subscription"
)

// Host runs console commands against an engine. Commands execute on the
// engine's script context, so the context's loop must be running; once ctx
// is done or the script context is closed, commands fail instead of
// waiting.
type Host struct {
	ctx      context.Context
	engine   *bridge.Engine
	manifest *manifest.Manifest
	out      io.Writer

	// watches is only touched on the script context.
	watches map[control.Key]*subscription.Connection
}

// New creates a host printing to out. ctx is the lifetime of the script
// context's loop. m may be nil.
func New(ctx context.Context, engine *bridge.Engine, m *manifest.Manifest, out io.Writer) *Host {
	h := &Host{
		ctx:      ctx,
		engine:   engine,
		manifest: m,
		out:      out,
		watches:  make(map[control.Key]*subscription.Connection),
	}
	h.defineGlobals()
	return h
}

// NewReadline creates the prompt used by Run.
func NewReadline() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cobridge> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// Run reads commands from rl until quit, EOF or ctx is done. rl is closed
// when ctx is done so a pending Readline returns.
func (h *Host) Run(ctx context.Context, cancel context.CancelFunc, rl *readline.Instance) {
	var once sync.Once
	closeRL := func() { once.Do(func() { _ = rl.Close() }) }
	defer closeRL()
	stop := context.AfterFunc(ctx, closeRL)
	defer stop()

	h.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(h.out, "Exiting...")
			cancel()
			return
		}

		if h.Exec(line) {
			fmt.Fprintln(h.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It reports whether the user asked to quit.
func (h *Host) Exec(line string) (quit bool) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	if cmd == "quit" || cmd == "exit" || cmd == "q" {
		return true
	}
	if cmd == "help" || cmd == "?" {
		h.printHelp()
		return false
	}

	c, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(h.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return false
	}
	if len(args) < c.minArgs {
		fmt.Fprintf(h.out, "Usage: %s %s\n", cmd, c.usage)
		return false
	}
	h.do(func() {
		if err := c.run(h, args); err != nil {
			fmt.Fprintf(h.out, "Error: %v\n", err)
		}
	})
	return false
}

// do runs fn on the script context and waits for it, unless the loop has
// stopped.
func (h *Host) do(fn func()) {
	sctx := h.engine.Context()
	done := make(chan struct{})
	if h.ctx.Err() != nil || !sctx.Post(func() {
		defer close(done)
		fn()
	}) {
		fmt.Fprintln(h.out, stoppedMessage)
		return
	}

	select {
	case <-done:
		return
	case <-h.ctx.Done():
	case <-sctx.Done():
	}
	select {
	case <-done:
	default:
		fmt.Fprintln(h.out, stoppedMessage)
	}
}

const stoppedMessage = "Error: script context stopped"

// countKey is the control the count function increments.
var countKey = control.K("[Console]", "count")

// defineGlobals registers the functions commands can bind by name.
func (h *Host) defineGlobals() {
	ctx := h.engine.Context()
	ctx.Define("print", func(_ any, args ...any) error {
		fmt.Fprintf(h.out, "print(%s)\n", formatArgs(args))
		return nil
	})
	ctx.Define("count", func(_ any, _ ...any) error {
		h.engine.SetValue(countKey.Group, countKey.Item, h.engine.GetValue(countKey.Group, countKey.Item)+1)
		return nil
	})
}

func (h *Host) printHelp() {
	fmt.Fprintln(h.out, `
Control Commands:
  Values:
    list [group]                 - List controls
    get <group,item>             - Read a value
    set <group,item> <value>     - Write a value (through soft takeover)
    param <group,item> [p]       - Read or write the [0,1] parameter
    reset <group,item>           - Restore the default
    info <group,item>            - Show range, default and state

  Connections:
    watch <group,item>           - Print every change
    unwatch <group,item>         - Stop printing changes
    connect <group,item> <fn> [off] - Bind or unbind a global function
    trigger <group,item>         - Deliver the current value again
    conns [group,item]           - List connections

  Timers:
    timer <ms> <fn> [once]       - Start a timer calling a global function
    stop <id>                    - Stop a timer
    timers                       - List timers

  Soft takeover:
    takeover <group,item> on|off - Enable or disable
    ignore-next <group,item>     - Ignore the next write
    will-ignore <group,item> <p> - Would writing p be ignored?

  Decks:
    brake <deck> on|off [factor] [rate]
    spinback <deck> on|off [factor] [rate]
    softstart <deck> on|off [factor]
    scratch <deck>               - Show scratch state

  Mapping:
    setting [name]               - Show mapping settings
    status                       - Show engine status

  Global functions: print (prints its arguments), count (increments [Console],count)

  help                           - Show this help
  quit                           - Exit`)
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, ", ")
}
