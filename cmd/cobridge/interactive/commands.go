package interactive

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/cobridge/cobridge-go/pkg/bridge"
	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/script"
	"github.com/cobridge/cobridge-go/pkg/subscription"
	"github.com/cobridge/cobridge-go/pkg/timer"
)

var (
	errAlreadyWatching = errors.New("already watching")
	errNotWatching     = errors.New("not watching")
	errUnknownFunction = errors.New("no such global function")
	errNoMapping       = errors.New("no mapping loaded")
)

type command struct {
	minArgs int
	usage   string
	run     func(h *Host, args []string) error
}

var commands = map[string]command{
	"list":        {0, "[group]", (*Host).list},
	"get":         {1, "<group,item>", (*Host).get},
	"set":         {2, "<group,item> <value>", (*Host).set},
	"param":       {1, "<group,item> [p]", (*Host).param},
	"reset":       {1, "<group,item>", (*Host).reset},
	"info":        {1, "<group,item>", (*Host).info},
	"watch":       {1, "<group,item>", (*Host).watch},
	"unwatch":     {1, "<group,item>", (*Host).unwatch},
	"connect":     {2, "<group,item> <fn> [off]", (*Host).connect},
	"trigger":     {1, "<group,item>", (*Host).trigger},
	"conns":       {0, "[group,item]", (*Host).conns},
	"timer":       {2, "<ms> <fn> [once]", (*Host).startTimer},
	"stop":        {1, "<id>", (*Host).stopTimer},
	"timers":      {0, "", (*Host).timers},
	"takeover":    {2, "<group,item> on|off", (*Host).takeover},
	"ignore-next": {1, "<group,item>", (*Host).ignoreNext},
	"will-ignore": {2, "<group,item> <p>", (*Host).willIgnore},
	"brake":       {2, "<deck> on|off [factor] [rate]", (*Host).brake},
	"spinback":    {2, "<deck> on|off [factor] [rate]", (*Host).spinback},
	"softstart":   {2, "<deck> on|off [factor]", (*Host).softStart},
	"scratch":     {1, "<deck>", (*Host).scratch},
	"setting":     {0, "[name]", (*Host).setting},
	"status":      {0, "", (*Host).status},
}

func completer() *readline.PrefixCompleter {
	names := make([]string, 0, len(commands)+2)
	for name := range commands {
		names = append(names, name)
	}
	names = append(names, "help", "quit")
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		items[i] = readline.PcItem(name)
	}
	return readline.NewPrefixCompleter(items...)
}

// lookup returns the existing cell named by s.
func (h *Host) lookup(s string) (*control.Cell, error) {
	key, err := control.ParseKey(s)
	if err != nil {
		return nil, err
	}
	cell, ok := h.engine.Registry().Find(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bridge.ErrUnknownControl, key)
	}
	return cell, nil
}

func (h *Host) list(args []string) error {
	n := 0
	for _, key := range h.engine.Registry().Keys() {
		if len(args) > 0 && key.Group != args[0] {
			continue
		}
		fmt.Fprintf(h.out, "  %-32s %g\n", key, h.engine.GetValue(key.Group, key.Item))
		n++
	}
	if n == 0 {
		fmt.Fprintln(h.out, "No controls")
	}
	return nil
}

func (h *Host) get(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "%s = %g\n", cell.Key(), cell.Get())
	return nil
}

func (h *Host) set(args []string) error {
	key, err := control.ParseKey(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	h.engine.SetValue(key.Group, key.Item, v)
	fmt.Fprintf(h.out, "%s = %g\n", key, h.engine.GetValue(key.Group, key.Item))
	return nil
}

func (h *Host) param(args []string) error {
	key, err := control.ParseKey(args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		p, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid parameter: %w", err)
		}
		h.engine.SetParameter(key.Group, key.Item, p)
	} else if _, err := h.lookup(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "%s parameter = %g\n", key, h.engine.GetParameter(key.Group, key.Item))
	return nil
}

func (h *Host) reset(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	h.engine.Reset(cell.Key().Group, cell.Key().Item)
	fmt.Fprintf(h.out, "%s = %g\n", cell.Key(), cell.Get())
	return nil
}

func (h *Host) info(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	key := cell.Key()
	fmt.Fprintf(h.out, "%s\n", key)
	fmt.Fprintf(h.out, "  Value:     %g\n", cell.Get())
	if r, ok := cell.Range(); ok {
		fmt.Fprintf(h.out, "  Range:     [%g, %g]\n", r.Min, r.Max)
	} else {
		fmt.Fprintln(h.out, "  Range:     unranged")
	}
	fmt.Fprintf(h.out, "  Parameter: %g\n", cell.Parameter())
	fmt.Fprintf(h.out, "  Default:   %g (parameter %g)\n", cell.Default(), cell.DefaultParameter())
	fmt.Fprintf(h.out, "  Revision:  %d\n", cell.Revision())
	fmt.Fprintf(h.out, "  Listeners: %d\n", cell.Listeners())
	fmt.Fprintf(h.out, "  Takeover:  %s\n", h.engine.Takeover().State(key))
	return nil
}

func (h *Host) watch(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	key := cell.Key()
	if _, ok := h.watches[key]; ok {
		return fmt.Errorf("%w: %s", errAlreadyWatching, key)
	}
	fn := script.NewFunction("watch", func(_ any, args ...any) error {
		fmt.Fprintf(h.out, "%s -> %s\n", key, formatArgs(args))
		return nil
	})
	conn := h.engine.MakeConnection(key.Group, key.Item, fn)
	if conn == nil {
		return fmt.Errorf("failed to watch %s", key)
	}
	h.watches[key] = conn
	fmt.Fprintf(h.out, "Watching %s (connection %d)\n", key, conn.ID())
	return nil
}

func (h *Host) unwatch(args []string) error {
	key, err := control.ParseKey(args[0])
	if err != nil {
		return err
	}
	conn, ok := h.watches[key]
	if !ok {
		return fmt.Errorf("%w: %s", errNotWatching, key)
	}
	conn.Disconnect()
	delete(h.watches, key)
	fmt.Fprintf(h.out, "Stopped watching %s\n", key)
	return nil
}

func (h *Host) connect(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	key := cell.Key()
	name := args[1]
	if _, ok := h.engine.Context().Lookup(name); !ok {
		return fmt.Errorf("%w: %s", errUnknownFunction, name)
	}

	if len(args) > 2 && args[2] == "off" {
		h.engine.ConnectControl(key.Group, key.Item, name, true)
		fmt.Fprintf(h.out, "Disconnected %s from %s\n", name, key)
		return nil
	}
	conn := h.engine.ConnectControl(key.Group, key.Item, name)
	if conn == nil {
		return fmt.Errorf("failed to connect %s to %s", name, key)
	}
	fmt.Fprintf(h.out, "Connected %s to %s (connection %d)\n", name, key, conn.ID())
	return nil
}

func (h *Host) trigger(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	h.engine.Trigger(cell.Key().Group, cell.Key().Item)
	return nil
}

func (h *Host) conns(args []string) error {
	keys := h.engine.Registry().Keys()
	if len(args) > 0 {
		key, err := control.ParseKey(args[0])
		if err != nil {
			return err
		}
		keys = []control.Key{key}
	}

	n := 0
	for _, key := range keys {
		for _, c := range h.engine.Connections().Connections(key) {
			fmt.Fprintf(h.out, "  %4d  %-32s %s\n", c.ID(), key, describeConnection(c))
			n++
		}
	}
	if n == 0 {
		fmt.Fprintln(h.out, "No connections")
	}
	return nil
}

func describeConnection(c *subscription.Connection) string {
	s := c.Name()
	if s == "" {
		s = c.Function().String()
	}
	if c.Unbuffered() {
		s += " (unbuffered)"
	}
	return s
}

func (h *Host) startTimer(args []string) error {
	ms, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	name := args[1]
	if _, ok := h.engine.Context().Lookup(name); !ok {
		return fmt.Errorf("%w: %s", errUnknownFunction, name)
	}
	oneShot := len(args) > 2 && args[2] == "once"

	id := h.engine.BeginTimer(ms, name, oneShot)
	if id == 0 {
		return errors.New("failed to start timer")
	}
	fmt.Fprintf(h.out, "Started timer %d\n", id)
	return nil
}

func (h *Host) stopTimer(args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid timer id: %w", err)
	}
	if !h.engine.Timers().Stop(id) {
		return fmt.Errorf("%w: %d", timer.ErrTimerNotFound, id)
	}
	fmt.Fprintf(h.out, "Stopped timer %d\n", id)
	return nil
}

func (h *Host) timers(_ []string) error {
	list := h.engine.Timers().List()
	if len(list) == 0 {
		fmt.Fprintln(h.out, "No timers")
		return nil
	}
	for _, t := range list {
		mode := "repeat"
		if t.OneShot {
			mode = "once"
		}
		fmt.Fprintf(h.out, "  %4d  %-8v %-6s %-20s next in %v\n",
			t.ID, t.Interval, mode, t.Callback(), t.RemainingTime().Round(time.Millisecond))
	}
	return nil
}

func (h *Host) takeover(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	key := cell.Key()
	h.engine.SoftTakeover(key.Group, key.Item, on)
	fmt.Fprintf(h.out, "Soft takeover %s: %s\n", key, h.engine.Takeover().State(key))
	return nil
}

func (h *Host) ignoreNext(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	h.engine.SoftTakeoverIgnoreNextValue(cell.Key().Group, cell.Key().Item)
	return nil
}

func (h *Host) willIgnore(args []string) error {
	cell, err := h.lookup(args[0])
	if err != nil {
		return err
	}
	p, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid parameter: %w", err)
	}
	key := cell.Key()
	fmt.Fprintf(h.out, "%v\n", h.engine.SoftTakeoverWillIgnore(key.Group, key.Item, p))
	return nil
}

func (h *Host) brake(args []string) error {
	deck, on, rest, err := deckArgs(args)
	if err != nil {
		return err
	}
	factor, rate, err := floats(rest, bridge.DefaultBrakeFactor, bridge.DefaultBrakeRate)
	if err != nil {
		return err
	}
	h.engine.Brake(deck, on, factor, rate)
	return nil
}

func (h *Host) spinback(args []string) error {
	deck, on, rest, err := deckArgs(args)
	if err != nil {
		return err
	}
	factor, rate, err := floats(rest, bridge.DefaultSpinbackFactor, bridge.DefaultSpinbackRate)
	if err != nil {
		return err
	}
	h.engine.Spinback(deck, on, factor, rate)
	return nil
}

func (h *Host) softStart(args []string) error {
	deck, on, rest, err := deckArgs(args)
	if err != nil {
		return err
	}
	factor, _, err := floats(rest, bridge.DefaultSoftStartFactor, 0)
	if err != nil {
		return err
	}
	h.engine.SoftStart(deck, on, factor)
	return nil
}

func (h *Host) scratch(args []string) error {
	deck, err := strconv.Atoi(args[0])
	if err != nil || deck < 1 {
		return fmt.Errorf("invalid deck: %s", args[0])
	}
	fmt.Fprintf(h.out, "%s\n", control.DeckGroup(deck))
	fmt.Fprintf(h.out, "  Scratching: %v\n", h.engine.IsScratching(deck))
	fmt.Fprintf(h.out, "  Brake:      %v\n", h.engine.IsBrakeActive(deck))
	fmt.Fprintf(h.out, "  Spinback:   %v\n", h.engine.IsSpinbackActive(deck))
	fmt.Fprintf(h.out, "  Soft start: %v\n", h.engine.IsSoftStartActive(deck))
	return nil
}

func (h *Host) setting(args []string) error {
	if h.manifest == nil {
		return errNoMapping
	}
	if len(args) > 0 {
		v, ok := h.manifest.Setting(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", bridge.ErrUnknownSetting, args[0])
		}
		fmt.Fprintf(h.out, "%s = %v\n", args[0], v)
		return nil
	}
	names := h.manifest.SettingNames()
	if len(names) == 0 {
		fmt.Fprintln(h.out, "No settings")
	}
	for _, name := range names {
		v, _ := h.manifest.Setting(name)
		fmt.Fprintf(h.out, "  %-24s %v\n", name, v)
	}
	return nil
}

func (h *Host) status(_ []string) error {
	ctx := h.engine.Context()
	mapping := "(none)"
	if h.manifest != nil {
		mapping = h.manifest.Name
	}
	fmt.Fprintln(h.out, "Engine Status:")
	fmt.Fprintf(h.out, "  Context:     %s\n", ctx.ID())
	fmt.Fprintf(h.out, "  Mapping:     %s\n", mapping)
	fmt.Fprintf(h.out, "  Controls:    %d\n", h.engine.Registry().Len())
	fmt.Fprintf(h.out, "  Connections: %d\n", h.engine.Connections().Count())
	fmt.Fprintf(h.out, "  Timers:      %d\n", h.engine.Timers().Count())
	fmt.Fprintf(h.out, "  Watches:     %d\n", len(h.watches))
	fmt.Fprintf(h.out, "  Failures:    %d\n", ctx.Failures())
	return nil
}

// deckArgs parses "<deck> on|off" and returns the remaining arguments.
func deckArgs(args []string) (deck int, on bool, rest []string, err error) {
	deck, err = strconv.Atoi(args[0])
	if err != nil || deck < 1 {
		return 0, false, nil, fmt.Errorf("invalid deck: %s", args[0])
	}
	on, err = parseSwitch(args[1])
	if err != nil {
		return 0, false, nil, err
	}
	return deck, on, args[2:], nil
}

// floats parses up to two optional numbers, falling back to the defaults.
func floats(args []string, a, b float64) (float64, float64, error) {
	out := [2]float64{a, b}
	for i := 0; i < len(args) && i < 2; i++ {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid number %q: %w", args[i], err)
		}
		out[i] = v
	}
	return out[0], out[1], nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
