package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/cobridge/cobridge-go/pkg/log"
)

const timestampFormat = "2006-01-02T15:04:05.000000Z"

// eventType returns a short label for the payload of event.
func eventType(event log.Event) string {
	switch {
	case event.Write != nil:
		if event.Write.Rejected {
			return "Write rejected"
		}
		return "Write"
	case event.Notify != nil:
		switch {
		case event.Notify.Dropped:
			return "Notify dropped"
		case event.Notify.Direct:
			return "Notify direct"
		}
		return "Notify"
	case event.Takeover != nil:
		return "Takeover " + event.Takeover.Action.String()
	case event.Timer != nil:
		return "Timer " + event.Timer.Action.String()
	case event.Connection != nil:
		return "Connection " + event.Connection.Action.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// controlName returns "group,item" or "-".
func controlName(event log.Event) string {
	if event.Group == "" && event.Item == "" {
		return "-"
	}
	return event.Group + "," + event.Item
}

// shortenContextID returns the first 8 characters of the context ID.
func shortenContextID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampFormat)
	fmt.Fprintf(w, "%s [ctx:%s] %-6s %s %s\n",
		ts, shortenContextID(event.ContextID), event.Layer, controlName(event), eventType(event))

	switch {
	case event.Write != nil:
		wr := event.Write
		fmt.Fprintf(w, "  %g -> %g", wr.Previous, wr.Value)
		if wr.Parameter {
			fmt.Fprint(w, " (parameter)")
		}
		if wr.Rejected {
			fmt.Fprintf(w, " reason=%s", wr.Reason)
		} else {
			fmt.Fprintf(w, " rev=%d", wr.Revision)
		}
		fmt.Fprintln(w)
	case event.Notify != nil:
		fmt.Fprintf(w, "  Connection: %d  Value: %g  Revision: %d\n",
			event.Notify.ConnectionID, event.Notify.Value, event.Notify.Revision)
	case event.Takeover != nil:
		if event.Takeover.Action == log.TakeoverReject {
			fmt.Fprintf(w, "  Parameter: %g  Current: %g\n", event.Takeover.Parameter, event.Takeover.Current)
		}
	case event.Timer != nil:
		fmt.Fprintf(w, "  Timer: %d", event.Timer.TimerID)
		if event.Timer.Interval > 0 {
			fmt.Fprintf(w, "  Interval: %s", event.Timer.Interval)
		}
		if event.Timer.OneShot {
			fmt.Fprint(w, "  one-shot")
		}
		fmt.Fprintln(w)
	case event.Connection != nil:
		fmt.Fprintf(w, "  Connection: %d", event.Connection.ConnectionID)
		if event.Connection.Name != "" {
			fmt.Fprintf(w, "  Callback: %s", event.Connection.Name)
		}
		fmt.Fprintln(w)
	case event.Error != nil:
		fmt.Fprintf(w, "  Layer: %s\n", event.Error.Layer)
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}

// RunView prints every event of path that matches filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
