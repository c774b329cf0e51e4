package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cobridge/cobridge-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Contexts         map[string]int
	Controls         map[string]*ControlStats
	RejectedWrites   int
	DroppedNotifies  int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ControlStats holds statistics for a single control.
type ControlStats struct {
	Writes    int
	Notifies  int
	Takeovers int
}

// Collect reads path and aggregates its events.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		Contexts:         make(map[string]int),
		Controls:         make(map[string]*ControlStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	if event.ContextID != "" {
		s.Contexts[event.ContextID]++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Group != "" {
		name := controlName(event)
		cs, ok := s.Controls[name]
		if !ok {
			cs = &ControlStats{}
			s.Controls[name] = cs
		}
		switch {
		case event.Write != nil:
			cs.Writes++
		case event.Notify != nil:
			cs.Notifies++
		case event.Takeover != nil:
			cs.Takeovers++
		}
	}

	switch {
	case event.Write != nil && event.Write.Rejected:
		s.RejectedWrites++
	case event.Notify != nil && event.Notify.Dropped:
		s.DroppedNotifies++
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

// topControls is how many of the busiest controls are listed.
const topControls = 10

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Control Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Script Contexts: %d\n", len(stats.Contexts))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerEngine, log.LayerScript, log.LayerBridge} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{
		log.CategoryWrite, log.CategoryNotify, log.CategoryTakeover,
		log.CategoryTimer, log.CategoryConnection, log.CategoryError,
	} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}

	if len(stats.Controls) > 0 {
		type controlInfo struct {
			name  string
			stats *ControlStats
		}
		controls := make([]controlInfo, 0, len(stats.Controls))
		for name, cs := range stats.Controls {
			controls = append(controls, controlInfo{name, cs})
		}
		sort.Slice(controls, func(i, j int) bool {
			a, b := controls[i].stats, controls[j].stats
			if a.Writes != b.Writes {
				return a.Writes > b.Writes
			}
			return controls[i].name < controls[j].name
		})
		if len(controls) > topControls {
			controls = controls[:topControls]
		}

		fmt.Fprintln(w)
		fmt.Fprintf(w, "Controls: %d\n", len(stats.Controls))
		for _, c := range controls {
			fmt.Fprintf(w, "  %-28s writes=%d notifies=%d takeover=%d\n",
				c.name, c.stats.Writes, c.stats.Notifies, c.stats.Takeovers)
		}
	}

	if stats.RejectedWrites > 0 || stats.DroppedNotifies > 0 || stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Rejected writes: %d\n", stats.RejectedWrites)
		fmt.Fprintf(w, "Dropped notifications: %d\n", stats.DroppedNotifies)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
