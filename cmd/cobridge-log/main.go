// Command cobridge-log views and analyzes control event logs.
//
// Event logs are written by cobridge when started with -event-log.
//
// Usage:
//
//	cobridge-log <command> [flags] <file.clog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON lines or CSV
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View only soft-takeover decisions
//	cobridge-log view -category takeover session.clog
//
//	# Everything that happened to one control
//	cobridge-log view -control "[Channel1],volume" session.clog
//
//	# Keep one script context's events
//	cobridge-log filter -context-id 1f0c2e4a -o ctx.clog session.clog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cobridge/cobridge-go/cmd/cobridge-log/commands"
)

const usage = `cobridge-log - control event log analyzer

Usage:
  cobridge-log <command> [flags] <file.clog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON lines or CSV
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "cobridge-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// newFlagSet creates a flag set with a usage header for sub.
func newFlagSet(sub, summary, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "cobridge-log %s - %s\n\nUsage:\n  cobridge-log %s\n\nFlags:\n", sub, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// selectionFlags registers the event selection flags on fs.
func selectionFlags(fs *flag.FlagSet) *commands.FilterOptions {
	var opts commands.FilterOptions
	fs.StringVar(&opts.ContextID, "context-id", "", "Filter by script context ID")
	fs.StringVar(&opts.Control, "control", "", `Filter by control ("group,item" or "group")`)
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (engine, script, bridge)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (write, notify, takeover, timer, connection, error)")
	return &opts
}

// logPath parses args and returns the single log file argument.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "view [flags] <file.clog>")
	opts := selectionFlags(fs)
	path := logPath(fs, args)

	filter, err := opts.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON lines or CSV", "export [flags] <file.clog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := logPath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "filter [flags] <file.clog>")
	output := fs.String("o", "", "Output file (required)")
	opts := selectionFlags(fs)
	path := logPath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}
	filter, err := opts.Build()
	if err != nil {
		fail(err)
	}
	n, err := commands.RunFilter(path, *output, filter)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "stats <file.clog>")
	path := logPath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
