package commands

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cobridge/cobridge-go/pkg/log"
)

// RunExport exports the log file to format ("jsonl" or "csv"). An empty
// output writes to stdout.
func RunExport(path, format, output string) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{"timestamp", "context_id", "layer", "category", "group", "item", "type", "value"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return cw.Error()
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		value := ""
		switch {
		case event.Write != nil:
			value = strconv.FormatFloat(event.Write.Value, 'g', -1, 64)
		case event.Notify != nil:
			value = strconv.FormatFloat(event.Notify.Value, 'g', -1, 64)
		case event.Takeover != nil && event.Takeover.Action == log.TakeoverReject:
			value = strconv.FormatFloat(event.Takeover.Parameter, 'g', -1, 64)
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampFormat),
			event.ContextID,
			event.Layer.String(),
			event.Category.String(),
			event.Group,
			event.Item,
			eventType(event),
			value,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}
