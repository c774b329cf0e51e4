// Command cobridge hosts a scripting context over a control registry and
// gives it an interactive console.
//
// It loads an optional mapping manifest (declared controls, soft takeover,
// settings), optionally captures every control event to a .clog file, and
// lets the user read and write controls, bind connections and start timers
// the way a mapping script would.
//
// Usage:
//
//	cobridge [flags]
//
// Flags:
//
//	-manifest string   Mapping manifest (YAML)
//	-event-log string  Capture control events to this .clog file
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-env-file string   Environment file with defaults (default ".env")
//
// The environment variables COBRIDGE_MANIFEST, COBRIDGE_EVENT_LOG and
// COBRIDGE_LOG_LEVEL supply values for flags not given on the command line.
//
// Examples:
//
//	# Console over a mapping
//	cobridge -manifest mappings/deck.yaml
//
//	# Capture events for cobridge-log
//	cobridge -manifest mappings/deck.yaml -event-log session.clog -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cobridge/cobridge-go/cmd/cobridge/interactive"
	"github.com/cobridge/cobridge-go/pkg/bridge"
	"github.com/cobridge/cobridge-go/pkg/control"
	cblog "github.com/cobridge/cobridge-go/pkg/log"
	"github.com/cobridge/cobridge-go/pkg/manifest"
	"github.com/cobridge/cobridge-go/pkg/script"
	"github.com/cobridge/cobridge-go/pkg/takeover"
)

// Config holds the host configuration.
type Config struct {
	Manifest string
	EventLog string
	LogLevel string
	EnvFile  string
}

var config Config

func init() {
	registerFlags(flag.CommandLine, &config)
}

func registerFlags(flags *flag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.Manifest, "manifest", "", "Mapping manifest (YAML)")
	flags.StringVar(&cfg.EventLog, "event-log", "", "Capture control events to this .clog file")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&cfg.EnvFile, "env-file", ".env", "Environment file with defaults")
}

// envFlags maps environment variables to the flags they default.
var envFlags = map[string]string{
	"COBRIDGE_MANIFEST":  "manifest",
	"COBRIDGE_EVENT_LOG": "event-log",
	"COBRIDGE_LOG_LEVEL": "log-level",
}

func main() {
	flag.Parse()

	if err := loadEnv(flag.CommandLine, config.EnvFile); err != nil {
		log.Fatalf("Failed to load %s: %v", config.EnvFile, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		log.Fatalf("Invalid log level %q: %v", config.LogLevel, err)
	}

	rl, err := interactive.NewReadline()
	if err != nil {
		log.Fatalf("Failed to create console: %v", err)
	}

	// Log through readline so output does not clobber the prompt.
	log.SetOutput(rl.Stderr())
	logger := slog.New(slog.NewTextHandler(rl.Stderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var sinks []cblog.Logger
	var fileLogger *cblog.FileLogger
	if config.EventLog != "" {
		fileLogger, err = cblog.NewFileLogger(config.EventLog)
		if err != nil {
			log.Fatalf("Failed to create event log: %v", err)
		}
		sinks = append(sinks, fileLogger)
		log.Printf("Capturing events to: %s", config.EventLog)
	}
	if level <= slog.LevelDebug {
		sinks = append(sinks, cblog.NewSlogAdapter(logger))
	}
	events := cblog.Tee(sinks...)

	reg := control.NewRegistry(
		control.WithLogger(logger),
		control.WithEventLogger(events),
	)
	tk := takeover.NewController(
		takeover.WithLogger(logger),
		takeover.WithEventLogger(events),
	)
	scriptCtx := script.NewContext(
		script.WithLogger(logger),
		script.WithEventLogger(events),
	)

	var m *manifest.Manifest
	opts := []bridge.Option{bridge.WithTakeover(tk)}
	if config.Manifest != "" {
		m, err = manifest.Load(config.Manifest)
		if err != nil {
			log.Fatalf("Failed to load manifest: %v", err)
		}
		n := m.Apply(reg, tk)
		log.Printf("Loaded mapping %q: %d controls", m.Name, n)
		opts = append(opts, bridge.WithSettings(m))
	}
	engine := bridge.New(reg, scriptCtx, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	host := interactive.New(ctx, engine, m, rl.Stdout())

	go func() {
		if err := scriptCtx.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("script context stopped", "error", err)
		}
	}()

	log.Printf("Script context %s running", scriptCtx.ID())
	host.Run(ctx, cancel, rl)

	log.SetOutput(os.Stderr)
	log.Println("Shutting down...")
	scriptCtx.Close()
	reg.Close()

	if fileLogger != nil {
		if err := fileLogger.Close(); err != nil {
			log.Printf("Error closing event log: %v", err)
		}
		if dropped := fileLogger.Dropped(); dropped > 0 {
			log.Printf("Warning: %d events could not be written", dropped)
		}
	}

	log.Println("Goodbye!")
}

// loadEnv reads path into the environment and applies the COBRIDGE_
// variables to flags of a parsed set that were not set explicitly. A
// missing file is not an error.
func loadEnv(flags *flag.FlagSet, path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	explicit := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for env, name := range envFlags {
		v, ok := os.LookupEnv(env)
		if !ok || explicit[name] {
			continue
		}
		if err := flags.Set(name, v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}
