package logger

import (
	"flag"
	"fmt"
	"strings"
)

// Flags holds all logging-related command-line flags
type Flags struct {
	LogLevel       string
	LogFormat      string
	LogFile        string
	DebugIOCtrl    bool
	DebugAuth      bool
	DebugFrame     bool
	DebugTransport bool
	DebugAll       bool
}

// RegisterFlags registers logging flags with the given FlagSet
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.LogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	fs.StringVar(&f.LogLevel, "l", "info",
		"Log level (shorthand)")

	fs.StringVar(&f.LogFormat, "log-format", "text",
		"Log output format: text, json")

	fs.StringVar(&f.LogFile, "log-file", "",
		"Log output file path (default: stdout)")
	fs.StringVar(&f.LogFile, "o", "",
		"Log output file path (shorthand)")

	// Debug category flags
	fs.BoolVar(&f.DebugIOCtrl, "debug-ioctrl", false,
		"Enable ioctrl frame debugging (codes, sizes, round-trip timing)")
	fs.BoolVar(&f.DebugAuth, "debug-auth", false,
		"Enable authentication handshake debugging")
	fs.BoolVar(&f.DebugFrame, "debug-frame", false,
		"Enable AV frame receive debugging (frame size, dropped frames)")
	fs.BoolVar(&f.DebugTransport, "debug-transport", false,
		"Enable transport session debugging (connect, session check, teardown)")
	fs.BoolVar(&f.DebugAll, "debug-all", false,
		"Enable all debug categories")

	return f
}

// ToConfig converts Flags to a logger Config
func (f *Flags) ToConfig() (*Config, error) {
	cfg := NewConfig()

	// Parse log level
	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	// Parse format
	format, err := ParseFormat(f.LogFormat)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	// Set output file
	cfg.OutputFile = f.LogFile

	// Enable debug categories
	if f.DebugAll {
		cfg.EnableCategory(DebugAll)
		// Force debug level when any debug category is enabled
		cfg.Level = LevelDebug
	} else {
		if f.DebugIOCtrl {
			cfg.EnableCategory(DebugIOCtrl)
			cfg.Level = LevelDebug
		}
		if f.DebugAuth {
			cfg.EnableCategory(DebugAuth)
			cfg.Level = LevelDebug
		}
		if f.DebugFrame {
			cfg.EnableCategory(DebugFrame)
			cfg.Level = LevelDebug
		}
		if f.DebugTransport {
			cfg.EnableCategory(DebugTransport)
			cfg.Level = LevelDebug
		}
	}

	return cfg, nil
}

// PrintUsageExamples prints usage examples for logging flags
func PrintUsageExamples() {
	examples := `
Logging Examples:

  Basic usage (INFO level, text format to stdout):
    ./stream

  Enable DEBUG level:
    ./stream --log-level debug
    ./stream -l debug

  Log to file:
    ./stream --log-file stream.log
    ./stream -o stream.log

  JSON format for structured logging:
    ./stream --log-format json -o stream.json

  Debug the auth handshake only:
    ./stream --debug-auth

  Debug ioctrl frames only:
    ./stream --debug-ioctrl

  Debug multiple categories:
    ./stream --debug-ioctrl --debug-auth --debug-frame

  Debug everything:
    ./stream --debug-all -o debug.log

  Production logging (WARN level, JSON to file):
    ./stream -l warn --log-format json -o production.log
`
	fmt.Println(examples)
}

// String returns a string representation of enabled flags
func (f *Flags) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("level=%s", f.LogLevel))
	parts = append(parts, fmt.Sprintf("format=%s", f.LogFormat))

	if f.LogFile != "" {
		parts = append(parts, fmt.Sprintf("output=%s", f.LogFile))
	} else {
		parts = append(parts, "output=stdout")
	}

	var debugCategories []string
	if f.DebugAll {
		debugCategories = append(debugCategories, "all")
	} else {
		if f.DebugIOCtrl {
			debugCategories = append(debugCategories, "ioctrl")
		}
		if f.DebugAuth {
			debugCategories = append(debugCategories, "auth")
		}
		if f.DebugFrame {
			debugCategories = append(debugCategories, "frame")
		}
		if f.DebugTransport {
			debugCategories = append(debugCategories, "transport")
		}
	}

	if len(debugCategories) > 0 {
		parts = append(parts, fmt.Sprintf("debug=[%s]", strings.Join(debugCategories, ",")))
	}

	return strings.Join(parts, " ")
}
