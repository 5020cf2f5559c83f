package logger_test

import (
	"os"

	"github.com/ethan/camiotc/pkg/logger"
)

// Example showing basic logger usage
func ExampleLogger_basic() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatText

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.Info("session authenticated", "camera_mac", "2CAABBCCDDEE")
	log.Warn("frame dropped", "reason", "incomplete frame")
	log.Error("connect failed", "error", "connection timeout")
}

// Example showing debug category usage
func ExampleLogger_categories() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelDebug
	cfg.EnableCategory(logger.DebugIOCtrl)
	cfg.EnableCategory(logger.DebugAuth)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.DebugIOCtrl("sent ioctrl frame", "code", 10000)
	log.DebugAuth("challenge received", "camera_status", 3)
}

// Example showing JSON format output
func ExampleLogger_json() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatJSON
	cfg.OutputFile = "app.json"

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()
	defer os.Remove("app.json")

	log.Info("frame received",
		"frame_no", 12345,
		"bytes", 38000,
		"fps", 15)

	// Output will be in JSON format:
	// {"time":"...","level":"INFO","msg":"frame received","frame_no":12345,"bytes":38000,"fps":15}
}

// Example showing conditional debug logging
func ExampleLogger_conditional() {
	cfg := logger.NewConfig()
	cfg.EnableCategory(logger.DebugFrame)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	// Category methods automatically check if enabled; zero-cost if not.
	log.DebugFrame("frame stats", "bytes_per_second", 512000, "frames_per_second", 15)
}
