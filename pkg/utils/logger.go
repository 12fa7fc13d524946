package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string // debug, info, warn (or warning), error
	OutputPath string // comma separated list of stdout, stderr or file paths
	Format     string // json or console
	Service    string // added to every entry when set
	// Sampling thins out repeated messages, e.g. one warning per
	// skipped spreadsheet row on a large upload
	Sampling bool
}

// Sampler settings: per message, the first samplingFirst entries of each
// second are kept, then every samplingThereafter-th
const (
	samplingFirst      = 100
	samplingThereafter = 100
)

// NewLogger creates a new structured logger
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	sink, err := openSinks(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	var core zapcore.Core = zapcore.NewCore(newEncoder(cfg.Format), sink, ParseLevel(cfg.Level))
	if cfg.Sampling {
		core = zapcore.NewSamplerWithOptions(core, time.Second, samplingFirst, samplingThereafter)
	}

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}

	return logger, nil
}

// ParseLevel maps a configured level name to a zap level. Unknown names
// fall back to info.
func ParseLevel(name string) zapcore.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		return zapcore.WarnLevel
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func newEncoder(format string) zapcore.Encoder {
	if format == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "timestamp"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// openSinks resolves every output in the list and fans entries out to all
// of them. An empty list means stdout.
func openSinks(outputs string) (zapcore.WriteSyncer, error) {
	var syncers []zapcore.WriteSyncer
	seen := make(map[string]bool)
	for _, out := range strings.Split(outputs, ",") {
		out = strings.TrimSpace(out)
		if out == "" {
			out = "stdout"
		}
		if seen[out] {
			continue
		}
		seen[out] = true

		ws, err := openSink(out)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output %q: %w", out, err)
		}
		syncers = append(syncers, ws)
	}
	if len(syncers) == 1 {
		return syncers[0], nil
	}
	return zap.CombineWriteSyncers(syncers...), nil
}

func openSink(out string) (zapcore.WriteSyncer, error) {
	switch out {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(file), nil
}
