// Package logging builds the zap logger used across cppc.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/colthorp/cppc-go/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction beyond what config.Config carries.
type Options struct {
	// Verbose forces debug level on the console sink.
	Verbose bool
	// Quiet raises the console sink to error level.
	Quiet bool
	// Console receives human-readable records. Defaults to os.Stderr.
	Console io.Writer
}

// ParseLevel converts a config log level to a zap level.
// "off" is reported separately because zap has no such level.
func ParseLevel(level string) (lvl zapcore.Level, off bool) {
	switch strings.ToLower(level) {
	case "off":
		return zapcore.FatalLevel, true
	case "debug":
		return zapcore.DebugLevel, false
	case "warn":
		return zapcore.WarnLevel, false
	case "error":
		return zapcore.ErrorLevel, false
	default:
		return zapcore.InfoLevel, false
	}
}

// New creates the application logger: a console core on stderr and, when
// cfg.LogFile is set, a JSON core writing to a rotated file. Level "off"
// silences the console only; the file sink then records at info.
func New(cfg *config.Config, opts Options) (*zap.Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level, off := ParseLevel(cfg.LogLevel)
	consoleLevel := level
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
		off = false
	} else if opts.Quiet && consoleLevel < zapcore.ErrorLevel {
		consoleLevel = zapcore.ErrorLevel
	}

	var cores []zapcore.Core
	if !off {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encCfg.CallerKey = ""
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(console),
			consoleLevel,
		))
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,    // MB
			MaxBackups: cfg.LogMaxBackups, // number of old files
			MaxAge:     cfg.LogMaxAge,     // days
		}
		fileLevel := level
		if off {
			fileLevel = zapcore.InfoLevel
		}
		if opts.Verbose {
			fileLevel = zapcore.DebugLevel
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(fileWriter),
			fileLevel,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
