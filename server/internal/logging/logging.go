// Package logging configures the process-wide zerolog logger from
// config.LoggingConfig.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eshopco/latencymetrics/server/internal/config"
)

// Init installs the global logger. Output goes to stderr as JSON or, with
// Format "console", as human-readable lines. When File is set the same JSON
// stream is also written to a size-rotated file.
//
// The returned io.Closer releases the rotated file; it is a no-op otherwise.
func Init(lcfg config.LoggingConfig) io.Closer {
	SetLevel(lcfg.Level)

	var console io.Writer = os.Stderr
	if strings.ToLower(lcfg.Format) == "console" {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	if lcfg.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}
	}

	rotated := &lumberjack.Logger{
		Filename:   lcfg.File,
		MaxSize:    lcfg.MaxSizeMB,
		MaxBackups: lcfg.MaxBackups,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, rotated)).With().Timestamp().Logger()
	return rotated
}

// SetLevel changes the global level. Unknown names fall back to info.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
