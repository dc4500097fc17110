// Package logging builds the logrus logger shared by the command line tools.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	c_defaultMaxSize    = 100 // megabytes
	c_defaultMaxBackups = 3
	c_defaultMaxAge     = 28 // days
)

// Options configures New. File, when set, receives a rotated copy of every
// log line in addition to the console output.
type Options struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Format:     "text",
		MaxSize:    c_defaultMaxSize,
		MaxBackups: c_defaultMaxBackups,
		MaxAge:     c_defaultMaxAge,
	}
}

// New returns a logger writing to console, and to the rotated file when one
// is configured.
func New(opts Options, console io.Writer) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", opts.Level)
		}
	}

	formatter, err := newFormatter(opts.Format)
	if err != nil {
		return nil, err
	}

	if console == nil {
		console = os.Stderr
	}
	out := console
	if opts.File != "" {
		out = io.MultiWriter(console, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSize, c_defaultMaxSize),
			MaxBackups: orDefault(opts.MaxBackups, c_defaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAge, c_defaultMaxAge),
			Compress:   opts.Compress,
		})
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logger.SetOutput(out)
	return logger, nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "01-02|15:04:05.000"}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
