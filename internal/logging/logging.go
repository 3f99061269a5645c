// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and destination of log output.
type Options struct {
	Level      string // logrus level name
	Format     string // json | text
	Output     string // stdout | stderr | file path
	MaxAgeDays int
	MaxSizeMB  int
}

// Configure applies opts to l. Output other than stdout or stderr is treated
// as a file path and rotated with lumberjack. The returned closer releases the
// file, and is a no-op for the standard streams.
func Configure(l *logrus.Logger, opts Options) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s'", opts.Level)
	}

	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	var formatter logrus.Formatter
	switch opts.Format {
	case "json", "":
		formatter = &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
			CallerPrettyfier: callerPrettyfier,
		}
	case "text":
		formatter = &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		}
	default:
		return nil, fmt.Errorf("invalid log format '%s'", opts.Format)
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch opts.Output {
	case "stdout", "":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		rotating := &lumberjack.Logger{
			Filename: opts.Output,
			MaxAge:   opts.MaxAgeDays,
			MaxSize:  opts.MaxSizeMB,
			Compress: true,
		}
		out, closer = rotating, rotating
	}

	l.SetLevel(lvl)
	l.SetFormatter(formatter)
	l.SetOutput(out)
	l.SetReportCaller(lvl >= logrus.DebugLevel)
	return closer, nil
}

// Component returns an entry of the standard logger tagged with name.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
