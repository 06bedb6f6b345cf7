package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	l     *logrus.Logger
	entry *logrus.Entry
}

type Conf struct {
	Level  string
	Format string
	Output io.Writer
}

func New(conf Conf) (*Logger, error) {
	l := logrus.New()

	if conf.Output != nil {
		l.SetOutput(conf.Output)
	}

	if conf.Level != "" {
		level, err := logrus.ParseLevel(conf.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", conf.Level, err)
		}

		l.SetLevel(level)
	}

	if conf.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		//nolint:exhaustruct
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{l: l, entry: logrus.NewEntry(l)}, nil
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return &Logger{l: l, entry: logrus.NewEntry(l)}
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{l: l.l, entry: l.entry.WithFields(fields)}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.entry.Errorf(format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.entry.Infof(format, v...)
}

func (l *Logger) LogDebug(format string, v ...any) {
	l.entry.Debugf(format, v...)
}

// Writer exposes the underlying output for the http.Server error log.
func (l *Logger) Writer() *io.PipeWriter {
	return l.l.WriterLevel(logrus.ErrorLevel)
}
