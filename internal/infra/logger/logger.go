package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level = logrus.Level

const (
	LevelDebug = logrus.DebugLevel
	LevelInfo  = logrus.InfoLevel
	LevelWarn  = logrus.WarnLevel
	LevelError = logrus.ErrorLevel
	LevelFatal = logrus.FatalLevel
)

type Logger struct {
	entry *logrus.Entry
	file  io.Closer
}

// New opens (and truncates) the log file at filePath.
// Stdout mirroring only covers Info and above so debug output never breaks the progress line.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	f, err := os.OpenFile(filePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	l := NewWithWriter(f, level)
	l.file = f

	if includeStdout {
		l.entry.Logger.AddHook(&stdoutHook{out: os.Stdout, formatter: l.entry.Logger.Formatter})
	}

	return l, nil
}

// NewWithWriter builds a logger writing to w only.
func NewWithWriter(w io.Writer, level Level) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &Logger{entry: logrus.NewEntry(base)}
}

// Discard is used by tests and by callers that don't want logs.
func Discard() *Logger {
	return NewWithWriter(io.Discard, LevelError)
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// With returns a child logger carrying an extra field.
// The child shares the parent's sink but does not own it; closing it is a no-op.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Debug(f string, v ...any) { l.entry.Debugf(f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.entry.Infof(f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.entry.Warnf(f, v...) }
func (l *Logger) Error(f string, v ...any) { l.entry.Errorf(f, v...) }
func (l *Logger) Fatal(f string, v ...any) { l.entry.Fatalf(f, v...) }

func (l *Logger) Write(p []byte) (n int, err error) {
	// Echo and other libraries often include a newline at the end
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

type stdoutHook struct {
	out       io.Writer
	formatter logrus.Formatter
}

func (h *stdoutHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (h *stdoutHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	// Leading newline keeps the entry off the progress line
	_, err = fmt.Fprintf(h.out, "\n%s", strings.TrimRight(string(b), "\n"))
	return err
}
