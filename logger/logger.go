package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
}

// LoggerImpl is a struct that extends sirupsen/logrus.
// Each LoggerImpl owns its own logrus.Logger so that one run's settings do not leak into the next.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
	file           *fileHook
}

// NewLogger will create a new logger implementation that writes to stdout only.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	l, err := newLogger(serviceName, level, stackDumpOnPanic)
	if err != nil {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	return l
}

// NewRunLogger creates a logger that writes each entry to stdout and appends it to logFilePath.
// Missing parent directories are created. Callers must Close() the logger to release the file.
func NewRunLogger(serviceName string, level string, stackDumpOnPanic bool, logFilePath string) (*LoggerImpl, error) {
	l, err := newLogger(serviceName, level, stackDumpOnPanic)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, errors.Wrapf(err, "unable to create log directory for %v", logFilePath)
	}
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open log file %v", logFilePath)
	}
	l.file = newFileHook(f)
	l.Logger.Logger.AddHook(l.file)
	return l, nil
}

func newLogger(serviceName string, level string, stackDumpOnPanic bool) (*LoggerImpl, error) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	base := log.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(logLevel)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		base.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&log.JSONFormatter{})
	}
	logger := base.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: logger, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}, nil
}

// WithFields returns a child logger that adds fields to every entry.
// The child shares the parent's outputs so only the parent needs closing.
func (l *LoggerImpl) WithFields(fields map[string]interface{}) *LoggerImpl {
	c := *l
	c.Logger = l.Logger.WithFields(fields)
	return &c
}

// Debug log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace if the user asked for it).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.Panic(message...)
	} else { // else log the message and quit without a stack dump...
		l.Logger.Fatal(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
// Call Panic() to get a stack dump instead.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// SetOutput will set the console output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	l.Logger.Logger.SetOutput(writer)
}

// SetFormatter will set the console formatter.
func (l *LoggerImpl) SetFormatter(f log.Formatter) {
	l.Logger.Logger.SetFormatter(f)
}

// Close flushes and closes the log file, if any.
// It is safe to call more than once.
func (l *LoggerImpl) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
