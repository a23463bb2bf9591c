package logutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

const exitCodeFailure = 1

// StderrLog writes leveled text lines to stderr. Levels are checked here,
// logrus always runs at debug level and only formats.
type StderrLog struct {
	name      string
	logger    *logrus.Logger
	level     LogLevel
	debugKeys map[string]bool
}

var _ Log = NewStderrLog("")

var logrusLevels = map[LogLevel]logrus.Level{
	LogLevelDebug: logrus.DebugLevel,
	LogLevelInfo:  logrus.InfoLevel,
	LogLevelWarn:  logrus.WarnLevel,
	LogLevelError: logrus.ErrorLevel,
}

func NewStderrLog(name string, debugKeys ...string) *StderrLog {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	sl := &StderrLog{
		name:      name,
		logger:    logger,
		level:     LogLevelWarn,
		debugKeys: map[string]bool{},
	}
	for _, k := range debugKeys {
		sl.debugKeys[k] = true
	}

	return sl
}

func (sl StderrLog) message(format string, args []interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if sl.name == "" {
		return msg
	}

	return fmt.Sprintf("[%s] %s", sl.name, msg)
}

func (sl StderrLog) logf(level LogLevel, format string, args []interface{}) {
	if level < sl.level {
		return
	}

	sl.logger.Log(logrusLevels[level], sl.message(format, args))
}

func (sl StderrLog) Fatalf(format string, args ...interface{}) {
	sl.logger.Error(sl.message(format, args))
	os.Exit(exitCodeFailure)
}

func (sl StderrLog) Errorf(format string, args ...interface{}) {
	sl.logf(LogLevelError, format, args)
}

func (sl StderrLog) Warnf(format string, args ...interface{}) {
	sl.logf(LogLevelWarn, format, args)
}

func (sl StderrLog) Infof(format string, args ...interface{}) {
	sl.logf(LogLevelInfo, format, args)
}

// Debugf logs only for enabled debug keys, "*" enables all of them.
func (sl StderrLog) Debugf(key string, format string, args ...interface{}) {
	if !sl.debugKeys[key] && !sl.debugKeys["*"] {
		return
	}

	sl.logf(LogLevelDebug, format, args)
}

func (sl StderrLog) Child(name string) Log {
	child := sl
	if sl.name != "" {
		child.name = sl.name + "/" + name
	} else {
		child.name = name
	}

	return &child
}

func (sl *StderrLog) SetLevel(level LogLevel) {
	sl.level = level
}
