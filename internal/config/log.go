package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
)

// LogEnvVar enables debug logging when set to "debug".
const LogEnvVar = "DICOM_VIEWER_LOG_LEVEL"

// LogConfig selects where log output goes and how verbose it is.
type LogConfig struct {
	Logfile    string `toml:"logfile" yaml:"logfile"`
	MaxSize    int    `toml:"max_log_size" yaml:"max_log_size"` // megabytes
	MaxAge     int    `toml:"max_log_age" yaml:"max_log_age"`   // days
	MaxBackups int    `toml:"max_log_backups" yaml:"max_log_backups"`
	Level      string `toml:"level" yaml:"level"`
}

var debug atomic.Bool

// SetLogger applies the logging settings to the standard logger. With a
// logfile, output goes to a size-rotated file; otherwise it stays on stderr.
// The returned function flushes and closes the file.
func (c *LogConfig) SetLogger() func() error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	SetDebug(strings.EqualFold(c.Level, "debug") || os.Getenv(LogEnvVar) == "debug")

	if c.Logfile == "" {
		log.SetOutput(os.Stderr)
		return func() error { return nil }
	}

	fmt.Fprintf(os.Stderr, "Sending log messages to: %s\n", c.Logfile)
	l := &lumberjack.Logger{
		Filename:   c.Logfile,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
	}
	log.SetOutput(l)
	return func() error {
		log.SetOutput(os.Stderr)
		return l.Close()
	}
}

// SetDebug turns debug-level output on or off.
func SetDebug(on bool) { debug.Store(on) }

// DebugEnabled reports whether Debugf writes anything.
func DebugEnabled() bool { return debug.Load() }

// Debugf logs at DEBUG level when debug output is enabled.
func Debugf(format string, args ...interface{}) {
	if debug.Load() {
		_ = log.Output(2, fmt.Sprintf(" DEBUG "+format, args...))
	}
}

// Infof logs at INFO level.
func Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(" INFO "+format, args...))
}

// Warningf logs at WARNING level.
func Warningf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(" WARNING "+format, args...))
}

// Errorf logs at ERROR level.
func Errorf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(" ERROR "+format, args...))
}
