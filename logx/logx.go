// Package logx is a thin, swappable logging shim. It exists so tests can
// capture output without pulling in a structured logging framework the
// teacher codebase never reached for.
package logx

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu    sync.Mutex
	out   io.Writer = os.Stderr
	level           = levelRank("info")
)

// levelRank maps spec §6's ai.logLevel enum to ascending verbosity so a
// level filters out everything noisier than itself; an unrecognized name
// falls back to "info" rather than failing a config load over a typo.
func levelRank(name string) int {
	switch name {
	case "error":
		return 0
	case "warn":
		return 1
	case "info":
		return 2
	case "debug":
		return 3
	case "trace":
		return 4
	default:
		return 2
	}
}

// SetOutput redirects all log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel configures the minimum level that reaches the output, per
// spec §6's ai.logLevel configuration option. Debugf entries are dropped
// below "debug"; Infof/Warnf/Errorf follow the same rule at their rank.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	level = levelRank(name)
}

func write(levelName string, rank int, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if rank > level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(out, "%s [%s] %s\n", time.Now().Format(time.RFC3339), levelName, msg)
}

// Infof logs an informational message.
func Infof(format string, args ...interface{}) { write("info", 2, format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { write("warn", 1, format, args...) }

// Errorf logs an error.
func Errorf(format string, args ...interface{}) { write("error", 0, format, args...) }

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { write("debug", 3, format, args...) }
