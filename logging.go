// Package spatialcore is the coordinating façade over the five spatial
// components: cache-directory lifecycle, loader-pool startup/shutdown, and
// BVH invalidation bookkeeping (§2 "the remaining ~5%"). Grounded on the
// teacher's app.go/logging.go: a small set of resources constructed once and
// handed to the subsystems that need them, rather than package-level state.
package spatialcore

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/gekko3d/spatialcore/spatial/core"
)

// Logger extends spatial/core.Logger with the debug-toggle surface the
// teacher's Logger interface exposes, so a *DefaultLogger satisfies both.
type Logger interface {
	core.Logger
	DebugEnabled() bool
	SetDebug(enabled bool)
}

// DefaultLogger wraps two stdlib *log.Logger (stdout for info/debug, stderr
// for warn/error), guarded by a mutex around the debug flag exactly as the
// teacher's DefaultLogger does. No third-party logging library appears
// anywhere in the retrieved pack, so this ambient concern is stdlib by
// necessity (see DESIGN.md).
type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level string, format string, args ...any) string {
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.mu.Lock()
	dbg := l.debug
	l.mu.Unlock()
	if !dbg {
		return
	}
	l.out.Print(l.prefixf("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool                { return false }
func (nopLogger) SetDebug(enabled bool)             {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}
