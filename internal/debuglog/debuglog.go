// Package debuglog is a small timestamped logger for diagnostics that must
// never surface as user-facing errors (background cleanup, best-effort
// maintenance).
package debuglog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes timestamped lines to a single destination. A nil Logger is
// valid and discards everything, so callers never nil-check.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns a logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Stderr returns a logger writing to standard error.
func Stderr() *Logger {
	return New(os.Stderr)
}

// Logf writes one formatted line with a timestamp prefix.
func (l *Logger) Logf(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}
