package mioco

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel is the severity of a LogEntry, in the same four tiers the
// teacher's structured_logging.go uses.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry is a single structured log record. Category is one of
// "runtime", "thread", "coroutine", "notifier", "scheduler"; ThreadID and
// CoroutineID are 0 when not applicable.
type LogEntry struct {
	Level       LogLevel
	Category    string
	ThreadID    int
	CoroutineID int64
	Message     string
	Context     map[string]any
	Err         error
	Timestamp   time.Time
}

// Logger is the structured logging interface the runtime logs through.
// Application code supplies its own via Config.Logger to plug in whatever
// framework it likes; DefaultLogger is a usable built-in, and
// NewLogifaceLogger adapts github.com/joeycumines/logiface.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// boundLogger binds a Category and ThreadID to a Logger so call sites
// (ThreadHandler, Runtime) can log without repeating that boilerplate on
// every call.
type boundLogger struct {
	l        Logger
	category string
	threadID int
}

func (b boundLogger) Debugf(format string, args ...any) { b.logf(LevelDebug, format, args...) }
func (b boundLogger) Infof(format string, args ...any)  { b.logf(LevelInfo, format, args...) }
func (b boundLogger) Warnf(format string, args ...any)  { b.logf(LevelWarn, format, args...) }
func (b boundLogger) Errorf(format string, args ...any) { b.logf(LevelError, format, args...) }

func (b boundLogger) logf(level LogLevel, format string, args ...any) {
	if b.l == nil || !b.l.IsEnabled(level) {
		return
	}
	b.l.Log(LogEntry{
		Level:    level,
		Category: b.category,
		ThreadID: b.threadID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// NoOpLogger discards everything; it is the zero-value default when no
// Logger is configured.
type NoOpLogger struct{}

func (NoOpLogger) Log(LogEntry)          {}
func (NoOpLogger) IsEnabled(LogLevel) bool { return false }

// DefaultLogger writes LogEntry values to an io.Writer, one line of plain
// text per entry, whatever the output target; it has no JSON output mode.
// Grounded on the teacher's DefaultLogger/WriterLogger split, collapsed
// into one type parameterized by output target.
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	out   io.Writer
}

// NewDefaultLogger returns a DefaultLogger writing to os.Stderr.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewDefaultLoggerTo(level, os.Stderr)
}

// NewDefaultLoggerTo returns a DefaultLogger writing to out.
func NewDefaultLoggerTo(level LogLevel, out io.Writer) *DefaultLogger {
	l := &DefaultLogger{out: out}
	l.level.Store(int32(level))
	return l
}

func (l *DefaultLogger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

func (l *DefaultLogger) IsEnabled(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s [%-9s]", entry.Timestamp.Format("15:04:05.000"), entry.Level, entry.Category)
	if entry.ThreadID != 0 {
		fmt.Fprintf(l.out, " thread=%d", entry.ThreadID)
	}
	if entry.CoroutineID != 0 {
		fmt.Fprintf(l.out, " co=%d", entry.CoroutineID)
	}
	fmt.Fprintf(l.out, " %s", entry.Message)
	for k, v := range entry.Context {
		fmt.Fprintf(l.out, " %s=%v", k, v)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.out, " err=%v", entry.Err)
	}
	fmt.Fprintln(l.out)
}
