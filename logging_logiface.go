package mioco

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/logiface/stumpy"
)

// logifaceLogger adapts a github.com/joeycumines/logiface logger, backed
// by its stumpy writer implementation, to this package's Logger interface.
// Kept separate from logging.go (DefaultLogger is dependency-free) so a
// caller who doesn't want the extra import can ignore this file entirely.
type logifaceLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewLogifaceLogger wraps an already-configured logiface logger.
func NewLogifaceLogger(l *logiface.Logger[*stumpy.Event]) Logger {
	return &logifaceLogger{l: l}
}

// NewDefaultLogifaceLogger builds a logiface logger over stumpy's writer,
// at the given minimum level, for callers who just want a sensible
// logiface-backed default without wiring up the stack themselves.
func NewDefaultLogifaceLogger(out io.Writer, level LogLevel) Logger {
	l := logiface.New[*stumpy.Event](
		logiface.WithSlog[*stumpy.Event](),
		logiface.WithWriter[*stumpy.Event](stumpy.NewWriter(out)),
		logiface.WithLevel[*stumpy.Event](logifaceLevel(level)),
	)
	return NewLogifaceLogger(l)
}

func logifaceLevel(level LogLevel) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInfo
	case LevelWarn:
		return logiface.LevelWarning
	default:
		return logiface.LevelError
	}
}

func (a *logifaceLogger) IsEnabled(level LogLevel) bool {
	return a.l.Enabled(logifaceLevel(level))
}

func (a *logifaceLogger) Log(entry LogEntry) {
	var event *logiface.Context[*stumpy.Event]
	switch entry.Level {
	case LevelDebug:
		event = a.l.Debug()
	case LevelInfo:
		event = a.l.Info()
	case LevelWarn:
		event = a.l.Warning()
	default:
		event = a.l.Error()
	}
	if event == nil {
		return
	}
	if entry.ThreadID != 0 {
		event = event.Int("thread", entry.ThreadID)
	}
	if entry.CoroutineID != 0 {
		event = event.Int64("coroutine", entry.CoroutineID)
	}
	for k, v := range entry.Context {
		event = event.Any(k, v)
	}
	if entry.Err != nil {
		event = event.Err(entry.Err)
	}
	event.Log(entry.Message)
}
