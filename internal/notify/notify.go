// Package notify carries short user-facing outcome messages ("Task created
// successfully!") from the coordinators to whatever surface is showing them.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level
	Message string
	At      time.Time
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

// Writer prints notices as single lines (CLI commands write them to stderr).
type Writer struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{Out: w} }

func (w *Writer) Success(msg string) { w.write("✓", msg) }
func (w *Writer) Error(msg string)   { w.write("✗", msg) }

func (w *Writer) write(mark, msg string) {
	if w == nil || w.Out == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.Out, "%s %s\n", mark, msg)
}

// Log records notices in the structured log.
type Log struct {
	L *zap.Logger
}

func (l Log) Success(msg string) {
	if l.L != nil {
		l.L.Info("notice", zap.String("level", string(LevelSuccess)), zap.String("message", msg))
	}
}

func (l Log) Error(msg string) {
	if l.L != nil {
		l.L.Warn("notice", zap.String("level", string(LevelError)), zap.String("message", msg))
	}
}

// Chan forwards notices onto a buffered channel. Sends never block: when the
// buffer is full the notice is dropped.
type Chan struct {
	C chan Notice
}

func NewChan(size int) *Chan {
	if size <= 0 {
		size = 16
	}
	return &Chan{C: make(chan Notice, size)}
}

func (c *Chan) Success(msg string) { c.send(LevelSuccess, msg) }
func (c *Chan) Error(msg string)   { c.send(LevelError, msg) }

func (c *Chan) send(level Level, msg string) {
	select {
	case c.C <- Notice{Level: level, Message: msg, At: time.Now()}:
	default:
	}
}

// Multi fans out to several notifiers in order.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		if n != nil {
			n.Success(msg)
		}
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		if n != nil {
			n.Error(msg)
		}
	}
}

// Recorder keeps every notice; used by tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg, At: time.Now()})
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Messages returns the message text of every notice at level (all levels when empty).
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, n := range r.Notices() {
		if level == "" || n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}
