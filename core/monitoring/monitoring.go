// Package monitoring forwards unexpected errors and panics to the configured
// error tracker. The process wide monitor is a no-op until Init is called.
package monitoring

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Monitor reports errors and recovered panics.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic reports a value obtained from recover.
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	current.CaptureException(err, tags)
}

// CapturePanic records a recovered panic value with optional tags.
func CapturePanic(v any, tags map[string]string) {
	current.CapturePanic(v, tags)
}

// PanicError is a recovered panic returned as an error by Guard.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Guard runs fn and turns a panic into a *PanicError after reporting it with
// tags, so a crashing worker stops its errgroup instead of the process.
func Guard(tags map[string]string, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			CapturePanic(v, tags)
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	current.Flush(d)
}
