// Package monitoring holds the process-wide error reporter. Fatal run errors
// and panics in background goroutines are sent to it.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Flush flushes buffered events.
func Flush(d time.Duration) { get().Flush(d) }

// Go runs fn in a goroutine. A panic is reported and flushed before it is
// re-raised.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m := get()
				m.CapturePanic(r)
				m.Flush(2 * time.Second)
				panic(r)
			}
		}()
		fn()
	}()
}

// Recorder keeps every captured error in memory.
type Recorder struct {
	mu     sync.Mutex
	Errors []error
	Tags   []map[string]string
	Panics []any
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
	r.Tags = append(r.Tags, tags)
}

func (r *Recorder) CapturePanic(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Panics = append(r.Panics, v)
}

func (r *Recorder) Flush(time.Duration) {}

// Captured returns a copy of the recorded errors.
func (r *Recorder) Captured() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.Errors))
	copy(out, r.Errors)
	return out
}
