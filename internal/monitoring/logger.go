// Package monitoring holds the diagnostic logger shared by the pipeline
// packages. Commands keep the default log.Printf; tests mute or record it.
package monitoring

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Recorder keeps formatted log lines in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf records one line. It has the signature SetLogger expects.
func (r *Recorder) Logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Capture installs a fresh Recorder and returns it with a function restoring
// the previous logger.
func Capture() (*Recorder, func()) {
	prev := Logf
	r := &Recorder{}
	SetLogger(r.Logf)
	return r, func() { Logf = prev }
}
