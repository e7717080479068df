package testhelpers

import (
	"bytes"
	"io"
	"sync"
	"testing"
)

// Writer sends whole log lines to t.Log so that server output shows up only for failed tests. Partial lines are
// held until their newline arrives or the test ends.
type Writer struct {
	t       *testing.T
	mu      sync.Mutex
	pending bytes.Buffer
	done    bool
}

// NewWriter creates a Writer bound to t. Writing after t has finished panics, which catches servers that outlive
// their test.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t, mu: sync.Mutex{}, pending: bytes.Buffer{}, done: false}
	t.Cleanup(w.close)
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		panic("testwriter: write after test completion, is the server shut down in t.Cleanup?")
	}
	w.pending.Write(p)
	for {
		i := bytes.IndexByte(w.pending.Bytes(), '\n')
		if i < 0 {
			break
		}
		if line := w.pending.Next(i + 1)[:i]; len(line) > 0 {
			w.t.Log(string(line))
		}
	}
	return len(p), nil
}

func (w *Writer) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.Len() > 0 {
		w.t.Log(w.pending.String())
		w.pending.Reset()
	}
	w.done = true
}
