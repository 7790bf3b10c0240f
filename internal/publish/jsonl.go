package publish

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// LineWriter appends one JSON object per line to a file. Each write is
// flushed so a crash loses at most the line in progress.
type LineWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// OpenLineWriter opens (or creates) the file in append mode.
func OpenLineWriter(path string) (*LineWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &LineWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// Write appends one record as a JSON line.
func (w *LineWriter) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("line writer closed")
	}
	if _, err := w.buf.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes and closes the underlying file.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
