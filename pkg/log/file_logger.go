package log

import (
	"bufio"
	"errors"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// ErrLoggerClosed is returned by Flush after Close.
var ErrLoggerClosed = errors.New("event logger closed")

// FileLogger writes control events to a file in CBOR format.
// It is safe for concurrent use from multiple goroutines. Writes are
// buffered; call Flush or Close to make them durable.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	encoder *cbor.Encoder
	closed  bool
	dropped uint64
}

// NewFileLogger creates a new FileLogger that writes to the specified path.
// If the file exists, new events are appended. The file is created with
// permissions 0644 if it doesn't exist.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		file:    f,
		buf:     buf,
		encoder: NewEncoder(buf),
	}, nil
}

// Log writes an event to the log file.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Capture must never disturb the session; count and move on.
	if err := l.encoder.Encode(event); err != nil {
		l.dropped++
	}
}

// Dropped returns how many events failed to encode.
func (l *FileLogger) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoggerClosed
	}
	return l.buf.Flush()
}

// Close flushes and closes the log file.
// It is safe to call Close multiple times.
// After Close is called, subsequent Log calls are silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	flushErr := l.buf.Flush()
	closeErr := l.file.Close()
	return errors.Join(flushErr, closeErr)
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
