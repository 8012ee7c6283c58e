package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pinecone-robotics/sentry-core/pkg/workpool"
)

// Appender is a single log sink: a formatted line in, nothing structured
// out. FileLogAppender and StdoutLogAppender are the two kinds the
// configuration contract names.
type Appender interface {
	Emit(line string)
	Close() error
}

// StdoutLogAppender writes directly to stdout; cheap enough to stay on the
// calling goroutine.
type StdoutLogAppender struct {
	mu sync.Mutex
}

// NewStdoutAppender returns a ready StdoutLogAppender.
func NewStdoutAppender() *StdoutLogAppender {
	return &StdoutLogAppender{}
}

// Emit writes line followed by a newline if the pattern didn't already
// include one.
func (a *StdoutLogAppender) Emit(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	fmt.Fprint(os.Stdout, line)
}

// Close is a no-op; stdout is not owned by the appender.
func (a *StdoutLogAppender) Close() error { return nil }

// FileLogAppender appends formatted lines to a file. Writes are queued on
// a shared workpool so the caller's goroutine never blocks on disk I/O, the
// same off-path treatment the original source gives logging work.
type FileLogAppender struct {
	f    *os.File
	pool *workpool.Pool
	mu   sync.Mutex
}

// NewFileAppender opens path for append (creating it if necessary) and
// queues writes on pool.
func NewFileAppender(path string, pool *workpool.Pool) (*FileLogAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log: open %s: %w", path, err)
	}
	return &FileLogAppender{f: f, pool: pool}, nil
}

// Emit queues line for an off-path write, followed by a newline if the
// pattern didn't already include one.
func (a *FileLogAppender) Emit(line string) {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	a.pool.Submit(func() error {
		a.mu.Lock()
		defer a.mu.Unlock()
		_, err := fmt.Fprint(a.f, line)
		return err
	})
}

// Close closes the underlying file immediately. It does not wait for writes
// still queued on the pool; a queued write that runs after Close fails and
// its line is lost.
func (a *FileLogAppender) Close() error {
	return a.f.Close()
}
