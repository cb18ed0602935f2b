package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const runLogTimeFormat = "20060102-150405"

// RunLog is the log file owned by a single run. It is sealed (flushed and
// closed) before being shipped to object storage, so the uploaded file is
// always complete. Writes arriving after Seal are dropped from the file but
// still reach the console sink, since the logger tees both.
type RunLog struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	sealed bool
}

func NewRunLog(dir string, now time.Time) (*RunLog, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("error creating run log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("pescador-%s.log", now.UTC().Format(runLogTimeFormat)))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating run log file: %w", err)
	}

	return &RunLog{path: path, file: file}, nil
}

func (r *RunLog) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return len(p), nil
	}
	return r.file.Write(p)
}

func (r *RunLog) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil
	}
	r.sealed = true

	err := r.file.Sync()
	if err != nil {
		return fmt.Errorf("error flushing run log: %w", err)
	}

	return r.file.Close()
}

func (r *RunLog) Path() string {
	return r.path
}
