package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// DefaultWALPath is where the write-ahead log lives unless configured
// otherwise.
const DefaultWALPath = ".adaptivedb/wal.txt"

// WAL appends accepted rows to a text log before they are saved. Each
// non-null value is one line `w <table> <column> "<value>"` and every
// committed batch ends with a line `c`.
type WAL struct {
	mu   sync.Mutex
	path string
}

// NewWAL returns a WAL writing to path. An empty path selects DefaultWALPath.
func NewWAL(path string) *WAL {
	if path == "" {
		path = DefaultWALPath
	}
	return &WAL{path: path}
}

// Path returns the log file path.
func (w *WAL) Path() string {
	return w.path
}

// walEntry is one inserted row awaiting the log.
type walEntry struct {
	table   string
	columns []string
	row     Row
}

// Append writes the batch and syncs the file.
func (w *WAL) Append(batch []walEntry) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(w.path), err)
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", w.path, cerr)
		}
	}()

	buf := bufio.NewWriter(f)
	for _, e := range batch {
		for _, col := range e.columns {
			v, ok := keyOf(e.row[col])
			if !ok {
				continue
			}
			_, _ = fmt.Fprintf(buf, "w %s %s %s\n", e.table, col, strconv.Quote(v))
		}
	}
	_, _ = buf.WriteString("c\n")
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.path, err)
	}
	return nil
}
