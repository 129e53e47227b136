package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pointsLedger/internal/model"
)

// JsonlArchive appends raw log records of committed windows to a JSONL file.
// The file is opened on first write and kept open until Close.
type JsonlArchive struct {
	path string

	mu   sync.Mutex
	file *os.File
}

var _ LogSink = (*JsonlArchive)(nil)

func NewJsonlArchive(path string) *JsonlArchive {
	return &JsonlArchive{path: path}
}

// PutLogBatch appends records as JSON lines and syncs the file.
func (a *JsonlArchive) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.openLocked(); err != nil {
		return err
	}

	writer := bufio.NewWriter(a.file)
	enc := json.NewEncoder(writer)
	for _, record := range logs {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write archive record: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return a.file.Sync()
}

// Close releases the archive file.
func (a *JsonlArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *JsonlArchive) openLocked() error {
	if a.file != nil {
		return nil
	}
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	a.file = file
	return nil
}
