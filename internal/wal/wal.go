// Package wal keeps recipe events that could not reach the broker in an
// append-only file until they are delivered.
package wal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// rename is swapped in tests to simulate a failed replace.
var rename = os.Rename

// Entry is one spooled event.
type Entry struct {
	ID        string       `json:"id"`
	Event     broker.Event `json:"event"`
	SpooledAt time.Time    `json:"spooledAt"`
}

// WAL is a line-delimited JSON log of undelivered events.
type WAL struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
}

// Open creates the log file and its directory if needed.
func Open(filePath string) (*WAL, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &WAL{
		filePath: filePath,
		file:     file,
	}, nil
}

// Append writes event to the log and syncs it to disk.
func (w *WAL) Append(event broker.Event) (Entry, error) {
	entry := Entry{
		ID:        uuid.NewString(),
		Event:     event,
		SpooledAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("WAL: Failed to append event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return Entry{}, err
	}
	if err := w.file.Sync(); err != nil {
		logger.Log.Error("WAL: Failed to sync to disk", zap.Error(err))
		return Entry{}, err
	}

	logger.Log.Debug("WAL: Event spooled",
		zap.String("entry_id", entry.ID),
		zap.String("type", string(event.Type)),
	)
	return entry, nil
}

// Entries returns every spooled entry, oldest first. Lines that fail to decode
// are skipped.
func (w *WAL) Entries() ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readAllUnsafe()
}

// Remove drops the entries with the given ids by rewriting the file.
func (w *WAL) Remove(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	all, err := w.readAllUnsafe()
	if err != nil {
		return err
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	tempFile := w.filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(f)
	kept := 0
	for _, entry := range all {
		if _, ok := drop[entry.ID]; ok {
			continue
		}
		data, err := json.Marshal(entry)
		if err != nil {
			f.Close()
			return err
		}
		writer.Write(data)
		writer.WriteByte('\n')
		kept++
	}
	if err := writer.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := w.file.Close(); err != nil {
		logger.Log.Warn("WAL: Failed to close log before replace", zap.Error(err))
	}
	renameErr := rename(tempFile, w.filePath)
	if renameErr != nil {
		logger.Log.Error("WAL: Failed to replace log file",
			zap.String("file_path", w.filePath),
			zap.Error(renameErr),
		)
		os.Remove(tempFile)
	}

	// Reopen either way: the old descriptor is closed, and after a rename it
	// points at the replaced file.
	newFile, err := os.OpenFile(w.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = newFile
	if renameErr != nil {
		return renameErr
	}

	logger.Log.Debug("WAL: Entries removed",
		zap.Int("removed", len(all)-kept),
		zap.Int("remaining", kept),
	)
	return nil
}

func (w *WAL) readAllUnsafe() ([]Entry, error) {
	file, err := os.Open(w.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
