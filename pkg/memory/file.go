package memory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FileMemory persists summaries as JSON lines and scores retrieval the same
// way KeywordMemory does. It is the durable fallback: history survives
// restarts without a vector database.
type FileMemory struct {
	mu    sync.Mutex
	path  string
	inner *KeywordMemory
}

// NewFileMemory opens (or creates on first record) the JSONL file at path
// and loads any existing summaries.
func NewFileMemory(path string) (*FileMemory, error) {
	f := &FileMemory{path: path, inner: NewKeywordMemory()}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileMemory) load() error {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var summary RunSummary
		if err := json.Unmarshal(line, &summary); err != nil {
			return err
		}
		f.inner.mu.Lock()
		f.inner.add(summary)
		f.inner.mu.Unlock()
	}
	return scanner.Err()
}

// Record appends the summary to the file and to the in-process index.
func (f *FileMemory) Record(ctx context.Context, summary RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := json.NewEncoder(file).Encode(summary); err != nil {
		return err
	}

	f.inner.mu.Lock()
	f.inner.add(summary)
	f.inner.mu.Unlock()
	return nil
}

// Retrieve delegates to the in-process keyword index.
func (f *FileMemory) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	return f.inner.Retrieve(ctx, query, k)
}

var _ Memory = (*FileMemory)(nil)
