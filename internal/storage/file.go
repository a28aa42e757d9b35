package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jrschumacher/complyhub/internal/logger"
)

// FileStore implements Store using one JSON file per key under baseDir.
// This is suitable for CLI use and development: values survive restarts.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// fileEntry is the on-disk envelope. The original key is kept because file
// names are sanitized and cannot be mapped back.
type fileEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFileStore creates a file-based store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("file storage requires a base directory")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, err := f.read(f.getFilePath(key))
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	jsonData, err := json.MarshalIndent(&fileEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage entry: %w", err)
	}

	// Write then rename so readers never observe a torn file.
	path := f.getFilePath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.getFilePath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove storage file: %w", err)
	}
	return nil
}

func (f *FileStore) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	err := filepath.WalkDir(f.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		entry, err := f.read(path)
		if err != nil {
			// Unreadable entries are skipped, matching how a browser
			// ignores values it cannot parse.
			logger.Warn("Skipping unreadable storage file", "path", path, "error", err)
			return nil
		}
		keys = append(keys, entry.Key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}
	return keys, nil
}

// Close cleans up storage resources.
func (f *FileStore) Close() error {
	// No persistent handles to close for file storage
	return nil
}

func (f *FileStore) read(path string) (*fileEntry, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(jsonData, &entry); err != nil {
		return nil, fmt.Errorf("failed to deserialize storage entry: %w", err)
	}
	return &entry, nil
}

// getFilePath returns the full file path for a key.
func (f *FileStore) getFilePath(key string) string {
	return filepath.Join(f.baseDir, sanitizeKey(key)+".json")
}

// sanitizeKey removes path separators and traversal sequences from keys.
func sanitizeKey(key string) string {
	sanitized := strings.ReplaceAll(key, "/", "_")
	sanitized = strings.ReplaceAll(sanitized, "\\", "_")
	sanitized = strings.ReplaceAll(sanitized, "..", "_")
	return sanitized
}
