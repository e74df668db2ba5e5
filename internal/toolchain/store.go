package toolchain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store persists the tool key to executable path mapping.
type Store interface {
	Load() (map[string]string, error)
	Save(paths map[string]string) error
}

type storeFormat int

const (
	formatJSON storeFormat = iota
	formatYAML
)

// FileStore keeps the mapping in a JSON file, or YAML when the file name
// ends in .yaml or .yml. External scripts read the JSON form directly.
type FileStore struct {
	path   string
	format storeFormat
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	format := formatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = formatYAML
	}
	return &FileStore{path: path, format: format, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// Load returns an empty mapping when the file is missing or unreadable as
// a mapping; only I/O errors other than absence are reported.
func (s *FileStore) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read tool configuration %s: %w", s.path, err)
	}

	paths := map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return paths, nil
	}

	switch s.format {
	case formatYAML:
		err = yaml.Unmarshal(data, &paths)
	default:
		err = json.Unmarshal(data, &paths)
	}
	if err != nil {
		s.logger.Warn("Ignoring corrupt tool configuration",
			"file", s.path,
			"error", err)
		return map[string]string{}, nil
	}
	if paths == nil {
		paths = map[string]string{}
	}
	return paths, nil
}

func (s *FileStore) Save(paths map[string]string) error {
	var (
		data []byte
		err  error
	)
	switch s.format {
	case formatYAML:
		data, err = yaml.Marshal(paths)
	default:
		data, err = json.MarshalIndent(paths, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode tool configuration: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create tool configuration directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tool configuration %s: %w", s.path, err)
	}
	return nil
}

type MemoryStore struct {
	mu    sync.Mutex
	paths map[string]string
	saves int
}

func NewMemoryStore(initial map[string]string) *MemoryStore {
	s := &MemoryStore{paths: map[string]string{}}
	for k, v := range initial {
		s.paths[k] = v
	}
	return s
}

func (s *MemoryStore) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.paths))
	for k, v := range s.paths {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(paths map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = make(map[string]string, len(paths))
	for k, v := range paths {
		s.paths[k] = v
	}
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
