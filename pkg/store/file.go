package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// FileStore keeps one snapshot per file in a directory. Each file holds the
// snapshot JSON; name and timestamps come from a sidecar .meta file.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based store in baseDir.
// If baseDir is empty, it defaults to $XDG_DATA_HOME/sseqchart/charts or
// ~/.local/share/sseqchart/charts.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func defaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sseqchart", "charts"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "sseqchart", "charts"), nil
}

func (s *FileStore) dataPath(id string) string { return filepath.Join(s.baseDir, id+".json") }
func (s *FileStore) metaPath(id string) string { return filepath.Join(s.baseDir, id+".meta") }

func checkID(id string) error {
	if err := errors.ValidatePath(id); err != nil {
		return err
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return errors.New(errors.ErrCodeInvalidPath, "snapshot id %q is not a plain name", id)
	}
	return nil
}

func (s *FileStore) Save(ctx context.Context, id, name string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.dataPath(id), data, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	meta, err := json.Marshal(Info{ID: id, Name: name, Size: len(data), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal snapshot info: %w", err)
	}
	if err := os.WriteFile(s.metaPath(id), meta, 0600); err != nil {
		return fmt.Errorf("write snapshot info: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.dataPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	var out []Info
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".meta" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.dataPath(id), s.metaPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for snapshot files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
