package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/urbemaps/geofence/internal/model"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// FileStore persists the area mapping as a single JSON file on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON file at path. The file
// and its parent directories are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the mapping from disk. A missing file is an empty mapping.
// Files carrying a UTF-8 BOM, common after editing on Windows, are accepted.
func (s *FileStore) Load(ctx context.Context) (map[string]model.Area, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.Area{}, nil
		}
		return nil, eris.Wrapf(err, "storage: read %s", s.path)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	areas := map[string]model.Area{}
	if err := json.Unmarshal(data, &areas); err != nil {
		return nil, eris.Wrapf(err, "storage: decode %s", s.path)
	}
	return areas, nil
}

// Save writes the mapping atomically via a temp file and rename, so a crash
// mid-write never leaves a truncated document behind.
func (s *FileStore) Save(ctx context.Context, areas map[string]model.Area) error {
	data, err := json.MarshalIndent(areas, "", "  ")
	if err != nil {
		return eris.Wrap(err, "storage: encode areas")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "storage: create %s", dir)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "storage: write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "storage: rename %s", tmp)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
