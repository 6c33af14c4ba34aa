package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/gofrs/flock"

	"github.com/loykin/sentinel/internal/errs"
)

// FileStore is the canonical Store: a single JSON document at <dir>/
// state.json, written via a temp-file-then-rename so a concurrent
// reader never observes a partial write, and guarded by an advisory OS
// file lock at <dir>/state.json.lock for the load-mutate-save window.
type FileStore struct {
	dir  string
	path string
	lock *flock.Flock
}

// NewFileStore returns a Store rooted at dir (conventionally
// <HOME>/.sentinel). The directory is created with private-user
// permissions if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.New(errs.IOFailure, dir, err)
	}
	path := filepath.Join(dir, "state.json")
	return &FileStore{
		dir:  dir,
		path: path,
		lock: flock.New(filepath.Join(dir, "state.json.lock")),
	}, nil
}

func (s *FileStore) Path() string { return s.path }

// Lock acquires the cross-process advisory lock for the duration of a
// load-mutate-save transaction. The returned unlock releases it.
func (s *FileStore) Lock() (func() error, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, errs.New(errs.IOFailure, s.path, fmt.Errorf("acquire state lock: %w", err))
	}
	return s.lock.Unlock, nil
}

// Load reads and deserializes the catalog. A missing file is not an
// error: it yields an empty catalog.
func (s *FileStore) Load() (Catalog, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return Catalog{}, errs.New(errs.IOFailure, s.path, err)
	}
	if len(raw) == 0 {
		return Empty(), nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Catalog{}, corruptErr(s.path, raw, err)
	}

	cat := Empty()
	if v, ok := doc["version"]; ok {
		if err := json.Unmarshal(v, &cat.Version); err != nil {
			return Catalog{}, corruptErr(s.path, raw, err)
		}
	}
	if v, ok := doc["next_id"]; ok {
		if err := json.Unmarshal(v, &cat.NextID); err != nil {
			return Catalog{}, corruptErr(s.path, raw, err)
		}
	}
	if v, ok := doc["processes"]; ok {
		if err := json.Unmarshal(v, &cat.Processes); err != nil {
			return Catalog{}, corruptErr(s.path, raw, err)
		}
	}
	if v, ok := doc["groups"]; ok {
		if err := json.Unmarshal(v, &cat.Groups); err != nil {
			return Catalog{}, corruptErr(s.path, raw, err)
		}
	}
	if v, ok := doc["ports"]; ok {
		if err := json.Unmarshal(v, &cat.Ports); err != nil {
			return Catalog{}, corruptErr(s.path, raw, err)
		}
	}

	// Preserve anything else verbatim so a newer binary's fields survive
	// a round trip through this one.
	unknown := make(map[string]any, len(doc))
	for _, known := range []string{"version", "next_id", "processes", "groups", "ports"} {
		delete(doc, known)
	}
	for k, v := range doc {
		var val any
		if err := json.Unmarshal(v, &val); err == nil {
			unknown[k] = val
		}
	}
	cat.Unknown = unknown
	if cat.Version == 0 {
		cat.Version = SchemaVersion
	}
	return cat, nil
}

// Save commits the catalog atomically: serialize, write to a sibling
// temp file, fsync, rename over the canonical path.
func (s *FileStore) Save(cat Catalog) error {
	if cat.Version == 0 {
		cat.Version = SchemaVersion
	}
	out := map[string]any{
		"version":   cat.Version,
		"next_id":   cat.NextID,
		"processes": nonNil(cat.Processes),
		"groups":    nonNil(cat.Groups),
		"ports":     nonNil(cat.Ports),
	}
	for k, v := range cat.Unknown {
		if _, known := out[k]; known {
			continue
		}
		out[k] = v
	}

	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errs.New(errs.IOFailure, s.path, err)
	}
	if err := renameio.WriteFile(s.path, buf, 0o600); err != nil {
		return errs.New(errs.IOFailure, s.path, err)
	}
	return nil
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

func corruptErr(path string, raw []byte, cause error) error {
	pos := -1
	if se, ok := cause.(*json.SyntaxError); ok {
		pos = int(se.Offset)
	}
	_ = raw
	return errs.New(errs.CorruptState, fmt.Sprintf("%s (byte %d)", path, pos), cause)
}
