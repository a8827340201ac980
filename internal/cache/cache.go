// Package cache persists the board snapshot (tasks, filter and custom
// field definitions) as a single JSON blob on the local filesystem. It
// is a best-effort warm-start cache, not a source of truth: the remote
// store always wins on resync.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskboard/internal/models"
)

type Snapshot struct {
	Tasks                  []models.Task                  `json:"tasks"`
	Filter                 models.Filter                  `json:"filter"`
	CustomFieldDefinitions []models.CustomFieldDefinition `json:"custom_field_definitions"`
}

// DefaultSnapshot is the fallback used when no cache exists or the blob
// cannot be decoded: empty board, all-pass filter, seeded definitions.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Tasks:                  []models.Task{},
		Filter:                 models.DefaultFilter(),
		CustomFieldDefinitions: models.SeedFieldDefinitions(),
	}
}

type Store interface {
	Load() Snapshot
	Save(s Snapshot) error
}

type fileStore struct {
	logger zerolog.Logger
	path   string
}

func NewFileStore(logger zerolog.Logger, path string) Store {
	return &fileStore{
		logger: logger,
		path:   path,
	}
}

// Load never fails: absence and corruption both fall back to the
// built-in default snapshot.
func (f *fileStore) Load() Snapshot {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn().
				Err(err).
				Str("path", f.path).
				Msg("failed to read board cache")
		}
		return DefaultSnapshot()
	}

	var snap Snapshot
	err = json.Unmarshal(data, &snap)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("path", f.path).
			Msg("discarding corrupt board cache")
		return DefaultSnapshot()
	}

	if snap.Tasks == nil {
		snap.Tasks = []models.Task{}
	}
	if snap.CustomFieldDefinitions == nil {
		snap.CustomFieldDefinitions = models.SeedFieldDefinitions()
	}
	f.logger.Debug().
		Int("tasks", len(snap.Tasks)).
		Str("path", f.path).
		Msg("loaded board cache")
	return snap
}

// Save writes the blob atomically (temp file plus rename) so a crash
// mid-write cannot leave a truncated cache behind.
func (f *fileStore) Save(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".taskboard-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}
