package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/service"
)

const sessionFileExt = ".json"

// FilePersistence stores each session as <id>.json in a directory. A file
// holds the grid config the session was opened with plus a GridSnapshot, so
// loading rebuilds the editor without replaying edits.
type FilePersistence struct {
	dir     string
	configs service.ConfigManager
}

// NewFilePersistence creates dir if needed. configs resolves sessions saved
// without an embedded config and may be nil.
func NewFilePersistence(dir string, configs service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, configs: configs}, nil
}

// record converts a live session into its on-disk form
func record(sess *service.Session) PersistedSessionData {
	return PersistedSessionData{
		ID:             sess.ID,
		ConfigID:       sess.ConfigID,
		Config:         sess.Config,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		Grid:           sess.Editor.Snapshot(),
	}
}

// Save snapshots the session's grid and replaces its file atomically
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if sess.Editor == nil {
		return fmt.Errorf("session %s has no editor", sess.ID)
	}

	data, err := json.MarshalIndent(record(sess), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	path := fp.path(sess.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a session file and rebuilds its editor from the stored snapshot
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	raw, err := os.ReadFile(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	config, err := fp.resolveConfig(&data)
	if err != nil {
		return nil, err
	}

	editor, err := engine.NewEditor(config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create editor: %w", err)
	}
	// A nil grid means the session was saved with its grid torn down
	if data.Grid != nil {
		if err := editor.Restore(data.Grid); err != nil {
			return nil, fmt.Errorf("failed to restore grid: %w", err)
		}
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigID,
		Editor:         editor,
		Config:         config,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// resolveConfig prefers the embedded config and falls back to the config manager
func (fp *FilePersistence) resolveConfig(data *PersistedSessionData) (*engine.GridConfig, error) {
	if data.Config != nil {
		if err := engine.ValidateGridConfig(data.Config); err != nil {
			return nil, fmt.Errorf("persisted config for session %s is invalid: %w", data.ID, err)
		}
		return data.Config, nil
	}

	if fp.configs == nil {
		return nil, fmt.Errorf("session %s has no embedded config and no config manager is set", data.ID)
	}
	config, err := fp.configs.LoadConfig(data.ConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigID, err)
	}
	return config, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the IDs of every session file in the directory
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if id, ok := strings.CutSuffix(entry.Name(), sessionFileExt); ok && !entry.IsDir() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exists reports whether a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.path(id))
	return err == nil
}

func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, strings.ToLower(id)+sessionFileExt)
}
