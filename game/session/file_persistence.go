package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
	"github.com/wricardo/mcp-training/snakegame/game/service"
)

const sessionFileExt = ".json"

// FilePersistence stores one JSON document per session in a directory. The
// file name is the session ID, so deleting a file from outside the server
// ends that session on the next filesystem sync.
type FilePersistence struct {
	dir     string
	configs service.ConfigManager
}

// NewFilePersistence creates dir if needed and returns a store rooted there
func NewFilePersistence(dir string, configs service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, configs: configs}, nil
}

// Save writes the board, scores and pending turn of session. The config is
// embedded so the board can be restored if its file disappears.
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	configID := session.ConfigID
	if configID == "" {
		configID = fp.resolveConfigID(session.Config.Name)
	}

	doc, err := json.MarshalIndent(PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
		GameConfig:     session.Config,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}

	// Readers never see a half-written board
	target := fp.path(session.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, doc, 0644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", session.ID, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session %s: %w", session.ID, err)
	}
	return nil
}

// Load rebuilds a session from its file. Restored sessions come back paused
// since no scheduler is driving them yet.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	if !validSessionID(id) {
		return nil, ErrSessionNotFound
	}

	raw, err := os.ReadFile(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("session %s is not valid JSON: %w", id, err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session file %s has no game state", id)
	}

	cfg, err := fp.configs.LoadConfig(data.ConfigName)
	if err != nil {
		if data.GameConfig == nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
		}
		cfg = data.GameConfig
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	data.GameState.IsPlaying = false
	if err := eng.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("session %s has an invalid board: %w", id, err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         eng,
		Config:         cfg,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// Delete removes the session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fp.path(id)); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", id, err)
	}
	return nil
}

// ListAll returns the IDs of every session file. Leftover .tmp files from an
// interrupted write are ignored.
func (fp *FilePersistence) ListAll() ([]string, error) {
	if _, err := os.Stat(fp.dir); err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(fp.dir, "*"+sessionFileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions directory: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err != nil || info.IsDir() {
			continue
		}
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), sessionFileExt))
	}
	return ids, nil
}

// Exists reports whether a file is stored for id
func (fp *FilePersistence) Exists(id string) bool {
	if !validSessionID(id) {
		return false
	}
	_, err := os.Stat(fp.path(id))
	return err == nil
}

func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, id+sessionFileExt)
}

// resolveConfigID maps a display name such as "Classic" to its config ID. An
// unknown name is used as the ID unchanged.
func (fp *FilePersistence) resolveConfigID(name string) string {
	infos, err := fp.configs.ListConfigs()
	if err != nil {
		return name
	}
	for _, info := range infos {
		if info.Name == name {
			return info.ConfigID
		}
	}
	return name
}
