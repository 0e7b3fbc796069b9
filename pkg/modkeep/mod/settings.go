package mod

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"
)

// Settings is the per-mod sidecar record. Unknown fields are dropped on save.
type Settings struct {
	CustomName            string            `json:"customName,omitempty"`
	Author                string            `json:"author,omitempty"`
	Version               string            `json:"version,omitempty"`
	ModURL                string            `json:"modUrl,omitempty"`
	ImagePath             string            `json:"imagePath,omitempty"`
	MergedIniPath         string            `json:"mergedIniPath,omitempty"`
	CharacterSkinOverride string            `json:"characterSkinOverride,omitempty"`
	Description           string            `json:"description,omitempty"`
	DateAdded             *time.Time        `json:"dateAdded,omitempty"`
	LastChecked           *time.Time        `json:"lastChecked,omitempty"`
	Preferences           map[string]string `json:"preferences,omitempty"`
}

func (s Settings) clone() Settings {
	if s.Preferences != nil {
		prefs := make(map[string]string, len(s.Preferences))
		for k, v := range s.Preferences {
			prefs[k] = v
		}
		s.Preferences = prefs
	}
	return s
}

// SettingsPath returns the sidecar path.
func (m *Mod) SettingsPath() string {
	return filepath.Join(m.Path(), m.settingsFile)
}

// Settings returns the cached settings, loading them on first use. A load
// error yields defaults; ReloadSettings reports it.
func (m *Mod) Settings() Settings {
	m.mu.RLock()
	s := m.settings
	m.mu.RUnlock()
	if s != nil {
		return s.clone()
	}

	loaded, err := m.ReloadSettings()
	if err != nil {
		return Settings{}
	}
	return loaded
}

// ReloadSettings re-reads the sidecar and replaces the cache. A missing
// file yields defaults.
func (m *Mod) ReloadSettings() (Settings, error) {
	path := m.SettingsPath()
	s, err := readSettings(path)
	if err != nil {
		return Settings{}, err
	}

	m.mu.Lock()
	m.settings = &s
	m.mu.Unlock()
	return s.clone(), nil
}

// SaveSettings writes s to the sidecar and caches it.
func (m *Mod) SaveSettings(s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mod settings: %w", err)
	}

	path := m.SettingsPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing mod settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing mod settings: %w", err)
	}

	saved := s.clone()
	m.mu.Lock()
	m.settings = &saved
	m.mu.Unlock()
	return nil
}

// SetLastChecked records when the mod was last checked for updates.
func (m *Mod) SetLastChecked(t time.Time) error {
	s := m.Settings()
	t = t.UTC()
	s.LastChecked = &t
	return m.SaveSettings(s)
}

func readSettings(path string) (Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading mod settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, path, err)
	}
	return s, nil
}
