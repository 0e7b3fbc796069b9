package mod

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jamesainslie/modkeep/pkg/modkeep/keyswap"
)

// mergedConfigNames are the merged config file names, in preference order.
var mergedConfigNames = []string{"merged.ini", "script.ini"}

// imageExtensions lists the recognized preview image extensions.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true,
	".tif": true, ".tiff": true, ".ico": true, ".svg": true, ".webp": true,
}

// previewPrefixes are preview image name prefixes, in priority order.
var previewPrefixes = []string{OwnedPrefix + "cover", "preview", "cover"}

// MergedConfigPath returns the mod's merged config file: the settings
// override when it names an existing file inside the mod, otherwise the
// first top-level merged.ini or script.ini. Empty when there is none.
func (m *Mod) MergedConfigPath() (string, error) {
	root := m.Path()

	if override := m.Settings().MergedIniPath; override != "" {
		path := filepath.Join(root, filepath.FromSlash(override))
		if inside(root, path) {
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("listing mod folder: %w", err)
	}
	for _, want := range mergedConfigNames {
		for _, entry := range entries {
			if entry.Type().IsRegular() && strings.EqualFold(entry.Name(), want) {
				return filepath.Join(root, entry.Name()), nil
			}
		}
	}
	return "", nil
}

// KeySwaps returns the key-swap store for the merged config, creating it on
// first use. The store is reset by Rename, MoveTo and ClearCache.
func (m *Mod) KeySwaps() (*keyswap.Store, error) {
	m.mu.RLock()
	store := m.keyswaps
	m.mu.RUnlock()
	if store != nil {
		return store, nil
	}

	path, err := m.MergedConfigPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%s: %w", m.Name(), ErrNoMergedConfig)
	}

	var opts []keyswap.Option
	if m.lookahead > 0 {
		opts = append(opts, keyswap.WithLookahead(m.lookahead))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keyswaps == nil {
		m.keyswaps = keyswap.NewStore(path, opts...)
	}
	return m.keyswaps, nil
}

// PreviewImages returns the top-level preview images of the mod, highest
// priority first.
func (m *Mod) PreviewImages() ([]string, error) {
	root := m.Path()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing mod folder: %w", err)
	}

	var images []string
	for _, prefix := range previewPrefixes {
		for _, entry := range entries {
			name := entry.Name()
			if !entry.Type().IsRegular() || !hasPrefixFold(name, prefix) {
				continue
			}
			if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			path := filepath.Join(root, name)
			if !slices.Contains(images, path) {
				images = append(images, path)
			}
		}
	}

	if s := m.Settings(); s.ImagePath != "" {
		path := filepath.Join(root, filepath.FromSlash(s.ImagePath))
		if _, err := os.Stat(path); err == nil && inside(root, path) && !slices.Contains(images, path) {
			images = append([]string{path}, images...)
		}
	}
	return images, nil
}

// inside reports whether path is root or below it.
func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
