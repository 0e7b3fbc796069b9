package repository

import "github.com/jamesainslie/modkeep/pkg/modkeep/mod"

// Entry is a tracked mod. The enabled flag is a cache of the folder-name
// state, refreshed by every repository operation that renames the folder.
type Entry struct {
	id      string
	mod     *mod.Mod
	repo    *Repository
	enabled bool
}

// ID returns the entry ID. It is stable while the mod stays tracked,
// including across renames.
func (e *Entry) ID() string {
	return e.id
}

// Mod returns the tracked mod.
func (e *Entry) Mod() *mod.Mod {
	return e.mod
}

// Repository returns the owning repository.
func (e *Entry) Repository() *Repository {
	return e.repo
}

// Enabled returns the cached enabled flag.
func (e *Entry) Enabled() bool {
	e.repo.mu.Lock()
	defer e.repo.mu.Unlock()
	return e.enabled
}
