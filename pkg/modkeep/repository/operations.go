package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
	"github.com/jamesainslie/modkeep/pkg/modkeep/history"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
)

// IsEnabled returns the cached enabled flag of the entry tracking m.
func (r *Repository) IsEnabled(m *mod.Mod) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[m.Key()]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, m.Path())
	}
	return e.enabled, nil
}

// Enable strips the disabled prefix from the entry's folder name.
func (r *Repository) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable adds the disabled prefix to the entry's folder name.
func (r *Repository) Disable(id string) error {
	return r.setEnabled(id, false)
}

// Toggle flips the entry's enabled state and returns the new state.
func (r *Repository) Toggle(id string) (bool, error) {
	r.mu.Lock()
	e, ok := r.byID[id]
	var enable bool
	if ok {
		enable = !e.mod.IsEnabled()
	}
	r.mu.Unlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.setEnabled(id, enable); err != nil {
		return !enable, err
	}
	return enable, nil
}

func (r *Repository) setEnabled(id string, enable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.entryLocked(id)
	if err != nil {
		return err
	}

	name := e.mod.Name()
	if e.mod.IsEnabled() == enable {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidOperation, name, stateWord(enable))
	}

	target := mod.DisabledName(name)
	if enable {
		target = mod.EnabledName(name)
	}
	from := e.mod.Path()
	if pathTaken(filepath.Join(r.dir, target), from) {
		return fmt.Errorf("%w: %s", ErrCollision, target)
	}

	oldKey := e.mod.Key()
	if err := r.renameLocked(e, target); err != nil {
		return err
	}
	r.rekeyLocked(e, oldKey)
	e.enabled = enable

	typ, op := events.Disabled, history.OpDisable
	if enable {
		typ, op = events.Enabled, history.OpEnable
	}
	r.publish(events.Event{Type: typ, EntryID: e.id, Path: e.mod.Path(), OldPath: from})
	r.record(op, from, e.mod.Path())
	logging.Get("repository").Info(stateWord(enable), "object", r.object, "from", name, "to", target)
	return nil
}

// Rename gives the entry a new folder name. A disabled prefix on newName is
// ignored; the entry keeps its current prefix. Both the enabled and the
// disabled form of the new name must be free.
func (r *Repository) Rename(id, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.entryLocked(id)
	if err != nil {
		return err
	}

	base := mod.EnabledName(strings.TrimSpace(newName))
	if base == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidOperation)
	}

	name := e.mod.Name()
	prefix := name[:len(name)-len(mod.EnabledName(name))]
	target := prefix + base
	if target == name {
		return nil
	}

	from := e.mod.Path()
	taken, err := r.folderNamed(base, name)
	if err != nil {
		return fmt.Errorf("checking %s: %w", base, err)
	}
	if taken != "" {
		return fmt.Errorf("%w: %s", ErrCollision, taken)
	}
	for _, other := range r.entries {
		if other != e && mod.SameModName(other.mod.Name(), base) {
			return fmt.Errorf("%w: %s", ErrCollision, other.mod.Name())
		}
	}

	oldKey := e.mod.Key()
	if err := r.renameLocked(e, target); err != nil {
		return err
	}
	r.rekeyLocked(e, oldKey)

	r.publish(events.Event{Type: events.Renamed, EntryID: e.id, Path: e.mod.Path(), OldPath: from})
	r.record(history.OpRename, from, e.mod.Path())
	logging.Get("repository").Info("renamed", "object", r.object, "from", name, "to", target)
	return nil
}

// renameLocked renames e's folder with the source suppressed.
func (r *Repository) renameLocked(e *Entry, target string) error {
	release := r.suppressLocked()
	defer release()

	if err := e.mod.Rename(target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrCollision, target)
		}
		return fmt.Errorf("renaming %s: %w", e.mod.Name(), err)
	}
	return nil
}

// MoveEntry moves the entry's folder into target's folder. The entry keeps
// its ID and is tracked by target afterwards.
func (r *Repository) MoveEntry(id string, target *Repository) (*Entry, error) {
	if target == nil || target == r {
		return nil, fmt.Errorf("%w: move target must be another repository", ErrInvalidOperation)
	}

	// Lock both repositories in a fixed order.
	first, second := r, target
	if target.dir < r.dir {
		first, second = target, r
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if target.closed {
		return nil, ErrClosed
	}
	e, err := r.entryLocked(id)
	if err != nil {
		return nil, err
	}
	if target.source == nil {
		return nil, fmt.Errorf("%w: %s has no folder", ErrInvalidOperation, target.object)
	}

	name := e.mod.Name()
	taken, err := target.folderNamed(name, "")
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", target.object, err)
	}
	if taken != "" {
		return nil, fmt.Errorf("%w: %s in %s", ErrCollision, taken, target.object)
	}

	from := e.mod.Path()
	releaseSrc := r.suppressLocked()
	releaseDst := target.suppressLocked()
	err = e.mod.MoveTo(target.dir)
	releaseSrc()
	releaseDst()
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s in %s", ErrCollision, name, target.object)
		}
		return nil, fmt.Errorf("moving %s: %w", name, err)
	}

	delete(r.entries, mod.KeyFor(from))
	delete(r.byID, e.id)
	moved := target.trackLocked(e.mod, e.id)

	target.publish(events.Event{Type: events.Moved, EntryID: moved.id, Path: moved.mod.Path(), OldPath: from})
	target.record(history.OpMove, from, moved.mod.Path())
	logging.Get("repository").Info("moved", "from", r.object, "to", target.object, "mod", name)
	return moved, nil
}

// DeleteEntry untracks the entry and deletes its folder, into the trash
// unless moveToTrash is false. A failed delete leaves the entry untracked;
// when no trash is reachable the folder stays in place and Load tracks it
// again.
func (r *Repository) DeleteEntry(id string, moveToTrash bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.entryLocked(id)
	if err != nil {
		return err
	}

	path := e.mod.Path()
	r.untrackLocked(e)
	r.publish(events.Event{Type: events.Deleted, EntryID: e.id, Path: path})

	release := r.suppressLocked()
	defer release()
	if err := e.mod.Delete(moveToTrash); err != nil {
		logging.Get("repository").Error("delete failed", "object", r.object, "path", path, "error", err)
		return fmt.Errorf("deleting %s: %w", e.mod.Name(), err)
	}

	r.record(history.OpDelete, path, "")
	logging.Get("repository").Info("deleted", "object", r.object, "path", path, "trash", moveToTrash)
	return nil
}

// FolderAlreadyExists reports whether name, in either enabled or disabled
// form and ignoring case, is already used inside the reserved folder.
func (r *Repository) FolderAlreadyExists(name string) bool {
	taken, err := r.folderNamed(name, "")
	return err == nil && taken != ""
}

// folderNamed returns the first entry of the reserved folder that matches
// name ignoring case and any disabled prefix, skipping the entry named
// self. It returns "" when there is none.
func (r *Repository) folderNamed(name, self string) (string, error) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", err
	}
	for _, de := range dirEntries {
		if de.Name() != self && mod.SameModName(de.Name(), name) {
			return de.Name(), nil
		}
	}
	return "", nil
}

func (r *Repository) entryLocked(id string) (*Entry, error) {
	if r.closed {
		return nil, ErrClosed
	}
	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
