package repository

import (
	"errors"
	"io/fs"

	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
	"github.com/jamesainslie/modkeep/pkg/modkeep/watcher"
)

// dispatch hands a source event to its own handler goroutine. Handlers
// serialize on the repository lock.
func (r *Repository) dispatch(ev watcher.Event) {
	r.inflightMu.Lock()
	r.inflight++
	r.inflightMu.Unlock()

	go func() {
		defer r.handlerDone()
		r.handle(ev)
	}()
}

func (r *Repository) handlerDone() {
	r.inflightMu.Lock()
	r.inflight--
	if r.inflight == 0 {
		r.idle.Broadcast()
	}
	r.inflightMu.Unlock()
}

func (r *Repository) handle(ev watcher.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	switch ev.Op {
	case watcher.Created:
		r.onCreated(ev.Path)
	case watcher.Deleted:
		r.onDeleted(ev.Path)
	case watcher.Renamed:
		r.onRenamed(ev.OldPath, ev.Path)
	}
}

func (r *Repository) onCreated(path string) {
	log := logging.Get("bridge")

	m, ok := r.openLocked(path)
	if !ok {
		return
	}
	if _, dup := r.entries[m.Key()]; dup {
		log.Warn("created mod already tracked", "object", r.object, "path", path)
		return
	}

	e := r.trackLocked(m, "")
	r.publish(events.Event{Type: events.Created, EntryID: e.id, Path: path})
	log.Info("mod appeared", "object", r.object, "mod", m.Name())
}

func (r *Repository) onDeleted(path string) {
	log := logging.Get("bridge")

	e, ok := r.entries[mod.KeyFor(path)]
	if !ok {
		log.Warn("deleted folder was not tracked", "object", r.object, "path", path)
		return
	}

	r.untrackLocked(e)
	r.publish(events.Event{Type: events.Deleted, EntryID: e.id, Path: path})
	log.Info("mod vanished", "object", r.object, "mod", e.mod.Name())
}

func (r *Repository) onRenamed(oldPath, newPath string) {
	log := logging.Get("bridge")

	old, ok := r.entries[mod.KeyFor(oldPath)]
	if !ok {
		log.Warn("renamed folder was not tracked", "object", r.object, "from", oldPath, "to", newPath)
		return
	}

	m, ok := r.openLocked(newPath)
	if !ok {
		// The new folder is unusable; the old identity is gone either way.
		r.untrackLocked(old)
		r.publish(events.Event{Type: events.Deleted, EntryID: old.id, Path: oldPath})
		return
	}

	r.untrackLocked(old)
	if _, dup := r.entries[m.Key()]; dup {
		log.Warn("renamed mod already tracked", "object", r.object, "path", newPath)
		r.publish(events.Event{Type: events.Deleted, EntryID: old.id, Path: oldPath})
		return
	}

	e := r.trackLocked(m, old.id)
	r.publish(events.Event{Type: events.Renamed, EntryID: e.id, Path: newPath, OldPath: oldPath})
	log.Info("mod renamed externally", "object", r.object, "from", old.mod.Name(), "to", m.Name())
}

// openLocked constructs a mod for path, logging why it cannot be.
func (r *Repository) openLocked(path string) (*mod.Mod, bool) {
	log := logging.Get("bridge")

	m, err := mod.Open(path, r.modOpts...)
	switch {
	case err == nil:
		return m, true
	case errors.Is(err, mod.ErrNotDirectory):
		log.Debug("ignoring non-folder", "object", r.object, "path", path)
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("folder gone before it could be read", "object", r.object, "path", path)
	default:
		log.Error("constructing mod", "object", r.object, "path", path, "error", err)
	}
	return nil, false
}
