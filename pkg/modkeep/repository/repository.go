// Package repository keeps an in-memory index of the mods in one moddable
// object's folder consistent with the folder itself. Enabled state lives in
// folder names; external changes arrive through a watcher source and are
// reconciled by the bridge handlers. Every structural change holds the
// repository lock for its full duration.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
	"github.com/jamesainslie/modkeep/pkg/modkeep/history"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
	"github.com/jamesainslie/modkeep/pkg/modkeep/watcher"
)

// State is the folder state of a repository.
type State int

// Repository states.
const (
	NoFolder State = iota
	FolderExists
)

// String returns the state name.
func (s State) String() string {
	if s == FolderExists {
		return "folder-exists"
	}
	return "no-folder"
}

// Recorder persists completed structural changes.
type Recorder interface {
	Record(op history.Op, object, from, to string) (*history.Record, error)
}

// Config configures a Repository.
type Config struct {
	// Object is the moddable object name, used in events and history.
	Object string

	// Dir is the absolute path of the object's reserved folder.
	Dir string

	// Bus receives domain events. Optional.
	Bus *events.Broadcaster

	// History records completed changes. Optional.
	History Recorder

	// SourceOptions configure the folder's watcher source.
	SourceOptions []watcher.Option

	// ModOptions are passed to mod.Open for every tracked mod.
	ModOptions []mod.Option
}

// Repository is the mod index of one moddable object.
type Repository struct {
	object     string
	dir        string
	bus        *events.Broadcaster
	recorder   Recorder
	sourceOpts []watcher.Option
	modOpts    []mod.Option
	ctx        context.Context

	mu        sync.Mutex
	entries   map[string]*Entry // by mod key
	byID      map[string]*Entry
	source    *watcher.Source
	stopWatch context.CancelFunc
	watchDone chan struct{}
	closed    bool

	inflightMu sync.Mutex
	inflight   int
	idle       *sync.Cond
}

// New creates the repository for cfg.Dir. When the folder exists its
// watcher source is started and the repository is in FolderExists;
// otherwise it is in NoFolder. Mods are not enumerated until Load.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	if !filepath.IsAbs(cfg.Dir) {
		return nil, fmt.Errorf("repository folder %q: %w", cfg.Dir, mod.ErrNotAbsolute)
	}
	if cfg.Object == "" {
		cfg.Object = filepath.Base(cfg.Dir)
	}

	r := &Repository{
		object:     cfg.Object,
		dir:        filepath.Clean(cfg.Dir),
		bus:        cfg.Bus,
		recorder:   cfg.History,
		sourceOpts: cfg.SourceOptions,
		modOpts:    cfg.ModOptions,
		ctx:        ctx,
		entries:    make(map[string]*Entry),
		byID:       make(map[string]*Entry),
	}
	r.idle = sync.NewCond(&r.inflightMu)

	r.mu.Lock()
	defer r.mu.Unlock()
	if dirExists(r.dir) {
		if err := r.startSourceLocked(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Object returns the moddable object name.
func (r *Repository) Object() string {
	return r.object
}

// Dir returns the reserved folder path.
func (r *Repository) Dir() string {
	return r.dir
}

// State returns the current folder state.
func (r *Repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source != nil {
		return FolderExists
	}
	return NoFolder
}

// Load tracks every mod folder directly inside the reserved folder and
// returns how many new entries were added. Folders that fail to open are
// logged and skipped.
func (r *Repository) Load() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	return r.loadLocked()
}

func (r *Repository) loadLocked() (int, error) {
	log := logging.Get("repository")

	dirEntries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", r.dir, err)
	}

	added := 0
	for _, de := range dirEntries {
		if !de.IsDir() || mod.IsOwnedFile(de.Name()) {
			continue
		}
		m, err := mod.Open(filepath.Join(r.dir, de.Name()), r.modOpts...)
		if err != nil {
			log.Error("skipping mod folder", "object", r.object, "folder", de.Name(), "error", err)
			continue
		}
		if _, ok := r.entries[m.Key()]; ok {
			continue
		}
		r.trackLocked(m, "")
		added++
	}
	log.Info("loaded mods", "object", r.object, "added", added, "total", len(r.entries))
	return added, nil
}

// Track adds m to the index. Tracking an already tracked mod is a no-op that
// returns the existing entry. m must live directly in the reserved folder.
func (r *Repository) Track(m *mod.Mod) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if !strings.EqualFold(filepath.Dir(m.Path()), r.dir) {
		return nil, fmt.Errorf("%w: %s is not in %s", ErrInvalidOperation, m.Path(), r.dir)
	}
	if e, ok := r.entries[m.Key()]; ok {
		logging.Get("repository").Debug("already tracked", "object", r.object, "mod", m.Name())
		return e, nil
	}
	return r.trackLocked(m, ""), nil
}

// Untrack removes m from the index and reports whether it was tracked.
// Untracking an absent mod is a no-op.
func (r *Repository) Untrack(m *mod.Mod) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[m.Key()]
	if !ok {
		logging.Get("repository").Debug("untrack of untracked mod", "object", r.object, "mod", m.Name())
		return false
	}
	r.untrackLocked(e)
	return true
}

// trackLocked indexes m. An empty id assigns a new one.
func (r *Repository) trackLocked(m *mod.Mod, id string) *Entry {
	if id == "" {
		id = uuid.New().String()
	}
	e := &Entry{id: id, mod: m, repo: r, enabled: m.IsEnabled()}
	r.entries[m.Key()] = e
	r.byID[id] = e
	logging.Get("repository").Debug("tracked", "object", r.object, "mod", m.Name(), "id", id)
	return e
}

func (r *Repository) untrackLocked(e *Entry) {
	delete(r.entries, e.mod.Key())
	delete(r.byID, e.id)
	logging.Get("repository").Debug("untracked", "object", r.object, "mod", e.mod.Name(), "id", e.id)
}

// rekeyLocked updates the index after e's folder path changed.
func (r *Repository) rekeyLocked(e *Entry, oldKey string) {
	delete(r.entries, oldKey)
	r.entries[e.mod.Key()] = e
}

// Entries returns the tracked entries ordered by folder name.
func (r *Repository) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(mod.EnabledName(out[i].mod.Name())) < strings.ToLower(mod.EnabledName(out[j].mod.Name()))
	})
	return out
}

// Len returns the number of tracked entries.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Get returns the entry with the given ID.
func (r *Repository) Get(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Find returns the entry whose folder is path.
func (r *Repository) Find(path string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[mod.KeyFor(path)]
	return e, ok
}

// FindByName returns the entry whose folder name, ignoring case and
// disabled prefix, is name.
func (r *Repository) FindByName(name string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if mod.SameModName(e.mod.Name(), name) {
			return e, true
		}
	}
	return nil, false
}

// CreateFolder creates the reserved folder if needed and starts watching it.
func (r *Repository) CreateFolder() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.source == nil {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", r.dir, err)
		}
		if err := r.startSourceLocked(); err != nil {
			return err
		}
		r.publish(events.Event{Type: events.FolderCreated, Path: r.dir})
		logging.Get("repository").Info("created folder", "object", r.object, "dir", r.dir)
	}
	return r.checkLocked()
}

// FolderCreated handles a parent notification that the reserved folder
// appeared. The source is started and any mods already inside are tracked.
func (r *Repository) FolderCreated() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.source != nil {
		logging.Get("bridge").Debug("folder already watched", "object", r.object)
		return r.checkLocked()
	}
	if !dirExists(r.dir) {
		logging.Get("bridge").Warn("created folder is gone", "object", r.object, "dir", r.dir)
		return r.checkLocked()
	}

	if err := r.startSourceLocked(); err != nil {
		return err
	}
	r.publish(events.Event{Type: events.FolderCreated, Path: r.dir})
	if _, err := r.loadLocked(); err != nil {
		logging.Get("bridge").Error("loading new folder", "object", r.object, "error", err)
	}
	return r.checkLocked()
}

// FolderDeleted handles a parent notification that the reserved folder
// vanished. The source is stopped and every entry is untracked with a
// Deleted event.
func (r *Repository) FolderDeleted() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.source == nil {
		logging.Get("bridge").Debug("folder already unwatched", "object", r.object)
		return r.checkLocked()
	}

	r.stopSourceLocked()
	for _, e := range r.entries {
		r.untrackLocked(e)
		r.publish(events.Event{Type: events.Deleted, EntryID: e.id, Path: e.mod.Path()})
	}
	r.publish(events.Event{Type: events.FolderDeleted, Path: r.dir})
	logging.Get("bridge").Info("folder deleted", "object", r.object, "dir", r.dir)
	return r.checkLocked()
}

// checkLocked verifies that a source exists exactly when the folder does.
func (r *Repository) checkLocked() error {
	exists := dirExists(r.dir)
	if (r.source != nil) == exists {
		return nil
	}
	err := fmt.Errorf("%w: %s watched=%t exists=%t", ErrContractViolation, r.dir, r.source != nil, exists)
	logging.Get("repository").Error("watch lifecycle broken", "object", r.object, "error", err)
	return err
}

func (r *Repository) startSourceLocked() error {
	src, err := watcher.New(r.dir, r.sourceOpts...)
	if err != nil {
		return fmt.Errorf("watching %s: %w", r.dir, err)
	}

	ctx, cancel := context.WithCancel(r.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := src.Run(ctx, r.dispatch); err != nil {
			logging.Get("watcher").Error("source stopped", "dir", r.dir, "error", err)
		}
	}()

	r.source = src
	r.stopWatch = cancel
	r.watchDone = done
	return nil
}

func (r *Repository) stopSourceLocked() {
	if r.source == nil {
		return
	}
	r.stopWatch()
	if err := r.source.Close(); err != nil {
		logging.Get("watcher").Warn("closing source", "dir", r.dir, "error", err)
	}
	<-r.watchDone
	r.source = nil
	r.stopWatch = nil
	r.watchDone = nil
}

// suppressLocked mutes the source for a self-initiated change. The returned
// func must be called on every exit path.
func (r *Repository) suppressLocked() func() {
	if r.source == nil {
		return func() {}
	}
	return r.source.Suppress()
}

func (r *Repository) publish(ev events.Event) {
	if r.bus == nil {
		return
	}
	ev.Object = r.object
	r.bus.Publish(ev)
}

func (r *Repository) record(op history.Op, from, to string) {
	if r.recorder == nil {
		return
	}
	if _, err := r.recorder.Record(op, r.object, from, to); err != nil {
		logging.Get("repository").Warn("recording history", "op", op, "error", err)
	}
}

// Wait blocks until every bridge handler dispatched so far has finished.
func (r *Repository) Wait() {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	for r.inflight > 0 {
		r.idle.Wait()
	}
}

// Close stops the source and waits for in-flight handlers.
func (r *Repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.stopSourceLocked()
	r.mu.Unlock()

	r.Wait()
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// pathTaken reports whether path exists and is not the same file as self.
func pathTaken(path, self string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if self == "" {
		return true
	}
	selfInfo, err := os.Lstat(self)
	return err != nil || !os.SameFile(info, selfInfo)
}
