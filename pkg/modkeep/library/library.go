// Package library manages the mods root: one repository per moddable object
// folder, kept in step with the root by a parent watcher source.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jamesainslie/modkeep/pkg/modkeep/archive"
	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
	"github.com/jamesainslie/modkeep/pkg/modkeep/repository"
	"github.com/jamesainslie/modkeep/pkg/modkeep/watcher"
)

var (
	// ErrUnknownObject is returned for object names with no repository.
	ErrUnknownObject = errors.New("unknown object")

	// ErrNoArchiveCache is returned by archive lookups when no cache is
	// configured.
	ErrNoArchiveCache = errors.New("no archive cache configured")
)

// Config configures a Library.
type Config struct {
	// Root is the absolute mods root. It is created when missing.
	Root string

	// Objects are the moddable objects that always get a repository, even
	// before their folder exists.
	Objects []string

	Bus     *events.Broadcaster
	History repository.Recorder
	Archive *archive.Cache

	SourceOptions []watcher.Option
	ModOptions    []mod.Option
}

// Library owns the repositories under a mods root.
type Library struct {
	root string
	cfg  Config
	ctx  context.Context

	mu    sync.Mutex
	repos map[string]*repository.Repository // by lower-cased object name

	parent  *watcher.Source
	cancel  context.CancelFunc
	done    chan struct{}
	pending *eventQueue
	closed  bool
}

// Open creates the root if needed, starts watching it and creates a
// repository for each configured object and each existing folder in the
// root. Mods are not enumerated until Load.
func Open(ctx context.Context, cfg Config) (*Library, error) {
	if !filepath.IsAbs(cfg.Root) {
		return nil, fmt.Errorf("mods root %q: %w", cfg.Root, mod.ErrNotAbsolute)
	}
	root := filepath.Clean(cfg.Root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating mods root: %w", err)
	}

	l := &Library{
		root:    root,
		cfg:     cfg,
		repos:   make(map[string]*repository.Repository),
		pending: newEventQueue(),
	}

	// Watch before listing so a folder created in between is still routed.
	parent, err := watcher.New(root, cfg.SourceOptions...)
	if err != nil {
		return nil, err
	}

	names := append([]string(nil), cfg.Objects...)
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		_ = parent.Close()
		return nil, fmt.Errorf("listing mods root: %w", err)
	}
	for _, de := range dirEntries {
		if de.IsDir() && !mod.IsOwnedFile(de.Name()) {
			names = append(names, de.Name())
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.ctx = runCtx
	l.cancel = cancel

	for _, name := range names {
		if _, err := l.addLocked(name); err != nil {
			_ = parent.Close()
			l.closeRepos()
			cancel()
			return nil, err
		}
	}

	l.parent = parent
	l.done = make(chan struct{})
	go l.run()

	logging.Get("library").Info("opened library", "root", root, "objects", len(l.repos))
	return l, nil
}

// addLocked returns the repository for name, creating it when missing.
func (l *Library) addLocked(name string) (*repository.Repository, error) {
	key := strings.ToLower(name)
	if repo, ok := l.repos[key]; ok {
		return repo, nil
	}
	repo, err := repository.New(l.ctx, repository.Config{
		Object:        name,
		Dir:           filepath.Join(l.root, name),
		Bus:           l.cfg.Bus,
		History:       l.cfg.History,
		SourceOptions: l.cfg.SourceOptions,
		ModOptions:    l.cfg.ModOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", name, err)
	}
	l.repos[key] = repo
	return repo, nil
}

func (l *Library) run() {
	defer close(l.done)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for {
			ev, ok := l.pending.next()
			if !ok {
				return
			}
			l.route(ev)
		}
	}()

	if err := l.parent.Run(l.ctx, l.pending.push); err != nil {
		logging.Get("library").Error("parent source stopped", "root", l.root, "error", err)
	}
	l.pending.close()
	<-workerDone
}

// route applies one parent event. A rename is a deletion of the old object
// folder followed by creation of the new one.
func (l *Library) route(ev watcher.Event) {
	switch ev.Op {
	case watcher.Created:
		l.folderCreated(ev.Path)
	case watcher.Deleted:
		l.folderDeleted(ev.Path)
	case watcher.Renamed:
		l.folderDeleted(ev.OldPath)
		l.folderCreated(ev.Path)
	}
}

func (l *Library) folderCreated(path string) {
	log := logging.Get("library")
	name := filepath.Base(path)
	if mod.IsOwnedFile(name) {
		return
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		log.Debug("ignoring non-folder in root", "path", path)
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	repo, err := l.addLocked(name)
	l.mu.Unlock()
	if err != nil {
		log.Error("adding object", "object", name, "error", err)
		return
	}

	if err := repo.FolderCreated(); err != nil {
		log.Error("object folder created", "object", name, "error", err)
	}
}

func (l *Library) folderDeleted(path string) {
	name := filepath.Base(path)

	l.mu.Lock()
	repo, ok := l.repos[strings.ToLower(name)]
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	if !ok {
		logging.Get("library").Warn("deleted folder was not an object", "path", path)
		return
	}

	if err := repo.FolderDeleted(); err != nil {
		logging.Get("library").Error("object folder deleted", "object", name, "error", err)
	}
}

// Root returns the mods root.
func (l *Library) Root() string {
	return l.root
}

// Repository returns the repository of object, matched ignoring case.
func (l *Library) Repository(object string) (*repository.Repository, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	repo, ok := l.repos[strings.ToLower(object)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, object)
	}
	return repo, nil
}

// Objects returns the object names in sorted order.
func (l *Library) Objects() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.repos))
	for _, repo := range l.repos {
		names = append(names, repo.Object())
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// Repositories returns every repository ordered by object name.
func (l *Library) Repositories() []*repository.Repository {
	var out []*repository.Repository
	for _, name := range l.Objects() {
		if repo, err := l.Repository(name); err == nil {
			out = append(out, repo)
		}
	}
	return out
}

// Load enumerates the mods of every repository and returns the number of
// entries added.
func (l *Library) Load() (int, error) {
	total := 0
	var errs []error
	for _, repo := range l.Repositories() {
		n, err := repo.Load()
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.Object(), err))
		}
	}
	return total, errors.Join(errs...)
}

// Find returns the entry tracking the mod folder at path.
func (l *Library) Find(path string) (*repository.Entry, bool) {
	repo, err := l.Repository(filepath.Base(filepath.Dir(path)))
	if err != nil {
		return nil, false
	}
	return repo.Find(path)
}

// Wait blocks until every repository has processed its in-flight events.
func (l *Library) Wait() {
	for _, repo := range l.Repositories() {
		repo.Wait()
	}
}

// Close stops the parent source and closes every repository.
func (l *Library) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	err := l.parent.Close()
	<-l.done
	return errors.Join(err, l.closeRepos())
}

func (l *Library) closeRepos() error {
	l.mu.Lock()
	repos := make([]*repository.Repository, 0, len(l.repos))
	for _, repo := range l.repos {
		repos = append(repos, repo)
	}
	l.mu.Unlock()

	var errs []error
	for _, repo := range repos {
		errs = append(errs, repo.Close())
	}
	return errors.Join(errs...)
}
