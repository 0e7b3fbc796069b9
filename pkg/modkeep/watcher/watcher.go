// Package watcher reports creations, deletions and renames of the
// immediate children of one folder. Notifications are best effort: the
// operating system may coalesce or drop them under heavy churn.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

// Default timings.
const (
	DefaultPairWindow = 100 * time.Millisecond
	DefaultSettle     = 100 * time.Millisecond
)

// ErrClosed is returned by Run on a closed source.
var ErrClosed = errors.New("watcher closed")

// Op is the kind of change reported for a child of the watched folder.
type Op int

// Change kinds.
const (
	Created Op = iota + 1
	Deleted
	Renamed
)

// String returns the lower-case name of the op.
func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one change. OldPath is set for Renamed only.
type Event struct {
	Op      Op
	Path    string
	OldPath string
}

// Option configures a Source.
type Option func(*Source)

// WithPairWindow sets how long a rename waits for the create that names
// its new path before it is reported as a deletion.
func WithPairWindow(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.pairWindow = d
		}
	}
}

// WithSettle sets how long events stay dropped after the last suppression
// is released.
func WithSettle(d time.Duration) Option {
	return func(s *Source) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// Source watches one folder non-recursively.
type Source struct {
	dir        string
	fsw        *fsnotify.Watcher
	pairWindow time.Duration
	settle     time.Duration

	mu         sync.Mutex
	suppressed int
	quietUntil time.Time
	closed     bool
}

// New starts watching dir, which must exist.
func New(dir string, opts ...Option) (*Source, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", abs, err)
	}

	s := &Source{
		dir:        abs,
		fsw:        fsw,
		pairWindow: DefaultPairWindow,
		settle:     DefaultSettle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the watched folder.
func (s *Source) Dir() string {
	return s.dir
}

// Suppress drops events until the returned release func is called and the
// settle period has passed. Suppressions nest; release is idempotent.
func (s *Source) Suppress() (release func()) {
	s.mu.Lock()
	s.suppressed++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.suppressed--
			s.quietUntil = time.Now().Add(s.settle)
			s.mu.Unlock()
		})
	}
}

// Suppressed reports whether events are currently dropped.
func (s *Source) Suppressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutedLocked(time.Now())
}

func (s *Source) mutedLocked(now time.Time) bool {
	return s.suppressed > 0 || now.Before(s.quietUntil)
}

type pendingRename struct {
	path     string
	deadline time.Time
}

// Run delivers events to handle until ctx is done or the source is closed.
// handle is called from the Run goroutine and must not block.
func (s *Source) Run(ctx context.Context, handle func(Event)) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	log := logging.Get("watcher")

	var pending []pendingRename
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	var timerC <-chan time.Time

	rearm := func() {
		if len(pending) == 0 {
			timerC = nil
			return
		}
		timer.Reset(time.Until(pending[0].deadline))
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timerC:
			now := time.Now()
			for len(pending) > 0 && !now.Before(pending[0].deadline) {
				handle(Event{Op: Deleted, Path: pending[0].path})
				pending = pending[1:]
			}
			rearm()

		case ev, ok := <-s.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == s.dir || filepath.Dir(ev.Name) != s.dir {
				continue
			}

			s.mu.Lock()
			muted := s.mutedLocked(time.Now())
			s.mu.Unlock()
			if muted {
				log.Debug("dropped suppressed event", "path", ev.Name, "op", ev.Op.String())
				continue
			}

			switch {
			case ev.Has(fsnotify.Create):
				if len(pending) > 0 {
					old := pending[0].path
					pending = pending[1:]
					rearm()
					handle(Event{Op: Renamed, Path: ev.Name, OldPath: old})
					continue
				}
				handle(Event{Op: Created, Path: ev.Name})
			case ev.Has(fsnotify.Remove):
				handle(Event{Op: Deleted, Path: ev.Name})
			case ev.Has(fsnotify.Rename):
				pending = append(pending, pendingRename{path: ev.Name, deadline: time.Now().Add(s.pairWindow)})
				if len(pending) == 1 {
					rearm()
				}
			}

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "dir", s.dir, "error", err)
		}
	}
}

// Close stops the source. Run returns once it notices.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.fsw.Close()
}
