package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jamesainslie/modkeep/pkg/modkeep/archive"
	"github.com/jamesainslie/modkeep/pkg/modkeep/config"
	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
	"github.com/jamesainslie/modkeep/pkg/modkeep/history"
	"github.com/jamesainslie/modkeep/pkg/modkeep/library"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
	"github.com/jamesainslie/modkeep/pkg/modkeep/repository"
	"github.com/jamesainslie/modkeep/pkg/modkeep/watcher"
)

// session is one opened library plus the stores it writes to.
type session struct {
	lib     *library.Library
	bus     *events.Broadcaster
	history *history.Log
	archive *archive.Cache
}

// openSession opens the configured mods root and loads every object.
func openSession(ctx context.Context, c *config.Config) (*session, error) {
	log := logging.Get("cli")
	s := &session{bus: events.New()}

	libCfg := library.Config{
		Objects: c.Objects,
		Bus:     s.bus,
		SourceOptions: []watcher.Option{
			watcher.WithPairWindow(c.Watcher.PairWindow),
			watcher.WithSettle(c.Watcher.Settle),
		},
		ModOptions: []mod.Option{
			mod.WithSettingsFile(c.SettingsFile),
			mod.WithLookahead(c.KeySwap.Lookahead),
		},
	}

	if c.History.Enabled {
		h, err := history.New(c.History.Path)
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		s.history = h
		libCfg.History = h
	}

	if c.Archive.Path != "" {
		cache, err := archive.Open(c.Archive.Path)
		if err != nil {
			// Another modkeep process may hold the database.
			log.Warn("archive cache unavailable", "path", c.Archive.Path, "error", err)
		} else {
			s.archive = cache
			libCfg.Archive = cache
		}
	}

	root, err := filepath.Abs(c.ModsRoot)
	if err != nil {
		s.closeStores()
		return nil, err
	}
	libCfg.Root = root

	lib, err := library.Open(ctx, libCfg)
	if err != nil {
		s.closeStores()
		return nil, err
	}
	s.lib = lib

	if _, err := lib.Load(); err != nil {
		log.Warn("some objects failed to load", "error", err)
	}
	return s, nil
}

func (s *session) Close() {
	if s.lib != nil {
		_ = s.lib.Close()
	}
	s.closeStores()
}

func (s *session) closeStores() {
	if s.archive != nil {
		_ = s.archive.Close()
	}
	s.bus.Close()
}

// entry resolves an object and mod name. The name matches ignoring case
// and disabled prefix, or as an entry ID.
func (s *session) entry(object, name string) (*repository.Entry, error) {
	repo, err := s.lib.Repository(object)
	if err != nil {
		return nil, err
	}
	if e, ok := repo.FindByName(name); ok {
		return e, nil
	}
	if e, err := repo.Get(name); err == nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", repository.ErrNotFound, name, repo.Object())
}
