package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/modkeep/pkg/modkeep/config"
	"github.com/jamesainslie/modkeep/pkg/modkeep/library"
	"github.com/jamesainslie/modkeep/pkg/modkeep/repository"
)

func TestOpenSession(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Alice", "DISABLED_RedHat"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "Alice", "Boots"), 0o755); err != nil {
		t.Fatal(err)
	}

	c := &config.Config{ModsRoot: root, Objects: []string{"Bob"}}
	c.Archive.Path = filepath.Join(t.TempDir(), "archive")

	s, err := openSession(context.Background(), c)
	if err != nil {
		t.Fatalf("openSession() error = %v", err)
	}
	defer s.Close()

	if s.archive == nil {
		t.Error("expected archive cache to be open")
	}
	if s.history != nil {
		t.Error("expected history to stay disabled")
	}

	objects := s.lib.Objects()
	if len(objects) != 2 {
		t.Fatalf("expected Alice and Bob, got %v", objects)
	}

	e, err := s.entry("alice", "redhat")
	if err != nil {
		t.Fatalf("entry by name: %v", err)
	}
	if e.Enabled() {
		t.Error("expected RedHat to be disabled")
	}

	byID, err := s.entry("Alice", e.ID())
	if err != nil {
		t.Fatalf("entry by id: %v", err)
	}
	if byID.ID() != e.ID() {
		t.Error("expected same entry by id")
	}

	if _, err := s.entry("Alice", "Gloves"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.entry("Carol", "Boots"); !errors.Is(err, library.ErrUnknownObject) {
		t.Errorf("expected ErrUnknownObject, got %v", err)
	}
}
