package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
	"github.com/jamesainslie/modkeep/pkg/modkeep/history"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
	"github.com/jamesainslie/modkeep/pkg/modkeep/trash"
	"github.com/jamesainslie/modkeep/pkg/modkeep/watcher"
)

const eventTimeout = 2 * time.Second

type recorded struct {
	op       history.Op
	from, to string
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []recorded
}

func (f *fakeRecorder) Record(op history.Op, _, from, to string) (*history.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, recorded{op: op, from: from, to: to})
	return &history.Record{Op: op, From: from, To: to}, nil
}

func (f *fakeRecorder) ops() []history.Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]history.Op, 0, len(f.recs))
	for _, r := range f.recs {
		out = append(out, r.op)
	}
	return out
}

type fixture struct {
	repo *Repository
	bus  *events.Broadcaster
	sub  *events.Subscriber
	hist *fakeRecorder
}

func newFixture(t *testing.T, dir string, folders ...string) *fixture {
	t.Helper()
	return newFixtureWith(t, dir, nil, folders...)
}

func newFixtureWith(t *testing.T, dir string, modOpts []mod.Option, folders ...string) *fixture {
	t.Helper()
	for _, name := range folders {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	bus := events.New()
	hist := &fakeRecorder{}
	repo, err := New(context.Background(), Config{
		Object:        filepath.Base(dir),
		Dir:           dir,
		Bus:           bus,
		History:       hist,
		SourceOptions: []watcher.Option{watcher.WithPairWindow(50 * time.Millisecond)},
		ModOptions:    modOpts,
	})
	require.NoError(t, err)

	f := &fixture{repo: repo, bus: bus, sub: bus.Subscribe(""), hist: hist}
	t.Cleanup(func() {
		_ = repo.Close()
		bus.Close()
	})
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	_, err := f.repo.Load()
	require.NoError(t, err)
}

func (f *fixture) entry(t *testing.T, name string) *Entry {
	t.Helper()
	e, ok := f.repo.Find(filepath.Join(f.repo.Dir(), name))
	require.True(t, ok, "entry %s not tracked", name)
	return e
}

func (f *fixture) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-f.sub.Events:
		return ev
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func (f *fixture) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-f.sub.Events:
		t.Fatalf("unexpected event %s %s", ev.Type, ev.Path)
	case <-time.After(wait):
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNew_RelativeDir(t *testing.T) {
	_, err := New(context.Background(), Config{Dir: "relative"})
	assert.ErrorIs(t, err, mod.ErrNotAbsolute)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "One", "DISABLED_Two", ".modkeep_cache")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	added, err := f.repo.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	entries := f.repo.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "One", entries[0].Mod().Name())
	assert.True(t, entries[0].Enabled())
	assert.Equal(t, "DISABLED_Two", entries[1].Mod().Name())
	assert.False(t, entries[1].Enabled())

	again, err := f.repo.Load()
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestDisableThenEnable(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "ExampleMod")
	f.load(t)
	e := f.entry(t, "ExampleMod")

	require.NoError(t, f.repo.Disable(e.ID()))
	assert.True(t, exists(filepath.Join(dir, "DISABLED_ExampleMod")))
	assert.False(t, exists(filepath.Join(dir, "ExampleMod")))
	assert.False(t, e.Enabled())

	ev := f.next(t)
	assert.Equal(t, events.Disabled, ev.Type)
	assert.Equal(t, filepath.Base(dir), ev.Object)
	assert.Equal(t, e.ID(), ev.EntryID)

	require.NoError(t, f.repo.Enable(e.ID()))
	assert.True(t, exists(filepath.Join(dir, "ExampleMod")))
	assert.True(t, e.Enabled())
	assert.Equal(t, events.Enabled, f.next(t).Type)

	// The renames were ours; the bridge must not see them.
	f.none(t, 300*time.Millisecond)
	f.repo.Wait()
	assert.Equal(t, 1, f.repo.Len())
	got, err := f.repo.Get(e.ID())
	require.NoError(t, err)
	assert.Same(t, e, got)

	assert.Equal(t, []history.Op{history.OpDisable, history.OpEnable}, f.hist.ops())
}

func TestEnableDisable_InvalidState(t *testing.T) {
	f := newFixture(t, t.TempDir(), "On", "DISABLED_Off")
	f.load(t)

	assert.ErrorIs(t, f.repo.Enable(f.entry(t, "On").ID()), ErrInvalidOperation)
	assert.ErrorIs(t, f.repo.Disable(f.entry(t, "DISABLED_Off").ID()), ErrInvalidOperation)
	assert.ErrorIs(t, f.repo.Enable("missing"), ErrNotFound)
}

func TestDisable_Collision(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "ExampleMod", "DISABLED_ExampleMod")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ExampleMod", "a.txt"), []byte("enabled"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DISABLED_ExampleMod", "a.txt"), []byte("disabled"), 0o644))
	f.load(t)

	e := f.entry(t, "ExampleMod")
	assert.ErrorIs(t, f.repo.Disable(e.ID()), ErrCollision)
	assert.ErrorIs(t, f.repo.Enable(f.entry(t, "DISABLED_ExampleMod").ID()), ErrCollision)

	data, err := os.ReadFile(filepath.Join(dir, "ExampleMod", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "enabled", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "DISABLED_ExampleMod", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "disabled", string(data))
	assert.True(t, e.Enabled())
	assert.Empty(t, f.hist.ops())
}

func TestToggle(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "Mod")
	f.load(t)
	e := f.entry(t, "Mod")

	enabled, err := f.repo.Toggle(e.ID())
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.True(t, exists(filepath.Join(dir, "DISABLED_Mod")))

	enabled, err = f.repo.Toggle(e.ID())
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.True(t, exists(filepath.Join(dir, "Mod")))
}

func TestEnable_AltPrefix(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "DISABLEDLegacy")
	f.load(t)

	e := f.entry(t, "DISABLEDLegacy")
	assert.False(t, e.Enabled())
	require.NoError(t, f.repo.Enable(e.ID()))
	assert.True(t, exists(filepath.Join(dir, "Legacy")))
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "DISABLED_Old", "Other", "DISABLED_Taken")
	f.load(t)
	e := f.entry(t, "DISABLED_Old")

	t.Run("keeps prefix", func(t *testing.T) {
		require.NoError(t, f.repo.Rename(e.ID(), "New"))
		assert.True(t, exists(filepath.Join(dir, "DISABLED_New")))
		assert.False(t, e.Enabled())

		ev := f.next(t)
		assert.Equal(t, events.Renamed, ev.Type)
		assert.Equal(t, filepath.Join(dir, "DISABLED_Old"), ev.OldPath)
		assert.Equal(t, filepath.Join(dir, "DISABLED_New"), ev.Path)
	})

	t.Run("prefix on new name is ignored", func(t *testing.T) {
		require.NoError(t, f.repo.Rename(e.ID(), "DISABLED_Newer"))
		assert.True(t, exists(filepath.Join(dir, "DISABLED_Newer")))
		f.next(t)
	})

	t.Run("enabled form taken", func(t *testing.T) {
		assert.ErrorIs(t, f.repo.Rename(e.ID(), "Other"), ErrCollision)
		assert.True(t, exists(filepath.Join(dir, "DISABLED_Newer")))
	})

	t.Run("disabled form taken", func(t *testing.T) {
		assert.ErrorIs(t, f.repo.Rename(e.ID(), "Taken"), ErrCollision)
		assert.True(t, exists(filepath.Join(dir, "DISABLED_Newer")))
	})

	t.Run("same name", func(t *testing.T) {
		require.NoError(t, f.repo.Rename(e.ID(), "Newer"))
		f.none(t, 50*time.Millisecond)
	})

	f.repo.Wait()
	assert.Equal(t, 3, f.repo.Len())
	assert.Equal(t, []history.Op{history.OpRename, history.OpRename}, f.hist.ops())
}

func TestRename_UntrackedAltPrefixTaken(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "Hat", "DISABLEDCap")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DISABLEDCap", ".modkeep_settings.json"), []byte("{broken"), 0o644))
	f.load(t)
	require.Equal(t, 1, f.repo.Len())
	e := f.entry(t, "Hat")

	err := f.repo.Rename(e.ID(), "Cap")
	assert.ErrorIs(t, err, ErrCollision)
	assert.True(t, exists(filepath.Join(dir, "Hat")))
	assert.False(t, exists(filepath.Join(dir, "Cap")))
	assert.True(t, f.repo.FolderAlreadyExists("cap"))

	require.NoError(t, f.repo.Rename(e.ID(), "hat"))
	assert.Equal(t, "hat", e.Mod().Name())
}

func TestDeleteEntry(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "Gone")
	f.load(t)
	e := f.entry(t, "Gone")

	require.NoError(t, f.repo.DeleteEntry(e.ID(), false))
	assert.False(t, exists(filepath.Join(dir, "Gone")))

	ev := f.next(t)
	assert.Equal(t, events.Deleted, ev.Type)
	assert.Equal(t, e.ID(), ev.EntryID)

	_, err := f.repo.Get(e.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	f.none(t, 300*time.Millisecond)
	assert.Equal(t, []history.Op{history.OpDelete}, f.hist.ops())
}

func TestDeleteEntry_TrashUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	bin := &trash.Bin{Dir: filepath.Join(blocker, "Trash"), NoCommands: true}

	f := newFixtureWith(t, dir, []mod.Option{mod.WithTrash(bin)}, "Kept")
	f.load(t)
	e := f.entry(t, "Kept")

	err := f.repo.DeleteEntry(e.ID(), true)
	assert.ErrorIs(t, err, trash.ErrUnavailable)
	assert.True(t, exists(filepath.Join(dir, "Kept")))

	ev := f.next(t)
	assert.Equal(t, events.Deleted, ev.Type)
	_, err = f.repo.Get(e.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.hist.ops())

	added, err := f.repo.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestBridge_DuplicateDeletion(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "ExampleMod", "Keep")
	f.load(t)
	e := f.entry(t, "ExampleMod")
	path := filepath.Join(dir, "ExampleMod")

	f.repo.handle(watcher.Event{Op: watcher.Deleted, Path: path})
	f.repo.handle(watcher.Event{Op: watcher.Deleted, Path: path})

	ev := f.next(t)
	assert.Equal(t, events.Deleted, ev.Type)
	assert.Equal(t, e.ID(), ev.EntryID)
	f.none(t, 100*time.Millisecond)

	assert.Equal(t, 1, f.repo.Len())
	_, ok := f.repo.Find(filepath.Join(dir, "Keep"))
	assert.True(t, ok)
}

func TestBridge_DuplicateCreation(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "Mod")
	f.load(t)

	f.repo.handle(watcher.Event{Op: watcher.Created, Path: filepath.Join(dir, "Mod")})
	f.none(t, 100*time.Millisecond)
	assert.Equal(t, 1, f.repo.Len())
}

func TestBridge_CreatedNonFolder(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	f.repo.handle(watcher.Event{Op: watcher.Created, Path: path})
	f.repo.handle(watcher.Event{Op: watcher.Created, Path: filepath.Join(dir, "vanished")})
	assert.Zero(t, f.repo.Len())
}

func TestBridge_RenameOfUntracked(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "New")

	f.repo.handle(watcher.Event{Op: watcher.Renamed, OldPath: filepath.Join(dir, "Old"), Path: filepath.Join(dir, "New")})
	f.none(t, 100*time.Millisecond)
	assert.Zero(t, f.repo.Len())
}

func TestBridge_ExternalChanges(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)

	created := filepath.Join(dir, "Dropped")
	require.NoError(t, os.Mkdir(created, 0o755))

	ev := f.next(t)
	assert.Equal(t, events.Created, ev.Type)
	assert.Equal(t, created, ev.Path)
	f.repo.Wait()
	e, ok := f.repo.Find(created)
	require.True(t, ok)

	renamed := filepath.Join(dir, "DISABLED_Dropped")
	require.NoError(t, os.Rename(created, renamed))

	ev = f.next(t)
	assert.Equal(t, events.Renamed, ev.Type)
	assert.Equal(t, created, ev.OldPath)
	assert.Equal(t, renamed, ev.Path)
	assert.Equal(t, e.ID(), ev.EntryID)

	f.repo.Wait()
	moved, ok := f.repo.Find(renamed)
	require.True(t, ok)
	assert.Equal(t, e.ID(), moved.ID())
	assert.False(t, moved.Enabled())

	require.NoError(t, os.Remove(renamed))
	assert.Equal(t, events.Deleted, f.next(t).Type)
	f.repo.Wait()
	assert.Zero(t, f.repo.Len())
}

func TestTrack(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "Mod")

	m, err := mod.Open(filepath.Join(dir, "Mod"))
	require.NoError(t, err)

	e, err := f.repo.Track(m)
	require.NoError(t, err)
	again, err := f.repo.Track(m)
	require.NoError(t, err)
	assert.Same(t, e, again)
	assert.Equal(t, 1, f.repo.Len())

	enabled, err := f.repo.IsEnabled(m)
	require.NoError(t, err)
	assert.True(t, enabled)

	assert.True(t, f.repo.Untrack(m))
	assert.False(t, f.repo.Untrack(m))
	_, err = f.repo.IsEnabled(m)
	assert.ErrorIs(t, err, ErrNotFound)

	outside := filepath.Join(t.TempDir(), "Elsewhere")
	require.NoError(t, os.Mkdir(outside, 0o755))
	other, err := mod.Open(outside)
	require.NoError(t, err)
	_, err = f.repo.Track(other)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestTrackUntrackAndBridge_Concurrent(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "Alpha", "Beta", "DISABLED_Gamma")
	f.load(t)

	paths := []string{
		filepath.Join(dir, "Alpha"),
		filepath.Join(dir, "Beta"),
		filepath.Join(dir, "DISABLED_Gamma"),
	}
	const rounds = 50

	var wg sync.WaitGroup
	for i, path := range paths {
		next := paths[(i+1)%len(paths)]
		wg.Add(3)
		go func() {
			defer wg.Done()
			for range rounds {
				m, err := mod.Open(path)
				if !assert.NoError(t, err) {
					return
				}
				_, err = f.repo.Track(m)
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for range rounds {
				m, err := mod.Open(path)
				if !assert.NoError(t, err) {
					return
				}
				f.repo.Untrack(m)
			}
		}()
		go func() {
			defer wg.Done()
			for range rounds {
				f.repo.dispatch(watcher.Event{Op: watcher.Created, Path: path})
				f.repo.dispatch(watcher.Event{Op: watcher.Renamed, OldPath: path, Path: next})
				f.repo.dispatch(watcher.Event{Op: watcher.Deleted, Path: path})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range rounds {
			f.repo.mu.Lock()
			err := f.repo.checkLocked()
			f.repo.mu.Unlock()
			assert.NoError(t, err)
		}
	}()

	wg.Wait()
	f.repo.Wait()

	keys := make(map[string]bool)
	ids := make(map[string]bool)
	for _, e := range f.repo.Entries() {
		assert.False(t, keys[e.Mod().Key()], "duplicate key %s", e.Mod().Key())
		assert.False(t, ids[e.ID()], "duplicate id %s", e.ID())
		keys[e.Mod().Key()] = true
		ids[e.ID()] = true
	}

	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	require.NoError(t, f.repo.checkLocked())
	assert.Len(t, f.repo.byID, len(f.repo.entries))
	for key, e := range f.repo.entries {
		assert.Equal(t, key, e.mod.Key())
		assert.Same(t, e, f.repo.byID[e.id])
	}
}

func TestFolderLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Alice")
	bus := events.New()
	defer bus.Close()
	sub := bus.Subscribe("Alice")
	repo, err := New(context.Background(), Config{Object: "Alice", Dir: dir, Bus: bus})
	require.NoError(t, err)
	defer repo.Close()

	assert.Equal(t, NoFolder, repo.State())

	require.NoError(t, repo.CreateFolder())
	assert.Equal(t, FolderExists, repo.State())
	assert.Equal(t, events.FolderCreated, (<-sub.Events).Type)

	// A second call is a no-op.
	require.NoError(t, repo.CreateFolder())

	require.NoError(t, os.Mkdir(filepath.Join(dir, "Mod"), 0o755))
	require.Eventually(t, func() bool { return repo.Len() == 1 }, eventTimeout, 10*time.Millisecond)
	assert.Equal(t, events.Created, (<-sub.Events).Type)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, repo.FolderDeleted())
	repo.Wait()
	assert.Equal(t, NoFolder, repo.State())
	assert.Zero(t, repo.Len())

	seen := map[events.Type]int{}
	timeout := time.After(eventTimeout)
	for seen[events.FolderDeleted] == 0 {
		select {
		case ev := <-sub.Events:
			seen[ev.Type]++
		case <-timeout:
			t.Fatal("timed out waiting for folder-deleted")
		}
	}
	assert.Equal(t, 1, seen[events.Deleted])

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Back"), 0o755))
	require.NoError(t, repo.FolderCreated())
	assert.Equal(t, FolderExists, repo.State())
	assert.Equal(t, 1, repo.Len())
}

func TestFolderLifecycle_ContractViolation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Bob")
	repo, err := New(context.Background(), Config{Dir: dir})
	require.NoError(t, err)
	defer repo.Close()

	// The folder appears without a FolderCreated notification.
	require.NoError(t, os.Mkdir(dir, 0o755))
	assert.ErrorIs(t, repo.FolderDeleted(), ErrContractViolation)

	require.NoError(t, repo.FolderCreated())
	require.NoError(t, os.Remove(dir))
	assert.ErrorIs(t, repo.FolderCreated(), ErrContractViolation)
}

func TestMoveEntry(t *testing.T) {
	root := t.TempDir()
	src := newFixture(t, filepath.Join(root, "Alice"), "Shared", "Stay")
	dst := newFixture(t, filepath.Join(root, "Bob"), "DISABLED_Busy")
	src.load(t)
	dst.load(t)

	e := src.entry(t, "Shared")
	moved, err := src.repo.MoveEntry(e.ID(), dst.repo)
	require.NoError(t, err)
	assert.Equal(t, e.ID(), moved.ID())
	assert.Same(t, dst.repo, moved.Repository())
	assert.True(t, exists(filepath.Join(root, "Bob", "Shared")))
	assert.False(t, exists(filepath.Join(root, "Alice", "Shared")))

	_, err = src.repo.Get(e.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = dst.repo.Get(e.ID())
	require.NoError(t, err)

	ev := dst.next(t)
	assert.Equal(t, events.Moved, ev.Type)
	assert.Equal(t, "Bob", ev.Object)
	assert.Equal(t, []history.Op{history.OpMove}, dst.hist.ops())

	require.NoError(t, os.Mkdir(filepath.Join(root, "Alice", "Busy"), 0o755))
	busy, err := src.repo.Track(mustOpen(t, filepath.Join(root, "Alice", "Busy")))
	require.NoError(t, err)
	_, err = src.repo.MoveEntry(busy.ID(), dst.repo)
	assert.ErrorIs(t, err, ErrCollision)
	assert.True(t, exists(filepath.Join(root, "Alice", "Busy")))

	_, err = src.repo.MoveEntry(busy.ID(), src.repo)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	src.repo.Wait()
	dst.repo.Wait()
	assert.Equal(t, 2, src.repo.Len())
	assert.Equal(t, 2, dst.repo.Len())
}

func TestFolderAlreadyExists(t *testing.T) {
	f := newFixture(t, t.TempDir(), "DISABLED_Mod", "DISABLEDOld")

	assert.True(t, f.repo.FolderAlreadyExists("Mod"))
	assert.True(t, f.repo.FolderAlreadyExists("mod"))
	assert.True(t, f.repo.FolderAlreadyExists("Old"))
	assert.False(t, f.repo.FolderAlreadyExists("Fresh"))
}

func TestClose(t *testing.T) {
	f := newFixture(t, t.TempDir(), "Mod")
	f.load(t)
	e := f.entry(t, "Mod")

	require.NoError(t, f.repo.Close())
	require.NoError(t, f.repo.Close())
	assert.ErrorIs(t, f.repo.Disable(e.ID()), ErrClosed)
	_, err := f.repo.Load()
	assert.ErrorIs(t, err, ErrClosed)
}

func mustOpen(t *testing.T, path string) *mod.Mod {
	t.Helper()
	m, err := mod.Open(path)
	require.NoError(t, err)
	return m
}
