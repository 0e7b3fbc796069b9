package mod

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/modkeep/pkg/modkeep/keyswap"
	"github.com/jamesainslie/modkeep/pkg/modkeep/trash"
)

// makeMod creates dir/name with the given files (slash-separated relative
// paths) and opens it.
func makeMod(t *testing.T, dir, name string, files map[string]string, opts ...Option) *Mod {
	t.Helper()
	root := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(root, 0o755))
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	m, err := Open(root, opts...)
	require.NoError(t, err)
	return m
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	_, err := Open("relative/path")
	assert.ErrorIs(t, err, ErrNotAbsolute)

	_, err = Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Open(file)
	assert.ErrorIs(t, err, ErrNotDirectory)

	m := makeMod(t, dir, "ExampleMod", nil)
	assert.Equal(t, "ExampleMod", m.Name())
	assert.Equal(t, dir, m.Dir())
	assert.True(t, m.IsEnabled())
	assert.True(t, m.Exists())
}

func TestIdentity(t *testing.T) {
	dir := t.TempDir()
	a := makeMod(t, dir, "ExampleMod", nil)
	b, err := Open(filepath.Join(dir, "ExampleMod") + string(filepath.Separator))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, KeyFor(filepath.Join(dir, "EXAMPLEMOD")), a.Key())

	other := makeMod(t, dir, "Other", nil)
	assert.False(t, a.Equal(other))
}

func TestSettings(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file yields defaults", func(t *testing.T) {
		m := makeMod(t, dir, "Plain", nil)
		assert.Equal(t, Settings{}, m.Settings())
		assert.Equal(t, "Plain", m.DisplayName())
	})

	t.Run("comments and trailing commas", func(t *testing.T) {
		m := makeMod(t, dir, "DISABLED_Commented", map[string]string{
			DefaultSettingsFile: `{
				// set by the user
				"customName": "Pretty Name",
				"author": "someone",
				"modUrl": "https://example.invalid/mod/1",
			}`,
		})
		s := m.Settings()
		assert.Equal(t, "Pretty Name", s.CustomName)
		assert.Equal(t, "someone", s.Author)
		assert.Equal(t, "https://example.invalid/mod/1", s.ModURL)
		assert.Equal(t, "Pretty Name", m.DisplayName())
	})

	t.Run("malformed file fails open", func(t *testing.T) {
		root := filepath.Join(dir, "Broken")
		require.NoError(t, os.MkdirAll(root, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, DefaultSettingsFile), []byte("{not json"), 0o644))

		_, err := Open(root)
		assert.ErrorIs(t, err, ErrInvalidSettings)
	})

	t.Run("save and reload", func(t *testing.T) {
		m := makeMod(t, dir, "Saved", nil)
		s := m.Settings()
		s.Version = "1.2"
		s.Preferences = map[string]string{"variant": "2"}
		require.NoError(t, m.SaveSettings(s))

		checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, m.SetLastChecked(checked))

		reopened, err := Open(m.Path())
		require.NoError(t, err)
		got := reopened.Settings()
		assert.Equal(t, "1.2", got.Version)
		assert.Equal(t, "2", got.Preferences["variant"])
		require.NotNil(t, got.LastChecked)
		assert.True(t, checked.Equal(*got.LastChecked))

		data, err := os.ReadFile(m.SettingsPath())
		require.NoError(t, err)
		assert.Contains(t, string(data), `"lastChecked"`)
		assert.NotContains(t, string(data), `"author"`)
	})

	t.Run("custom sidecar name", func(t *testing.T) {
		m := makeMod(t, dir, "Custom", map[string]string{
			"mod.json": `{"author": "me"}`,
		}, WithSettingsFile("mod.json"))
		assert.Equal(t, "me", m.Settings().Author)
	})

	t.Run("clear cache rereads", func(t *testing.T) {
		m := makeMod(t, dir, "Stale", nil)
		require.NoError(t, os.WriteFile(m.SettingsPath(), []byte(`{"author":"late"}`), 0o644))
		assert.Equal(t, "", m.Settings().Author)

		m.ClearCache()
		assert.Equal(t, "late", m.Settings().Author)
	})
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	m := makeMod(t, dir, "ExampleMod", map[string]string{"a.txt": "a"})

	require.NoError(t, m.Rename("DISABLED_ExampleMod"))
	assert.Equal(t, filepath.Join(dir, "DISABLED_ExampleMod"), m.Path())
	assert.False(t, m.IsEnabled())
	assert.FileExists(t, filepath.Join(dir, "DISABLED_ExampleMod", "a.txt"))
	assert.NoDirExists(t, filepath.Join(dir, "ExampleMod"))

	require.NoError(t, m.Rename("DISABLED_ExampleMod"))

	for _, bad := range []string{"", "..", "a/b"} {
		assert.ErrorIs(t, m.Rename(bad), ErrInvalidName, "name %q", bad)
	}
}

func TestRename_DestinationExists(t *testing.T) {
	dir := t.TempDir()
	m := makeMod(t, dir, "ExampleMod", map[string]string{"a.txt": "a"})
	makeMod(t, dir, "Taken", map[string]string{"b.txt": "b"})

	err := m.Rename("Taken")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrExist)

	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, filepath.Join(dir, "Taken"), pathErr.Path)

	assert.Equal(t, filepath.Join(dir, "ExampleMod"), m.Path())
	assert.FileExists(t, filepath.Join(dir, "Taken", "b.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "Taken", "a.txt"))
}

func TestMoveTo(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Furina")
	require.NoError(t, os.Mkdir(target, 0o755))

	m := makeMod(t, filepath.Join(dir, "Raiden"), "ExampleMod", map[string]string{"sub/a.txt": "a"})

	require.NoError(t, m.MoveTo(target))
	assert.Equal(t, filepath.Join(target, "ExampleMod"), m.Path())
	assert.FileExists(t, filepath.Join(target, "ExampleMod", "sub", "a.txt"))
	assert.NoDirExists(t, filepath.Join(dir, "Raiden", "ExampleMod"))

	assert.ErrorIs(t, m.MoveTo("relative"), ErrNotAbsolute)
}

func TestMoveTo_DestinationExists(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Furina")
	makeMod(t, target, "ExampleMod", nil)
	m := makeMod(t, filepath.Join(dir, "Raiden"), "ExampleMod", nil)

	err := m.MoveTo(target)
	assert.ErrorIs(t, err, fs.ErrExist)
	assert.DirExists(t, filepath.Join(dir, "Raiden", "ExampleMod"))
}

func TestCopyTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "f.txt"), []byte("payload"), 0o600))
	stamp := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "nested", "f.txt"), stamp, stamp))
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink("nested/f.txt", filepath.Join(src, "link")))
	}

	dst := filepath.Join(dir, "dst")
	require.NoError(t, copyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "nested", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(filepath.Join(dst, "nested", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.True(t, stamp.Equal(info.ModTime()), "mod time %s", info.ModTime())

	if runtime.GOOS != "windows" {
		target, err := os.Readlink(filepath.Join(dst, "link"))
		require.NoError(t, err)
		assert.Equal(t, "nested/f.txt", target)
	}

	assert.Error(t, copyTree(src, dst))
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()

	m := makeMod(t, dir, "Gone", map[string]string{"a.txt": "a"})
	require.NoError(t, m.Delete(false))
	assert.NoDirExists(t, m.Path())

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("home trash layout is freedesktop only")
	}
	bin := &trash.Bin{Dir: filepath.Join(dir, "Trash"), NoCommands: true}
	trashed := makeMod(t, dir, "Trashed", map[string]string{"a.txt": "a"}, WithTrash(bin))
	require.NoError(t, trashed.Delete(true))
	assert.NoDirExists(t, trashed.Path())
	assert.False(t, trashed.Exists())
}

func TestDelete_NoTrashKeepsFolder(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	bin := &trash.Bin{Dir: filepath.Join(blocker, "Trash"), NoCommands: true}

	m := makeMod(t, dir, "Kept", map[string]string{"a.txt": "a"}, WithTrash(bin))
	err := m.Delete(true)
	assert.ErrorIs(t, err, trash.ErrUnavailable)
	assert.True(t, m.Exists())
	assert.FileExists(t, filepath.Join(m.Path(), "a.txt"))
}

func TestContentHash(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"merged.ini":    "[KeySwap]\nkey = VK_1\n",
		"tex/body.dds":  "texture",
		"tex/face.dds":  "face",
		"buffers/a.buf": "abc",
		"buffers/b.buf": "",
	}

	a := makeMod(t, dir, "ExampleMod", files)
	b := makeMod(t, filepath.Join(dir, "other"), "DISABLED_Renamed", files)

	hashA, err := a.ContentHash()
	require.NoError(t, err)
	hashB, err := b.ContentHash()
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64)

	require.NoError(t, a.SaveSettings(Settings{Author: "someone"}))
	withSettings, err := a.ContentHash()
	require.NoError(t, err)
	assert.Equal(t, hashA, withSettings, "sidecar must not change the payload hash")

	require.NoError(t, os.WriteFile(filepath.Join(b.Path(), "tex", "face.dds"), []byte("FACE"), 0o644))
	changed, err := b.ContentHash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, changed)
}

func TestContentHash_PathMatters(t *testing.T) {
	dir := t.TempDir()
	a := makeMod(t, dir, "A", map[string]string{"x/file": "same"})
	b := makeMod(t, dir, "B", map[string]string{"y/file": "same"})

	hashA, err := a.ContentHash()
	require.NoError(t, err)
	hashB, err := b.ContentHash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestContentHash_Boundaries(t *testing.T) {
	dir := t.TempDir()
	a := makeMod(t, dir, "A", map[string]string{"a": "bc", "b": ""})
	b := makeMod(t, dir, "B", map[string]string{"a": "b", "b": "c"})

	hashA, err := a.ContentHash()
	require.NoError(t, err)
	hashB, err := b.ContentHash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestSize(t *testing.T) {
	dir := t.TempDir()
	m := makeMod(t, dir, "Sized", map[string]string{"a": "12345", "sub/b": "123"})

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	require.NoError(t, os.WriteFile(filepath.Join(m.Path(), "c"), []byte("12"), 0o644))
	size, err = m.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(8), size, "size is cached")

	m.ClearCache()
	size, err = m.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestMergedConfigPath(t *testing.T) {
	dir := t.TempDir()

	none := makeMod(t, dir, "None", map[string]string{"readme.txt": "x"})
	path, err := none.MergedConfigPath()
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = none.KeySwaps()
	assert.ErrorIs(t, err, ErrNoMergedConfig)

	script := makeMod(t, dir, "Script", map[string]string{"Script.INI": "[A]\n"})
	path, err = script.MergedConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(script.Path(), "Script.INI"), path)

	both := makeMod(t, dir, "Both", map[string]string{"script.ini": "", "merged.ini": ""})
	path, err = both.MergedConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(both.Path(), "merged.ini"), path)

	override := makeMod(t, dir, "Override", map[string]string{
		"merged.ini":        "",
		"inner/custom.ini":  "",
		DefaultSettingsFile: `{"mergedIniPath": "inner/custom.ini"}`,
	})
	path, err = override.MergedConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(override.Path(), "inner", "custom.ini"), path)

	escape := makeMod(t, dir, "Escape", map[string]string{
		"merged.ini":        "",
		DefaultSettingsFile: `{"mergedIniPath": "../None/readme.txt"}`,
	})
	path, err = escape.MergedConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(escape.Path(), "merged.ini"), path)
}

func TestKeySwaps(t *testing.T) {
	dir := t.TempDir()
	m := makeMod(t, dir, "ExampleMod", map[string]string{
		"merged.ini": "[KeySwap]\nkey = VK_1\nback = VK_2\n",
	}, WithLookahead(4))

	store, err := m.KeySwaps()
	require.NoError(t, err)
	sections, err := store.Load()
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "VK_1", sections[0].ForwardKey())

	again, err := m.KeySwaps()
	require.NoError(t, err)
	assert.Same(t, store, again)

	require.NoError(t, m.Rename("DISABLED_ExampleMod"))
	renamed, err := m.KeySwaps()
	require.NoError(t, err)
	assert.NotSame(t, store, renamed)
	assert.Equal(t, filepath.Join(m.Path(), "merged.ini"), renamed.Path())

	_, err = renamed.Sections()
	assert.ErrorIs(t, err, keyswap.ErrNotLoaded)
}

func TestPreviewImages(t *testing.T) {
	dir := t.TempDir()
	m := makeMod(t, dir, "Pictures", map[string]string{
		"cover.jpg":          "",
		"preview.png":        "",
		".modkeep_cover.png": "",
		"preview.txt":        "",
		"other.png":          "",
	})

	images, err := m.PreviewImages()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(m.Path(), ".modkeep_cover.png"),
		filepath.Join(m.Path(), "preview.png"),
		filepath.Join(m.Path(), "cover.jpg"),
	}, images)
}
