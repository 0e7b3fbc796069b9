package library

import (
	"sort"

	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
	"github.com/jamesainslie/modkeep/pkg/modkeep/repository"
)

// DuplicateGroup is a set of tracked mods with identical content.
type DuplicateGroup struct {
	Hash    string
	Size    int64
	Entries []*repository.Entry
}

// Duplicates groups tracked mods across all objects by content hash and
// returns the groups with more than one member, largest first. Mods that
// cannot be hashed are logged and skipped.
func (l *Library) Duplicates() ([]DuplicateGroup, error) {
	log := logging.Get("library")

	byHash := make(map[string]*DuplicateGroup)
	for _, repo := range l.Repositories() {
		for _, e := range repo.Entries() {
			hash, err := e.Mod().ContentHash()
			if err != nil {
				log.Warn("hashing mod", "path", e.Mod().Path(), "error", err)
				continue
			}
			g, ok := byHash[hash]
			if !ok {
				size, _ := e.Mod().Size()
				g = &DuplicateGroup{Hash: hash, Size: size}
				byHash[hash] = g
			}
			g.Entries = append(g.Entries, e)
		}
	}

	var groups []DuplicateGroup
	for _, g := range byHash {
		if len(g.Entries) > 1 {
			groups = append(groups, *g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		return groups[i].Hash < groups[j].Hash
	})
	return groups, nil
}

// ArchiveFor returns the archive file recorded for m's content.
func (l *Library) ArchiveFor(m *mod.Mod) (string, bool, error) {
	if l.cfg.Archive == nil {
		return "", false, ErrNoArchiveCache
	}
	hash, err := m.ContentHash()
	if err != nil {
		return "", false, err
	}
	return l.cfg.Archive.Lookup(hash)
}

// RecordArchive remembers archivePath as the source of m's content.
func (l *Library) RecordArchive(m *mod.Mod, archivePath string) error {
	if l.cfg.Archive == nil {
		return ErrNoArchiveCache
	}
	hash, err := m.ContentHash()
	if err != nil {
		return err
	}
	return l.cfg.Archive.Put(hash, archivePath)
}
