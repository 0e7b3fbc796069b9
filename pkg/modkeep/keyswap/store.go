// Package keyswap reads and surgically rewrites the key-swap sections
// embedded in a mod's merged config file. Everything outside the touched
// lines is written back byte for byte.
package keyswap

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

// DefaultLookahead is the number of meaningful lines scanned below a
// section header.
const DefaultLookahead = 10

// Option configures a Store.
type Option func(*Store)

// WithLookahead sets the scan window below each header. Values below one
// are ignored.
func WithLookahead(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.lookahead = n
		}
	}
}

// Store caches the key-swap sections of one merged config file.
type Store struct {
	path      string
	lookahead int

	mu       sync.Mutex
	sections []Section
	loaded   bool
}

// NewStore returns a store for the merged config at path. Nothing is read
// until Load.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, lookahead: DefaultLookahead}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the merged config path.
func (s *Store) Path() string {
	return s.path
}

// Load parses the file and replaces the cache. Zero sections is a valid
// result. A read failure leaves the cache untouched.
func (s *Store) Load() ([]Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.read()
	if err != nil {
		return nil, err
	}
	s.sections = parse(lines, s.lookahead)
	s.loaded = true
	return s.copySections(), nil
}

// Sections returns the cached sections, or ErrNotLoaded.
func (s *Store) Sections() ([]Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return s.copySections(), nil
}

// Invalidate drops the cache. Call it when the file may have changed.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections = nil
	s.loaded = false
}

func (s *Store) copySections() []Section {
	out := make([]Section, len(s.sections))
	copy(out, s.sections)
	return out
}

func (s *Store) read() ([]line, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading merged config: %w", err)
	}
	return splitLines(data), nil
}

// Save writes the forward and backward hotkeys of sections back to the
// file. sections must correspond one to one, in order, with the loaded
// sections. All edits are planned in memory first; the file is only
// truncated and rewritten once every section has a safe plan. The cache is
// refreshed from the rewritten file.
func (s *Store) Save(sections []Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}
	if len(sections) != len(s.sections) {
		return fmt.Errorf("%w: %d sections given, %d loaded", ErrFormatMismatch, len(sections), len(s.sections))
	}
	if len(sections) == 0 {
		return nil
	}

	lines, err := s.read()
	if err != nil {
		return err
	}

	plans := make([]plan, len(sections))
	for i, updated := range sections {
		cached := s.sections[i]
		if !strings.EqualFold(updated.name, cached.name) {
			return fmt.Errorf("%w: section %d is [%s], loaded [%s]", ErrFormatMismatch, i, updated.name, cached.name)
		}
		if cached.headerLine >= len(lines) || strings.TrimSpace(lines[cached.headerLine].text) != cached.header {
			return fmt.Errorf("%w: header %s moved since load", ErrFormatMismatch, cached.header)
		}

		p, err := s.plan(lines, cached.headerLine, updated)
		if err != nil {
			return fmt.Errorf("section [%s]: %w", cached.name, err)
		}
		plans[i] = p
	}

	changed := false
	for i := len(plans) - 1; i >= 0; i-- {
		if plans[i].apply(&lines) {
			changed = true
		}
	}

	if changed {
		if err := s.write(lines); err != nil {
			return err
		}
		logging.Get("keyswap").Info("saved key swaps", "file", s.path, "sections", len(sections))
	}

	reparsed := parse(lines, s.lookahead)
	if len(reparsed) != len(s.sections) {
		s.sections = reparsed
		return fmt.Errorf("%w: %d sections after save, expected %d", ErrFormatMismatch, len(reparsed), len(sections))
	}
	s.sections = reparsed
	return nil
}

func (s *Store) write(lines []line) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("opening merged config: %w", err)
	}
	if _, err := f.Write(joinLines(lines)); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing merged config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing merged config: %w", err)
	}
	return nil
}

// plan holds the edits for one section. Indices refer to the line list as
// read, before any plan is applied.
type plan struct {
	overwrite map[int]string
	insertAt  int
	insert    string
	remove    []int
}

// keyLines is what a section window holds for one key.
type keyLines struct {
	first int
	stale []int
}

// plan computes the edits that give the section at header the hotkeys of
// updated. Values that already match leave their lines untouched.
func (s *Store) plan(lines []line, header int, updated Section) (plan, error) {
	p := plan{overwrite: make(map[int]string), insertAt: -1}

	fwd := keyLines{first: -1}
	back := keyLines{first: -1}

	seen := 0
	for i := header + 1; i < len(lines) && seen < s.lookahead; i++ {
		text := lines[i].text
		if ignorable(text) {
			continue
		}
		if _, ok := sectionName(text); ok {
			break
		}
		seen++

		switch {
		case isKey(text, ForwardKeyName):
			fwd.add(i)
		case isKey(text, BackwardKeyName):
			back.add(i)
		}
	}

	type want struct {
		value   string
		name    string
		own     keyLines
		sibling keyLines
	}
	wants := []want{
		{value: updated.ForwardKey(), name: ForwardKeyName, own: fwd, sibling: back},
		{value: updated.BackwardKey(), name: BackwardKeyName, own: back, sibling: fwd},
	}

	missing := 0
	for _, w := range wants {
		if w.value != "" && w.own.first < 0 {
			missing++
		}
	}
	if missing > 1 {
		return plan{}, fmt.Errorf("%w: both keys would be inserted", ErrWriteSafety)
	}

	pruned := 0
	for _, w := range wants {
		if w.value == "" {
			continue
		}
		if strings.ContainsAny(w.value, "\r\n") {
			return plan{}, fmt.Errorf("%w: %q", ErrInvalidValue, w.value)
		}

		if w.own.first >= 0 {
			current, _ := splitPair(lines[w.own.first].text)
			if current.Value == w.value {
				continue
			}
			p.overwrite[w.own.first] = replaceValue(lines[w.own.first].text, w.value)
		} else {
			if w.sibling.first < 0 {
				return plan{}, fmt.Errorf("%w: no %s or %s line below header", ErrFormatMismatch, ForwardKeyName, BackwardKeyName)
			}
			sibling := lines[w.sibling.first].text
			p.insertAt = w.sibling.first + 1
			p.insert = indent(sibling) + w.name + " = " + w.value
		}

		if len(w.own.stale) > 0 {
			pruned++
			p.remove = append(p.remove, w.own.stale...)
		}
	}

	if pruned > 1 {
		return plan{}, fmt.Errorf("%w: stale lines for both keys", ErrWriteSafety)
	}
	return p, nil
}

func (k *keyLines) add(i int) {
	if k.first < 0 {
		k.first = i
		return
	}
	k.stale = append(k.stale, i)
}

// apply performs the plan on lines. Structural edits run in descending
// index order so earlier indices stay valid. It reports whether anything
// changed.
func (p plan) apply(lines *[]line) bool {
	ls := *lines
	changed := false

	for i, text := range p.overwrite {
		ls[i].text = text
		changed = true
	}

	type edit struct {
		index  int
		remove bool
	}
	var edits []edit
	for _, i := range p.remove {
		edits = append(edits, edit{index: i, remove: true})
	}
	if p.insertAt >= 0 {
		edits = append(edits, edit{index: p.insertAt})
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].index != edits[j].index {
			return edits[i].index > edits[j].index
		}
		return edits[i].remove && !edits[j].remove
	})

	for _, e := range edits {
		changed = true
		if e.remove {
			ls = append(ls[:e.index], ls[e.index+1:]...)
			continue
		}

		prev := &ls[e.index-1]
		eol := prev.eol
		if eol == "" {
			prev.eol = newline(ls)
		}
		ls = append(ls, line{})
		copy(ls[e.index+1:], ls[e.index:])
		ls[e.index] = line{text: p.insert, eol: eol}
	}

	*lines = ls
	return changed
}
