package filter

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
)

// Filter defines criteria for filtering, sorting and limiting mod lists.
type Filter struct {
	// Include contains name patterns. If non-empty, mods must match one.
	Include []string

	// Exclude contains name patterns. Matching mods are excluded.
	Exclude []string

	// State selects enabled or disabled mods.
	State State

	// MinSize is the minimum payload size in bytes.
	MinSize int64

	// OlderThan excludes mods added more recently than this duration ago.
	OlderThan time.Duration

	// NewerThan excludes mods added longer ago than this duration.
	NewerThan time.Duration

	SortBy         SortField
	SortDescending bool

	// Limit is the maximum number of mods to return. 0 means unlimited.
	Limit int

	include []glob.Glob
	exclude []glob.Glob
	now     func() time.Time
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter sorted by name ascending with no limit. Patterns are
// compiled once; an invalid pattern is an error.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{SortBy: SortName, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}

	var err error
	if f.include, err = compile(f.Include); err != nil {
		return nil, err
	}
	if f.exclude, err = compile(f.Exclude); err != nil {
		return nil, err
	}
	return f, nil
}

// compile builds case-insensitive patterns matched against the folder name
// without disabled prefix.
func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// WithLimit sets the maximum number of mods to return.
func WithLimit(limit int) Option {
	return func(f *Filter) {
		f.Limit = max(limit, 0)
	}
}

// WithMinSize sets the minimum payload size.
func WithMinSize(n int64) Option {
	return func(f *Filter) {
		f.MinSize = max(n, 0)
	}
}

// WithInclude sets the include patterns.
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = patterns
	}
}

// WithExclude sets the exclude patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithState selects mods by enabled state.
func WithState(s State) Option {
	return func(f *Filter) {
		f.State = s
	}
}

// WithOlderThan sets the minimum age.
func WithOlderThan(d time.Duration) Option {
	return func(f *Filter) {
		f.OlderThan = d
	}
}

// WithNewerThan sets the maximum age.
func WithNewerThan(d time.Duration) Option {
	return func(f *Filter) {
		f.NewerThan = d
	}
}

// WithSortBy sets the sort field.
func WithSortBy(field SortField) Option {
	return func(f *Filter) {
		f.SortBy = field
	}
}

// WithSortDescending reverses the sort order.
func WithSortDescending(desc bool) Option {
	return func(f *Filter) {
		f.SortDescending = desc
	}
}

// Match reports whether m satisfies every criterion.
func (f *Filter) Match(m ModInfo) bool {
	switch f.State {
	case StateEnabled:
		if !m.Enabled {
			return false
		}
	case StateDisabled:
		if m.Enabled {
			return false
		}
	}

	if f.MinSize > 0 && m.Size < f.MinSize {
		return false
	}
	if !f.matchAge(m) {
		return false
	}

	name := strings.ToLower(mod.EnabledName(m.Name))
	if matchAny(f.exclude, name) {
		return false
	}
	return len(f.include) == 0 || matchAny(f.include, name)
}

// matchAge applies age limits. Mods without an added date only pass when
// no age limit is set.
func (f *Filter) matchAge(m ModInfo) bool {
	if f.OlderThan <= 0 && f.NewerThan <= 0 {
		return true
	}
	if m.AddedAt.IsZero() {
		return false
	}
	now := f.now()
	if f.OlderThan > 0 && m.AddedAt.After(now.Add(-f.OlderThan)) {
		return false
	}
	if f.NewerThan > 0 && m.AddedAt.Before(now.Add(-f.NewerThan)) {
		return false
	}
	return true
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy of mods. Ties fall back to name.
func (f *Filter) Sort(mods []ModInfo) []ModInfo {
	sorted := slices.Clone(mods)
	slices.SortStableFunc(sorted, func(a, b ModInfo) int {
		var result int
		switch f.SortBy {
		case SortSize:
			result = cmp.Compare(a.Size, b.Size)
		case SortAdded:
			result = a.AddedAt.Compare(b.AddedAt)
		}
		if result == 0 {
			result = cmp.Compare(strings.ToLower(mod.EnabledName(a.Name)), strings.ToLower(mod.EnabledName(b.Name)))
		}
		if f.SortDescending {
			return -result
		}
		return result
	})
	return sorted
}

// Apply filters, sorts and limits mods.
func (f *Filter) Apply(mods []ModInfo) []ModInfo {
	var matched []ModInfo
	for _, m := range mods {
		if f.Match(m) {
			matched = append(matched, m)
		}
	}

	sorted := f.Sort(matched)
	if f.Limit > 0 && len(sorted) > f.Limit {
		return sorted[:f.Limit]
	}
	return sorted
}
