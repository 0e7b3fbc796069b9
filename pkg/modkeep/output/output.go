// Package output renders mod listings in the formats the CLI offers
// (pretty, plain, tsv, csv, markdown, json, jsonl, yaml, paths).
//
// Formatters are looked up by name in a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/modkeep/pkg/modkeep/filter"
)

// ModRow is one mod in a listing.
type ModRow struct {
	ID          string    `json:"id" yaml:"id"`
	Object      string    `json:"object" yaml:"object"`
	Name        string    `json:"name" yaml:"name"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	Path        string    `json:"path" yaml:"path"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	Size        int64     `json:"size" yaml:"size"`
	SizeHuman   string    `json:"size_human" yaml:"size_human"`
	AddedAt     time.Time `json:"added_at,omitempty" yaml:"added_at,omitempty"`
}

// RowFrom converts a filter listing entry into a row.
func RowFrom(m filter.ModInfo) ModRow {
	return ModRow{
		ID:          m.ID,
		Object:      m.Object,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Path:        m.Path,
		Enabled:     m.Enabled,
		Size:        m.Size,
		SizeHuman:   humanize.IBytes(uint64(max(m.Size, 0))),
		AddedAt:     m.AddedAt,
	}
}

// Result is everything a formatter renders.
type Result struct {
	// Root is the mods root the listing came from.
	Root string `json:"root" yaml:"root"`

	// Mods are the listed mods in display order.
	Mods []ModRow `json:"mods" yaml:"mods"`

	// Warnings are problems met while building the listing.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TotalSize returns the sum of all mod sizes.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, m := range r.Mods {
		total += m.Size
	}
	return total
}

// EnabledCount returns the number of enabled mods.
func (r *Result) EnabledCount() int {
	n := 0
	for _, m := range r.Mods {
		if m.Enabled {
			n++
		}
	}
	return n
}

// Formatter renders a Result.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry maps formatter names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds or replaces a formatter.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns the default registry's formatter names.
func Available() []string {
	return DefaultRegistry.Available()
}

func stateLabel(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
