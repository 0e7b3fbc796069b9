// Package filter selects, orders and limits mod listings. Mods can be
// filtered by folder-name pattern, enabled state, payload size and the date
// they were added.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SortField specifies the field to sort mods by.
type SortField int

const (
	// SortName sorts by folder name without disabled prefix.
	SortName SortField = iota
	// SortSize sorts by payload size.
	SortSize
	// SortAdded sorts by the date the mod was added.
	SortAdded
)

const (
	sortFieldName  = "name"
	sortFieldSize  = "size"
	sortFieldAdded = "added"
)

// String returns the string representation of the sort field.
func (s SortField) String() string {
	switch s {
	case SortSize:
		return sortFieldSize
	case SortAdded:
		return sortFieldAdded
	default:
		return sortFieldName
	}
}

// ErrInvalidSortField indicates that the sort field string could not be parsed.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField parses "name", "size" or "added", ignoring case.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(s) {
	case sortFieldName:
		return SortName, nil
	case sortFieldSize:
		return SortSize, nil
	case sortFieldAdded:
		return SortAdded, nil
	default:
		return SortName, fmt.Errorf("%w: %q", ErrInvalidSortField, s)
	}
}

// State selects mods by enabled state.
type State int

const (
	// StateAll matches every mod.
	StateAll State = iota
	// StateEnabled matches enabled mods.
	StateEnabled
	// StateDisabled matches disabled mods.
	StateDisabled
)

// ErrInvalidState indicates that the state string could not be parsed.
var ErrInvalidState = errors.New("invalid state")

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "all"
	}
}

// ParseState parses "all", "enabled" or "disabled", ignoring case. An empty
// string is StateAll.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StateAll, nil
	case "enabled", "on":
		return StateEnabled, nil
	case "disabled", "off":
		return StateDisabled, nil
	default:
		return StateAll, fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}

// ModInfo is the listing view of one mod.
type ModInfo struct {
	// ID is the repository entry ID.
	ID string

	// Object is the moddable object the mod belongs to.
	Object string

	// Name is the folder name, including any disabled prefix.
	Name string

	// DisplayName is the custom name, or the folder name without prefix.
	DisplayName string

	// Path is the absolute folder path.
	Path string

	// Enabled is the state derived from the folder name.
	Enabled bool

	// Size is the payload size in bytes.
	Size int64

	// AddedAt is when the mod was added. Zero when unknown.
	AddedAt time.Time
}
