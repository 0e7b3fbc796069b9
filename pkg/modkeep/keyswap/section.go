package keyswap

import (
	"strings"
)

// Key names recognized inside a key-swap section.
const (
	ForwardKeyName   = "key"
	BackwardKeyName  = "back"
	TypeKeyName      = "type"
	SwapVarKeyName   = "$swapvar"
	ConditionKeyName = "condition"
)

// UnknownType is returned by Type when a section has no type line.
const UnknownType = "Unknown"

// Pair is one key = value line of a section, as parsed.
type Pair struct {
	Key   string
	Value string
}

// Section is a parsed key-swap section. Sections are values; the With
// setters return modified copies for passing to Store.Save.
type Section struct {
	name       string
	header     string
	headerLine int
	pairs      []Pair
}

// Name returns the section name without brackets.
func (s Section) Name() string {
	return s.name
}

// Pairs returns the section's key/value pairs in file order.
func (s Section) Pairs() []Pair {
	return append([]Pair(nil), s.pairs...)
}

// Value returns the first value for key, compared case-insensitively.
func (s Section) Value(key string) (string, bool) {
	for _, p := range s.pairs {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// ForwardKey returns the forward hotkey, or "" when unset.
func (s Section) ForwardKey() string {
	v, _ := s.Value(ForwardKeyName)
	return v
}

// BackwardKey returns the backward hotkey, or "" when unset.
func (s Section) BackwardKey() string {
	v, _ := s.Value(BackwardKeyName)
	return v
}

// Type returns the section type tag, UnknownType when absent.
func (s Section) Type() string {
	if v, ok := s.Value(TypeKeyName); ok && v != "" {
		return v
	}
	return UnknownType
}

// Variants returns the number of comma-separated $swapvar values.
func (s Section) Variants() (int, bool) {
	v, ok := s.Value(SwapVarKeyName)
	if !ok {
		return 0, false
	}
	return len(strings.Split(v, ",")), true
}

// Condition returns the condition expression, or "" when unset.
func (s Section) Condition() string {
	v, _ := s.Value(ConditionKeyName)
	return v
}

// WithForwardKey returns a copy of s with the forward hotkey set.
func (s Section) WithForwardKey(value string) Section {
	return s.with(ForwardKeyName, value)
}

// WithBackwardKey returns a copy of s with the backward hotkey set.
func (s Section) WithBackwardKey(value string) Section {
	return s.with(BackwardKeyName, value)
}

func (s Section) with(key, value string) Section {
	pairs := s.Pairs()
	for i, p := range pairs {
		if strings.EqualFold(p.Key, key) {
			pairs[i].Value = value
			s.pairs = pairs
			return s
		}
	}
	s.pairs = append(pairs, Pair{Key: key, Value: value})
	return s
}
