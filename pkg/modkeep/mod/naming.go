package mod

import "strings"

// Disabled-state folder prefixes. Both spellings are recognized when reading;
// DisabledPrefix is the one written.
const (
	DisabledPrefix    = "DISABLED_"
	AltDisabledPrefix = "DISABLED"
)

// OwnedPrefix marks files modkeep keeps inside a mod folder.
const OwnedPrefix = ".modkeep_"

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// IsDisabledName reports whether a folder name carries a disabled prefix.
func IsDisabledName(name string) bool {
	return hasPrefixFold(name, DisabledPrefix) || hasPrefixFold(name, AltDisabledPrefix)
}

// EnabledName strips a leading disabled prefix. Names without one are
// returned unchanged.
func EnabledName(name string) string {
	switch {
	case hasPrefixFold(name, DisabledPrefix):
		return name[len(DisabledPrefix):]
	case hasPrefixFold(name, AltDisabledPrefix):
		return name[len(AltDisabledPrefix):]
	default:
		return name
	}
}

// DisabledName returns name with DisabledPrefix. A name using the
// alternative prefix is rewritten to the canonical one.
func DisabledName(name string) string {
	switch {
	case hasPrefixFold(name, DisabledPrefix):
		return name
	case hasPrefixFold(name, AltDisabledPrefix):
		return DisabledPrefix + name[len(AltDisabledPrefix):]
	default:
		return DisabledPrefix + name
	}
}

// SameModName compares two folder names ignoring case and disabled prefix.
func SameModName(a, b string) bool {
	return strings.EqualFold(EnabledName(a), EnabledName(b))
}

// IsOwnedFile reports whether a file name belongs to modkeep rather than
// to the mod payload.
func IsOwnedFile(name string) bool {
	return hasPrefixFold(name, OwnedPrefix)
}
