// Package config provides configuration management for modkeep.
package config

import "time"

// Default configuration values for modkeep.
const (
	// DefaultModsRoot is the mods root used when none is configured.
	DefaultModsRoot = "~/Mods"

	// DefaultSettingsFile is the per-mod settings sidecar name.
	DefaultSettingsFile = ".modkeep_settings.json"

	// DefaultLookahead is the number of meaningful lines scanned below a
	// key-swap section header.
	DefaultLookahead = 10

	// DefaultPairWindow is how long a rename waits for its matching create.
	DefaultPairWindow = 100 * time.Millisecond

	// DefaultSettle is how long events stay dropped after a suppression ends.
	DefaultSettle = 100 * time.Millisecond

	// DefaultRetentionDays is the default number of days to retain history.
	DefaultRetentionDays = 30
)
