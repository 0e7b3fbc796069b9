package mod

import "errors"

var (
	// ErrNotAbsolute is returned when a mod or target path is relative.
	ErrNotAbsolute = errors.New("path must be absolute")

	// ErrNotDirectory is returned when a mod path is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrInvalidName is returned for folder names that are empty or
	// contain a path separator.
	ErrInvalidName = errors.New("invalid folder name")

	// ErrInvalidSettings is returned when the settings sidecar cannot be parsed.
	ErrInvalidSettings = errors.New("invalid mod settings")

	// ErrNoMergedConfig is returned when a mod has no merged config file.
	ErrNoMergedConfig = errors.New("mod has no merged config")
)
