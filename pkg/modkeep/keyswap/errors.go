package keyswap

import "errors"

var (
	// ErrNotLoaded is returned by Sections before a successful Load.
	ErrNotLoaded = errors.New("key-swap sections not loaded")

	// ErrFormatMismatch is returned when the sections passed to Save do
	// not line up with the loaded sections or with the file on disk.
	ErrFormatMismatch = errors.New("key-swap format mismatch")

	// ErrWriteSafety is returned when a planned rewrite would produce an
	// inconsistent section. Nothing is written.
	ErrWriteSafety = errors.New("key-swap write safety violation")

	// ErrInvalidValue is returned for hotkey values that cannot be written
	// on a single line.
	ErrInvalidValue = errors.New("invalid key-swap value")
)
