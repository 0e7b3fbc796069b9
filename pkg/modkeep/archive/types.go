package archive

import (
	"bytes"
	"encoding/gob"
	"strings"
	"time"
)

// keyPrefix namespaces archive records inside the store.
const keyPrefix = "archive\x00"

// Record is the cached location of the archive a mod was installed from.
type Record struct {
	Path    string
	Size    int64
	AddedAt time.Time
}

// Encode serializes the record using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a gob record.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// MakeKey returns the store key for a content hash. Hashes are hex and
// compared case-insensitively.
func MakeKey(hash string) []byte {
	return []byte(keyPrefix + strings.ToLower(hash))
}

// ParseKey returns the content hash of a store key.
func ParseKey(key []byte) string {
	return strings.TrimPrefix(string(key), keyPrefix)
}
