package history

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("history record not found")

// Log stores records as JSON files in a directory.
type Log struct {
	dir string
	mu  sync.Mutex
}

// New returns a Log rooted at dir. The directory is created on first write.
func New(dir string) (*Log, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Log{dir: dir}, nil
}

// Dir returns the history directory.
func (l *Log) Dir() string {
	return l.dir
}

// Record persists one change and returns it.
func (l *Log) Record(op Op, object, from, to string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := &Record{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Op:        op,
		Object:    object,
		From:      from,
		To:        to,
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if err := l.write(rec); err != nil {
		return nil, fmt.Errorf("failed to write history record: %w", err)
	}
	return rec, nil
}

func (l *Log) write(rec *Record) error {
	path := filepath.Join(l.dir, rec.ID+".json")

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns records newest first. A limit of zero or less returns all.
func (l *Log) List(limit int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get returns the record with the given ID.
func (l *Log) Get(id string) (*Record, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.read(id + ".json")
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// Cleanup removes records older than retentionDays and returns how many
// were removed.
func (l *Log) Cleanup(retentionDays int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	records, err := l.readAll()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, rec.ID+".json")); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

// readAll returns every parsable record. Unparsable files are skipped.
func (l *Log) readAll() ([]Record, error) {
	files, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	records := []Record{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		rec, err := l.read(f.Name())
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (l *Log) read(name string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// generateID creates an ID like "enable-2024-06-15T10-30-00.123-abc123".
func generateID(op Op) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05.000")

	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		suffix = []byte(fmt.Sprintf("%06d", time.Now().Nanosecond()%1000000))
	}
	return fmt.Sprintf("%s-%s-%s", op, ts, hex.EncodeToString(suffix))
}
