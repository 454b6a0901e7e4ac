// Package file implements the flat-file persistence layer: one CSV file per
// entity under a data directory, with a fixed column set and append-oriented
// writes. Files written by older versions with fewer columns are backfilled
// with empty values on startup.
package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	usersFile       = "users.csv"
	connectionsFile = "notion_connections.csv"
	tasksFile       = "tasks.csv"
	tracksFile      = "tracks.csv"
	vocabFile       = "vocab.csv"
)

// schemas fixes the column set per entity. Column order is the on-disk
// order; readers index by header, so extra columns from the future are
// tolerated but never written.
var schemas = map[string][]string{
	usersFile:       {"user_id", "login"},
	connectionsFile: {"user_id", "connection_type", "value"},
	tasksFile: {"name", "sphere_text", "sphere_page_id", "start_datetime",
		"end_datetime", "type", "project", "chatGPT_comment", "csat", "user_id"},
	tracksFile: {"user_id", "track_type", "youtube_url", "local_path"},
	vocabFile: {"id", "user_id", "phrase", "context", "explain_en_phrase",
		"explain_en_context", "explain_ru", "created_at"},
}

// Store is the CSV-backed store. One mutex serializes all file access;
// the write volume here is one small batch per user message.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore opens (and if needed initializes) the store under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir}
	for name := range schemas {
		if err := s.ensureFile(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// ensureFile creates a missing file with its header, and backfills missing
// columns in an existing one.
func (s *Store) ensureFile(name string) error {
	schema := schemas[name]
	path := s.path(name)

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		return s.writeAllLocked(name, nil)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	header, rows, err := s.readRaw(name)
	if err != nil {
		return err
	}
	// Rewrite when the on-disk header differs from the schema in any way:
	// missing columns get backfilled empty, and column order is normalized
	// so appends can rely on it.
	if len(header) == len(schema) {
		same := true
		for i := range schema {
			if header[i] != schema[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return s.writeAllLocked(name, rows)
}

// readRaw reads the file as header + row maps keyed by the on-disk header.
func (s *Store) readRaw(name string) ([]string, []map[string]string, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// readAll returns all rows keyed by the schema columns.
func (s *Store) readAll(name string) ([]map[string]string, error) {
	_, rows, err := s.readRaw(name)
	return rows, err
}

// writeAllLocked rewrites the whole file with the schema header. Caller
// holds the mutex (or is in single-threaded startup).
func (s *Store) writeAllLocked(name string, rows []map[string]string) error {
	schema := schemas[name]
	tmp := s.path(name) + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(schema); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", name, err)
	}
	for _, row := range rows {
		rec := make([]string, len(schema))
		for i, col := range schema {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("write row %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp, s.path(name))
}

// appendRows appends rows without rewriting the file.
func (s *Store) appendRows(name string, rows []map[string]string) error {
	schema := schemas[name]

	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range rows {
		rec := make([]string, len(schema))
		for i, col := range schema {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("append row %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return nil
}
