package recordstore

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/zero-day-ai/graphkit/taxonomy"
)

var (
	// ErrInvalidHandle is returned when a handle does not name a record of the store.
	ErrInvalidHandle = errors.New("invalid record handle")

	// ErrNoCurrentRecord is returned when the cursor is not positioned on a record.
	ErrNoCurrentRecord = errors.New("no current record")
)

// Record is one row of a store. Values are strings, numbers, booleans or
// *taxonomy.SemanticType.
type Record map[string]any

// Clone returns a copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Handle names a record appended to a Store.
type Handle int

// Store is an ordered, append-only sequence of records with one read cursor.
//
// The zero value is an empty store ready for use.
type Store struct {
	records []Record
	pos     int // the current record is pos-1
	done    bool
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Add appends an empty record and returns its handle.
func (s *Store) Add() Handle {
	s.records = append(s.records, Record{})
	return Handle(len(s.records) - 1)
}

// Append adds a copy of r and returns its handle.
func (s *Store) Append(r Record) Handle {
	h := s.Add()
	maps.Copy(s.records[h], r)
	return h
}

// Set writes a value on the record named by h, replacing any previous value.
func (s *Store) Set(h Handle, key string, value any) error {
	if int(h) < 0 || int(h) >= len(s.records) {
		return fmt.Errorf("%w: %d (store has %d records)", ErrInvalidHandle, h, len(s.records))
	}
	s.records[h][key] = value
	return nil
}

// Reset rewinds the cursor to before the first record.
func (s *Store) Reset() {
	s.pos = 0
	s.done = false
}

// Next advances the cursor and reports whether it is on a record. Records
// appended before the pass ends are visited by the same pass; once Next has
// returned false it keeps doing so until Reset.
func (s *Store) Next() bool {
	if s.done {
		return false
	}
	if s.pos < len(s.records) {
		s.pos++
		return true
	}
	s.done = true
	return false
}

// Get returns the value of key in the current record, or nil when the key is
// unset or the cursor is not on a record.
func (s *Store) Get(key string) any {
	r, err := s.Current()
	if err != nil {
		return nil
	}
	return r[key]
}

// GetString returns the value of key in the current record as text.
// Semantic types render as their name; nil renders as "".
func (s *Store) GetString(key string) string {
	return String(s.Get(key))
}

// Current returns the record under the cursor. The record is live; writes
// through it are visible to later Get calls.
func (s *Store) Current() (Record, error) {
	if s.done || s.pos < 1 {
		return nil, ErrNoCurrentRecord
	}
	return s.records[s.pos-1], nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of every record in insertion order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Keys returns the sorted union of keys across all records.
func (s *Store) Keys() []string {
	seen := make(map[string]struct{})
	for _, r := range s.records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// String renders a record value as text.
func String(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case *taxonomy.SemanticType:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int converts a numeric record value to an int. Decoded stores hold numbers
// as float64, so whole floats are accepted.
func Int(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
