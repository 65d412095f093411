package pvars

import (
	"fmt"
	"os"
)

// Store is a durable string-keyed mapping backed by one file. The in-memory
// mapping and the on-disk file are reconciled only at Sync points; writes
// accumulate in memory between them. Sync commits the whole mapping through
// a temp-file rename so the file is always either the prior complete state
// or the new complete state.
//
// A Store is not safe for concurrent use; its owning Context serializes
// access.
type Store struct {
	path    string
	format  Format
	options map[string]any
	values  map[string]any
}

// openStore loads the file at path when it exists, decoding with the
// configured format or, when none was configured, the detection policy.
// A detected format is adopted for subsequent writes so the next Sync does
// not silently rewrite the file in a different format.
func openStore(path string, format Format, formatSet bool, options map[string]any) (*Store, error) {
	store := &Store{
		path:    path,
		format:  format,
		options: options,
		values:  map[string]any{},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pvars: open %s: %w", path, err)
	}

	if formatSet {
		codec, err := codecFor(format)
		if err != nil {
			return nil, err
		}
		values, err := codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, err)
		}
		store.values = values
		return store, nil
	}

	values, detected, err := decodeDetect(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	store.values = values
	store.format = detected
	return store, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Format returns the format used for the next Sync.
func (s *Store) Format() Format {
	return s.format
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Set stores value under key in memory; the file is untouched until Sync.
func (s *Store) Set(key string, value any) {
	s.values[key] = value
}

// Delete removes key from the in-memory mapping.
func (s *Store) Delete(key string) {
	delete(s.values, key)
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	return sortedKeys(s.values)
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return len(s.values)
}

// Sync encodes the full mapping and commits it to the backing file via a
// temp-file write and an atomic rename. On any encode or write failure the
// temp file is removed and the previously committed file is left untouched.
func (s *Store) Sync() error {
	codec, err := codecFor(s.format)
	if err != nil {
		return err
	}
	data, err := codec.Encode(s.values, s.options)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("pvars: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("pvars: commit %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) setFormat(format Format) {
	s.format = format
}

func (s *Store) setOptions(options map[string]any) {
	s.options = options
}

func (s *Store) snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for key, value := range s.values {
		out[key] = value
	}
	return out
}
