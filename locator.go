package pvars

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LocationResolver maps a caller identity onto a canonical absolute storage
// path. Resolution must be deterministic for a given caller so repeated
// requests dedup to the same Context.
type LocationResolver interface {
	Resolve(extra string) (string, error)
}

// CallerResolver derives the storage path from the calling source file:
// <caller dir>/<extra>/<caller stem><ext>. The directory is created when
// missing.
type CallerResolver struct {
	// Skip counts additional stack frames between the caller and Resolve,
	// for wrappers that resolve on someone else's behalf.
	Skip int
	// Ext is the file extension, ".godb" when empty.
	Ext string
}

// Resolve implements LocationResolver.
func (r CallerResolver) Resolve(extra string) (string, error) {
	_, file, _, ok := runtime.Caller(r.Skip + 1)
	if !ok {
		return "", fmt.Errorf("%w: cannot identify caller", ErrInvalidLocation)
	}

	dir := filepath.Join(filepath.Dir(file), extra)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidLocation, dir, err)
	}

	ext := r.Ext
	if ext == "" {
		ext = ".godb"
	}
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	path, err := filepath.Abs(filepath.Join(dir, stem+ext))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return path, nil
}

// StaticResolver resolves to one fixed path, joined with extra when given.
type StaticResolver string

// Resolve implements LocationResolver.
func (r StaticResolver) Resolve(extra string) (string, error) {
	if r == "" {
		return "", fmt.Errorf("%w: path must not be empty", ErrInvalidLocation)
	}
	path := string(r)
	if extra != "" {
		path = filepath.Join(filepath.Dir(path), extra, filepath.Base(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return abs, nil
}
