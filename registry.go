package pvars

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Registry deduplicates live Contexts by resolved storage path. Construct
// one explicitly at process start and pass it to whatever needs it; entries
// are appended for the process lifetime and never removed.
type Registry struct {
	mu       sync.Mutex
	defaults []Option
	contexts []*Context

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewRegistry constructs an empty registry. The supplied options become the
// defaults for every context it creates.
func NewRegistry(defaults ...Option) *Registry {
	return &Registry{defaults: defaults}
}

// GetOrCreate returns the live Context for path, creating it on first
// request. Repeated calls for the same resolved path return the same
// instance with the first caller's configuration; later option arguments
// are ignored.
func (r *Registry) GetOrCreate(path string, opts ...Option) (*Context, error) {
	resolved, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ctx := range r.contexts {
		if ctx.Path() == resolved {
			return ctx, nil
		}
	}

	cfg := applyOptions(defaultConfig(), append(append([]Option{}, r.defaults...), opts...))
	ctx, err := newContext(resolved, cfg)
	if err != nil {
		return nil, err
	}
	r.contexts = append(r.contexts, ctx)
	return ctx, nil
}

// Contexts returns the live contexts in creation order.
func (r *Registry) Contexts() []*Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Context(nil), r.contexts...)
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// Shutdown saves every context whose auto-save flag is set. Every context is
// attempted even when earlier ones fail; failures are aggregated into one
// joined error. A second call is a no-op returning the first result.
func (r *Registry) Shutdown() error {
	r.shutdownOnce.Do(func() {
		var errs []error
		for _, ctx := range r.Contexts() {
			if !ctx.AutoSave() {
				continue
			}
			if err := ctx.Save(); err != nil {
				errs = append(errs, fmt.Errorf("pvars: shutdown save %s: %w", ctx.Path(), err))
			}
		}
		r.shutdownErr = errors.Join(errs...)
	})
	return r.shutdownErr
}

// canonicalPath resolves path to its absolute cleaned form, the dedup key
// for the registry, and validates that the parent directory exists.
func canonicalPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path must not be empty", ErrInvalidLocation)
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	parent := filepath.Dir(resolved)
	info, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidLocation, parent, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidLocation, parent)
	}
	return resolved, nil
}
