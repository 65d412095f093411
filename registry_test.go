package pvars

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryDedupsByResolvedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vars.godb")

	reg := NewRegistry()
	first, err := reg.GetOrCreate(path)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	// A non-canonical spelling of the same location resolves to the same
	// context.
	second, err := reg.GetOrCreate(filepath.Join(dir, ".", "vars.godb"))
	if err != nil {
		t.Fatalf("GetOrCreate relative: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same context for equivalent paths")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one context, got %d", reg.Len())
	}
}

func TestRegistryFirstConfigurationWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")

	reg := NewRegistry()
	first, err := reg.GetOrCreate(path, WithFormat(FormatJSON), WithAutoSave(false))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := reg.GetOrCreate(path, WithFormat(FormatTabular), WithAutoSave(true))
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if first != second {
		t.Fatalf("expected dedup to the first context")
	}
	if second.AutoSave() {
		t.Fatalf("expected first caller's auto-save flag to stick")
	}
	if second.Store().Format() != FormatJSON {
		t.Fatalf("expected first caller's format to stick, got %s", second.Store().Format())
	}
}

func TestRegistryDefaultsApplyToEveryContext(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(WithFormat(FormatJSON))
	ctx, err := reg.GetOrCreate(filepath.Join(dir, "vars.db"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if ctx.Store().Format() != FormatJSON {
		t.Fatalf("expected registry default format, got %s", ctx.Store().Format())
	}
}

func TestRegistryInvalidLocation(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.GetOrCreate(""); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation for empty path, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "no-such-dir", "vars.godb")
	if _, err := reg.GetOrCreate(missing); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation for missing parent, got %v", err)
	}
}

func TestRegistryShutdownSweep(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(WithFormat(FormatJSON))
	saved, err := reg.GetOrCreate(filepath.Join(dir, "saved.json"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := saved.Register("count", 0, func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	skipped, err := reg.GetOrCreate(filepath.Join(dir, "skipped.json"), WithAutoSave(false))
	if err != nil {
		t.Fatalf("GetOrCreate skipped: %v", err)
	}
	if _, err := skipped.Register("count", 0, func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("Register skipped: %v", err)
	}

	if err := reg.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Fatalf("expected auto-save context persisted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "skipped.json")); !os.IsNotExist(err) {
		t.Fatalf("expected opted-out context to be skipped")
	}
}

func TestRegistryShutdownAttemptsEveryContext(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(WithFormat(FormatJSON))
	broken, err := reg.GetOrCreate(filepath.Join(dir, "broken.json"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	boom := errors.New("boom")
	if _, err := broken.Register("bad", nil, func() (any, error) { return nil, boom }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	healthy, err := reg.GetOrCreate(filepath.Join(dir, "healthy.json"))
	if err != nil {
		t.Fatalf("GetOrCreate healthy: %v", err)
	}
	if _, err := healthy.Register("count", 0, func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("Register healthy: %v", err)
	}

	err = reg.Shutdown()
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error surfaced, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.json") {
		t.Fatalf("expected failing path in error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "healthy.json")); statErr != nil {
		t.Fatalf("expected healthy context saved despite earlier failure: %v", statErr)
	}
}

func TestRegistryShutdownRunsOnce(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry(WithFormat(FormatJSON))
	ctx, err := reg.GetOrCreate(filepath.Join(dir, "vars.json"))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	calls := 0
	if _, err := ctx.Register("count", 0, func() (any, error) {
		calls++
		return calls, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := reg.Shutdown(); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := reg.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one sweep, callbacks ran %d times", calls)
	}
}
