package pvars

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCallerResolverDerivesPathFromSource(t *testing.T) {
	path, err := (CallerResolver{}).Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "locator_test.godb" {
		t.Fatalf("expected path named after calling file, got %q", path)
	}
}

func TestCallerResolverCustomExtension(t *testing.T) {
	path, err := (CallerResolver{Ext: ".json"}).Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(path, "locator_test.json") {
		t.Fatalf("expected custom extension, got %q", path)
	}
}

func TestCallerResolverDeterministic(t *testing.T) {
	first, err := (CallerResolver{}).Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := (CallerResolver{}).Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical paths, got %q and %q", first, second)
	}
}

func TestStaticResolver(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vars.godb")

	path, err := StaticResolver(base).Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != base {
		t.Fatalf("expected fixed path %q, got %q", base, path)
	}

	nested, err := StaticResolver(base).Resolve("data")
	if err != nil {
		t.Fatalf("Resolve with extra: %v", err)
	}
	want := filepath.Join(filepath.Dir(base), "data", "vars.godb")
	if nested != want {
		t.Fatalf("expected %q, got %q", want, nested)
	}

	if _, err := StaticResolver("").Resolve(""); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation for empty resolver, got %v", err)
	}
}
