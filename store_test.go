package pvars

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenStoreMissingPathStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.godb")

	store, err := openStore(path, FormatBinary, false, nil)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d keys", store.Len())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file before first sync")
	}
}

func TestStoreSyncAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")

	store, err := openStore(path, FormatJSON, true, nil)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	store.Set("count", json.Number("3"))
	store.Set("name", "widget")
	if err := store.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	reloaded, err := openStore(path, FormatJSON, true, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, _ := reloaded.Get("count"); got != json.Number("3") {
		t.Fatalf("expected stored count, got %#v", got)
	}
	if got, _ := reloaded.Get("name"); got != "widget" {
		t.Fatalf("expected stored name, got %#v", got)
	}
}

func TestStoreSyncFailureLeavesPriorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")

	store, err := openStore(path, FormatJSON, true, nil)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	store.Set("count", json.Number("1"))
	if err := store.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	committed, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read committed: %v", err)
	}

	store.Set("bad", func() {})
	if err := store.Sync(); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue, got %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read after failed sync: %v", err)
	}
	if !bytes.Equal(committed, after) {
		t.Fatalf("committed file changed by failed sync")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected no temp file after failed sync")
	}
}

func TestStoreSyncLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vars.godb")

	store, err := openStore(path, FormatBinary, true, nil)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	store.Set("k", "v")
	if err := store.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "vars.godb" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestStoreAdoptsDetectedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")
	if err := os.WriteFile(path, []byte(`{"count":1}`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store, err := openStore(path, FormatBinary, false, nil)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if store.Format() != FormatJSON {
		t.Fatalf("expected detected json format, got %s", store.Format())
	}

	store.Set("count", json.Number("2"))
	if err := store.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected file to stay json, got %q: %v", data, err)
	}
}

func TestStoreExplicitFormatMismatchIsHardError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.godb")
	if err := os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := openStore(path, FormatJSON, true, nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenStoreUndetectableContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.godb")
	if err := os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := openStore(path, FormatBinary, false, nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestStoreKeysSorted(t *testing.T) {
	store, err := openStore(filepath.Join(t.TempDir(), "vars.godb"), FormatBinary, true, nil)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	store.Set("c", 1)
	store.Set("a", 2)
	store.Set("b", 3)

	keys := store.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("expected sorted keys, got %v", keys)
	}

	store.Delete("b")
	if store.Len() != 2 {
		t.Fatalf("expected 2 keys after delete, got %d", store.Len())
	}
}
