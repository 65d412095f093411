package activity

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestTrailHookAccumulates(t *testing.T) {
	hook := &TrailHook{}
	emitter := NewEmitter(Hooks{hook}, Config{Enabled: true})

	events := []Event{
		{Verb: VerbLoad, Path: "/tmp/vars.json", Format: "json"},
		{Verb: VerbSave, Path: "/tmp/vars.json", Format: "json", SnapshotID: "snap-1", Keys: []string{"count"}},
	}
	for _, event := range events {
		if err := emitter.Emit(context.Background(), event); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	trail := hook.Trail()
	if trail.Path != "/tmp/vars.json" {
		t.Fatalf("expected path recorded, got %q", trail.Path)
	}
	if len(trail.Entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(trail.Entries))
	}
	if trail.Entries[1].SnapshotID != "snap-1" || trail.Entries[1].Keys[0] != "count" {
		t.Fatalf("unexpected save entry: %+v", trail.Entries[1])
	}
}

func TestTrailJSONRoundTrip(t *testing.T) {
	trail := Trail{
		Path: "/tmp/vars.json",
		Entries: []TrailEntry{
			{
				Verb:       VerbSave,
				Format:     "json",
				SnapshotID: "snap-1",
				Keys:       []string{"count"},
				OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
		},
	}

	payload, err := trail.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := TrailFromJSON(payload)
	if err != nil {
		t.Fatalf("TrailFromJSON: %v", err)
	}
	if !reflect.DeepEqual(decoded, trail) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, trail)
	}
}

func TestTrailFromJSONRejectsGarbage(t *testing.T) {
	if _, err := TrailFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
