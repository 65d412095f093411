package activity

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Trail is a serializable audit record of the persistence events observed
// for one storage path.
type Trail struct {
	Path    string       `json:"path"`
	Entries []TrailEntry `json:"entries"`
}

// TrailEntry records how one event contributed to the trail. SnapshotID ties
// a save entry back to the sync that produced it.
type TrailEntry struct {
	Verb       string    `json:"verb"`
	Format     string    `json:"format,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Keys       []string  `json:"keys,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToJSON serialises the trail for logging or transport helpers.
func (t Trail) ToJSON() ([]byte, error) {
	type alias Trail
	return json.Marshal(alias(t))
}

// TrailFromJSON deserialises a JSON payload that was previously generated
// via ToJSON.
func TrailFromJSON(payload []byte) (Trail, error) {
	type alias Trail
	var trail alias
	if err := json.Unmarshal(payload, &trail); err != nil {
		return Trail{}, err
	}
	return Trail(trail), nil
}

// TrailHook accumulates events into a Trail. Safe for concurrent use.
type TrailHook struct {
	mu    sync.Mutex
	trail Trail
}

// Notify implements Hook.
func (h *TrailHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.trail.Path == "" {
		h.trail.Path = event.Path
	}
	h.trail.Entries = append(h.trail.Entries, TrailEntry{
		Verb:       event.Verb,
		Format:     event.Format,
		SnapshotID: event.SnapshotID,
		Keys:       append([]string(nil), event.Keys...),
		OccurredAt: event.OccurredAt,
	})
	return nil
}

// Trail returns a copy of the accumulated trail.
func (h *TrailHook) Trail() Trail {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := Trail{Path: h.trail.Path}
	out.Entries = append([]TrailEntry(nil), h.trail.Entries...)
	return out
}
