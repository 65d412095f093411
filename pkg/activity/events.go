// Package activity fans persistence events out to registered hooks. Hook
// failures are reported to the emitting caller but never abort the
// persistence operation that produced the event.
package activity

import (
	"strings"
	"time"
)

// Verbs emitted by persistence contexts.
const (
	VerbLoad     = "load"
	VerbSave     = "save"
	VerbReset    = "reset"
	VerbShutdown = "shutdown"
)

// Event describes one persistence occurrence that can be fanned out to
// hooks. SnapshotID identifies the sync that produced the event; it is never
// written into the data file.
type Event struct {
	Verb       string
	Path       string
	Format     string
	Channel    string
	SnapshotID string
	Keys       []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// NormalizeEvent trims whitespace, clones mutable fields, and ensures a
// timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.Path = strings.TrimSpace(event.Path)
	normalized.Format = strings.TrimSpace(event.Format)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.SnapshotID = strings.TrimSpace(event.SnapshotID)
	normalized.Metadata = cloneMap(event.Metadata)
	if len(event.Keys) > 0 {
		normalized.Keys = append([]string{}, event.Keys...)
	} else {
		normalized.Keys = nil
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
