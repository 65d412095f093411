package pvars

// Dict is a mutable mapping that forwards every mutation to its owning
// context's Save, so each item write lands on disk. It is an observer
// wrapper around a plain map, not a container subtype; reads are local and
// free. Like the rest of a context, a Dict expects its callers to serialize
// access.
type Dict struct {
	values map[string]any
	save   func() error
}

func newDict(seed map[string]any, save func() error) *Dict {
	values := make(map[string]any, len(seed))
	for key, value := range seed {
		values[key] = value
	}
	return &Dict{values: values, save: save}
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (any, bool) {
	value, ok := d.values[key]
	return value, ok
}

// Set stores value under key and persists the owning context.
func (d *Dict) Set(key string, value any) error {
	d.values[key] = value
	return d.save()
}

// Delete removes key and persists the owning context.
func (d *Dict) Delete(key string) error {
	delete(d.values, key)
	return d.save()
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	return len(d.values)
}

// Items returns a copy of the current entries.
func (d *Dict) Items() map[string]any {
	return d.snapshot()
}

func (d *Dict) snapshot() map[string]any {
	out := make(map[string]any, len(d.values))
	for key, value := range d.values {
		out[key] = value
	}
	return out
}
