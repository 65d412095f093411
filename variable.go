package pvars

import "fmt"

// Callback produces a variable's current value. Callbacks run at save time
// so the persisted value is the one the caller holds then, not the one it
// held at registration. They are expected to be cheap accessors.
type Callback func() (any, error)

type variable struct {
	name     string
	callback Callback
}

// variableIndex tracks registered variables in registration order.
// Re-registering a name overwrites the callback silently and keeps the
// original position.
type variableIndex struct {
	order []string
	vars  map[string]variable
}

func newVariableIndex() *variableIndex {
	return &variableIndex{vars: map[string]variable{}}
}

func (ix *variableIndex) register(name string, callback Callback) {
	if _, exists := ix.vars[name]; !exists {
		ix.order = append(ix.order, name)
	}
	ix.vars[name] = variable{name: name, callback: callback}
}

func (ix *variableIndex) names() []string {
	return append([]string(nil), ix.order...)
}

func (ix *variableIndex) len() int {
	return len(ix.order)
}

// evaluateAll invokes every callback in registration order. The first
// callback failure aborts the evaluation so a save never commits a partial
// set of results.
func (ix *variableIndex) evaluateAll() (map[string]any, error) {
	results := make(map[string]any, len(ix.order))
	for _, name := range ix.order {
		value, err := ix.vars[name].callback()
		if err != nil {
			return nil, fmt.Errorf("pvars: evaluate %q: %w", name, err)
		}
		results[name] = value
	}
	return results, nil
}
