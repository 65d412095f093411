package pvars

// ProgramCache stores compiled expression programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache used by lazily constructed
// engines.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *contextConfig) {
		cfg.programCache = cache
	}
}
