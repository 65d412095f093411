package pvars

import "github.com/goliatone/go-pvars/pkg/activity"

// Option configures a Context at creation or through Configure.
type Option func(*contextConfig)

type contextConfig struct {
	autoSave     bool
	format       Format
	formatSet    bool
	codecOptions map[string]any
	engine       Engine
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       Logger
	hooks        activity.Hooks
	activityCfg  activity.Config
}

func defaultConfig() contextConfig {
	return contextConfig{
		autoSave: true,
		format:   FormatBinary,
	}
}

func applyOptions(cfg contextConfig, opts []Option) contextConfig {
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithAutoSave toggles the automatic save at process shutdown. Contexts
// auto-save by default.
func WithAutoSave(autoSave bool) Option {
	return func(cfg *contextConfig) {
		cfg.autoSave = autoSave
	}
}

// WithFormat sets the serialization format for the backing file.
func WithFormat(format Format) Option {
	return func(cfg *contextConfig) {
		cfg.format = format
		cfg.formatSet = true
	}
}

// WithCodecOptions passes options verbatim to the codec at encode time.
func WithCodecOptions(options map[string]any) Option {
	return func(cfg *contextConfig) {
		cfg.codecOptions = options
	}
}

// WithEngine configures the expression engine used by RegisterExpr.
func WithEngine(engine Engine) Option {
	return func(cfg *contextConfig) {
		cfg.engine = engine
	}
}

// WithActivityHooks registers hooks that receive persistence events.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return func(cfg *contextConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
		cfg.activityCfg.Enabled = true
	}
}

// WithActivityConfig overrides activity emission defaults.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *contextConfig) {
		cfg.activityCfg = config
	}
}
