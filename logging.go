package pvars

import "time"

// LogEvent describes a persistence operation for logging.
type LogEvent struct {
	Op       string
	Path     string
	Format   Format
	Keys     int
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records persistence events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// WithLogger attaches a logger to a context.
func WithLogger(logger Logger) Option {
	return func(cfg *contextConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
