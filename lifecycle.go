package pvars

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// LifecycleHook runs a callback once before process termination.
type LifecycleHook interface {
	Register(fn func())
}

// SignalHook triggers its callback on interrupt-style signals. The callback
// runs at most once even when multiple signals arrive.
type SignalHook struct {
	signals []os.Signal
	once    sync.Once
}

// NewSignalHook constructs a hook for the given signals, defaulting to
// SIGINT and SIGTERM.
func NewSignalHook(signals ...os.Signal) *SignalHook {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &SignalHook{signals: signals}
}

// Register implements LifecycleHook.
func (h *SignalHook) Register(fn func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, h.signals...)
	go func() {
		<-ch
		h.once.Do(fn)
	}()
}

// InstallAutoSave wires the registry's shutdown sweep into hook and returns
// a function for the normal-exit path, typically deferred in main. Both
// routes funnel into Registry.Shutdown, which guards against running the
// sweep twice; sweep failures are reported through logger rather than
// aborting remaining contexts.
func InstallAutoSave(reg *Registry, hook LifecycleHook, logger Logger) func() {
	if logger == nil {
		logger = noopLogger{}
	}
	shutdown := func() {
		if err := reg.Shutdown(); err != nil {
			logger.LogEvent(LogEvent{Op: "shutdown", Err: err})
		}
	}
	if hook != nil {
		hook.Register(shutdown)
	}
	return shutdown
}
