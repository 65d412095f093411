package pvars

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-pvars/pkg/activity"
)

// Context is a persistence scope bound to one file. It composes one Store
// with an ordered index of named variables and serializes every operation
// behind a single mutex. Contexts are created through a Registry and live
// for the process lifetime.
type Context struct {
	mu sync.Mutex

	path  string
	store *Store
	vars  *variableIndex

	autoSave     bool
	engine       Engine
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       Logger
	hooks        activity.Hooks
	activityCfg  activity.Config
	emitter      *activity.Emitter
}

func newContext(path string, cfg contextConfig) (*Context, error) {
	c := &Context{
		path:         path,
		vars:         newVariableIndex(),
		autoSave:     cfg.autoSave,
		engine:       cfg.engine,
		programCache: cfg.programCache,
		functions:    cfg.functions,
		logger:       cfg.logger,
		hooks:        cfg.hooks,
		activityCfg:  cfg.activityCfg,
		emitter:      activity.NewEmitter(cfg.hooks, cfg.activityCfg),
	}

	start := time.Now()
	store, err := openStore(path, cfg.format, cfg.formatSet, cfg.codecOptions)
	c.log(LogEvent{Op: "load", Path: path, Duration: time.Since(start), Err: err})
	if err != nil {
		return nil, err
	}
	c.store = store
	c.emit(activity.Event{Verb: activity.VerbLoad, Keys: store.Keys()})
	return c, nil
}

// Path returns the resolved storage path identifying this context.
func (c *Context) Path() string {
	return c.path
}

// Store exposes the underlying atomic store.
func (c *Context) Store() *Store {
	return c.store
}

// AutoSave reports whether this context participates in the shutdown sweep.
func (c *Context) AutoSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSave
}

// Register tracks a named variable backed by callback and returns its
// initial value: the stored value when the name already exists in the store,
// the supplied default otherwise. Re-registering a name replaces its
// callback silently.
func (c *Context) Register(name string, defaultValue any, callback Callback) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidCallback)
	}
	if callback == nil {
		return nil, fmt.Errorf("%w: callback must not be nil", ErrInvalidCallback)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars.register(name, callback)
	if stored, ok := c.store.Get(name); ok {
		return stored, nil
	}
	return defaultValue, nil
}

// RegisterExpr tracks a variable whose storage name is derived from
// expression and whose value is the expression evaluated against env at
// save time. env is read live, so callers mutate it to update the tracked
// value. Underivable expressions fail with ErrInvalidCallback before any
// store mutation.
func (c *Context) RegisterExpr(expression string, defaultValue any, env map[string]any) (any, error) {
	engine, err := c.resolveEngine()
	if err != nil {
		return nil, err
	}
	program, err := engine.Compile(expression)
	if err != nil {
		return nil, err
	}
	name, err := program.Ident()
	if err != nil {
		return nil, err
	}
	return c.Register(name, defaultValue, c.expressionCallback(engine, program, expression, env))
}

// RegisterExprNamed is RegisterExpr with an explicit storage name, for
// expressions that do not reduce to an identifier (arithmetic, helper
// function calls).
func (c *Context) RegisterExprNamed(name, expression string, defaultValue any, env map[string]any) (any, error) {
	engine, err := c.resolveEngine()
	if err != nil {
		return nil, err
	}
	program, err := engine.Compile(expression)
	if err != nil {
		return nil, err
	}
	return c.Register(name, defaultValue, c.expressionCallback(engine, program, expression, env))
}

func (c *Context) expressionCallback(engine Engine, program Program, expression string, env map[string]any) Callback {
	return func() (any, error) {
		start := time.Now()
		value, runErr := program.Run(env)
		c.log(LogEvent{
			Op:       "evaluate",
			Path:     c.path,
			Engine:   engineName(engine),
			Expr:     expression,
			Duration: time.Since(start),
			Err:      runErr,
		})
		return value, runErr
	}
}

// RegisterDict tracks a named mutable mapping that persists the whole
// context on every item write. The stored mapping wins over the supplied
// default when the name already exists.
func (c *Context) RegisterDict(name string, defaultValue map[string]any) (*Dict, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidCallback)
	}

	c.mu.Lock()
	seed := defaultValue
	if stored, ok := c.store.Get(name); ok {
		if m, ok := stored.(map[string]any); ok {
			seed = m
		}
	}
	dict := newDict(seed, c.Save)
	c.vars.register(name, func() (any, error) {
		return dict.snapshot(), nil
	})
	c.mu.Unlock()
	return dict, nil
}

// Save evaluates every registered variable in registration order, writes the
// results into the store, and commits atomically. Unchanged callback outputs
// produce a byte-identical file.
func (c *Context) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Context) saveLocked() error {
	results, err := c.vars.evaluateAll()
	if err != nil {
		return err
	}
	for _, name := range c.vars.names() {
		c.store.Set(name, results[name])
	}

	start := time.Now()
	err = c.store.Sync()
	c.log(LogEvent{
		Op:       "save",
		Path:     c.path,
		Format:   c.store.Format(),
		Keys:     c.store.Len(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return err
	}
	c.emit(activity.Event{
		Verb:       activity.VerbSave,
		SnapshotID: uuid.NewString(),
		Keys:       c.store.Keys(),
	})
	return nil
}

// Reset deletes every stored key and commits the empty mapping. Registered
// variables survive and re-populate the store on the next save.
func (c *Context) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.store.Keys() {
		c.store.Delete(key)
	}
	start := time.Now()
	err := c.store.Sync()
	c.log(LogEvent{
		Op:       "reset",
		Path:     c.path,
		Format:   c.store.Format(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return err
	}
	c.emit(activity.Event{Verb: activity.VerbReset})
	return nil
}

// All returns a snapshot copy of the current stored mapping.
func (c *Context) All() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.snapshot()
}

// Configure applies options to a live context: auto-save flag, format,
// codec options, engine, logger, and activity hooks.
func (c *Context) Configure(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := contextConfig{
		autoSave:     c.autoSave,
		format:       c.store.Format(),
		codecOptions: c.store.options,
		engine:       c.engine,
		programCache: c.programCache,
		functions:    c.functions,
		logger:       c.logger,
		hooks:        c.hooks,
		activityCfg:  c.activityCfg,
	}
	cfg = applyOptions(cfg, opts)

	c.autoSave = cfg.autoSave
	if cfg.formatSet {
		c.store.setFormat(cfg.format)
	}
	c.store.setOptions(cfg.codecOptions)
	c.engine = cfg.engine
	c.programCache = cfg.programCache
	c.functions = cfg.functions
	c.logger = cfg.logger
	c.hooks = cfg.hooks
	c.activityCfg = cfg.activityCfg
	c.emitter = activity.NewEmitter(cfg.hooks, cfg.activityCfg)
}

func (c *Context) resolveEngine() (Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil {
		return c.engine, nil
	}
	var exprOpts []ExprEngineOption
	if c.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(c.programCache))
	}
	if c.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(c.functions))
	}
	engine := NewExprEngine(exprOpts...)
	if engine == nil {
		return nil, fmt.Errorf("pvars: engine not configured")
	}
	c.engine = engine
	return engine, nil
}

func (c *Context) log(event LogEvent) {
	if c.logger == nil {
		return
	}
	c.logger.LogEvent(event)
}

func (c *Context) emit(event activity.Event) {
	if !c.emitter.Enabled() {
		return
	}
	event.Path = c.path
	if event.Format == "" {
		event.Format = c.store.Format().String()
	}
	if err := c.emitter.Emit(context.Background(), event); err != nil {
		c.log(LogEvent{Op: "notify", Path: c.path, Err: err})
	}
}
