//go:build js_eval

package pvars

import (
	"fmt"

	"github.com/dop251/goja"
	gojaast "github.com/dop251/goja/ast"
	gojaparser "github.com/dop251/goja/parser"
)

type jsEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEngine constructs an Engine backed by goja.
func NewJSEngine(opts ...JSEngineOption) Engine {
	cfg := applyJSEngineOptions(opts)
	return &jsEngine{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	parsed, err := gojaparser.ParseFile(nil, "", expression, 0)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, err)
	}
	ident, identErr := jsIdent(parsed, expression)
	return &jsProgram{
		engine:     e,
		expression: expression,
		ident:      ident,
		identErr:   identErr,
	}, nil
}

// jsIdent extracts the identifier the expression evaluates to: a bare
// identifier, or the trailing property of a dot access.
func jsIdent(parsed *gojaast.Program, expression string) (string, error) {
	if len(parsed.Body) != 1 {
		return "", fmt.Errorf("%w: %q is not a single expression", ErrInvalidCallback, expression)
	}
	stmt, ok := parsed.Body[0].(*gojaast.ExpressionStatement)
	if !ok {
		return "", fmt.Errorf("%w: %q is not an expression", ErrInvalidCallback, expression)
	}
	switch node := stmt.Expression.(type) {
	case *gojaast.Identifier:
		return string(node.Name), nil
	case *gojaast.DotExpression:
		return string(node.Identifier.Name), nil
	}
	return "", fmt.Errorf("%w: %q does not evaluate to an identifier", ErrInvalidCallback, expression)
}

func (e *jsEngine) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEngine) run(env map[string]any, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	e.injectEnv(vm, env)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapEvaluationError("js", expression, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(e.wrapExpression(expression))
	if err != nil {
		return nil, wrapEvaluationError("js", expression, err)
	}
	return value.Export(), nil
}

func (e *jsEngine) injectEnv(vm *goja.Runtime, env map[string]any) {
	for key, value := range env {
		vm.Set(key, value)
	}
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
}

func (e *jsEngine) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsProgram struct {
	engine     *jsEngine
	expression string
	ident      string
	identErr   error
}

func (p *jsProgram) Ident() (string, error) {
	return p.ident, p.identErr
}

func (p *jsProgram) Run(env map[string]any) (any, error) {
	if p.engine == nil {
		return nil, wrapEngineError("js", fmt.Errorf("program missing engine"))
	}
	if p.engine.cache == nil {
		return p.engine.run(env, p.expression, nil)
	}
	program, err := p.engine.loadOrCompile(p.expression)
	if err != nil {
		return nil, err
	}
	return p.engine.run(env, p.expression, program)
}

func jsEngineAvailable() bool {
	return true
}
