package pvars

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEngineOption configures an expr engine instance.
type ExprEngineOption func(*exprEngine)

// ExprWithProgramCache wires a ProgramCache into the expr engine.
func ExprWithProgramCache(cache ProgramCache) ExprEngineOption {
	return func(e *exprEngine) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr engine.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEngineOption {
	return func(e *exprEngine) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEngine compiles variable expressions using github.com/expr-lang/expr.
type exprEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEngine constructs the default Engine, backed by expr-lang/expr.
func NewExprEngine(opts ...ExprEngineOption) Engine {
	e := &exprEngine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Compile parses expression and returns a program that evaluates it on
// demand. Name derivation is deferred to Program.Ident so expressions that
// do not reduce to an identifier can still run under an explicit name.
func (e *exprEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	tree, err := exprparser.Parse(expression)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	ident, identErr := exprIdent(tree.Node, expression)
	return &exprProgram{
		engine:     e,
		expression: expression,
		ident:      ident,
		identErr:   identErr,
	}, nil
}

// exprIdent extracts the identifier the expression evaluates to: a bare
// identifier, or the trailing property of a member access.
func exprIdent(node exprast.Node, expression string) (string, error) {
	switch node := node.(type) {
	case *exprast.IdentifierNode:
		return node.Value, nil
	case *exprast.MemberNode:
		if property, ok := node.Property.(*exprast.StringNode); ok {
			return property.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %q does not evaluate to an identifier", ErrInvalidCallback, expression)
}

func (e *exprEngine) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.registryNames() {
		fn := e.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

type exprProgram struct {
	engine     *exprEngine
	expression string
	ident      string
	identErr   error
}

func (p *exprProgram) Ident() (string, error) {
	return p.ident, p.identErr
}

func (p *exprProgram) Run(env map[string]any) (any, error) {
	if p.engine == nil {
		return nil, wrapEngineError("expr", fmt.Errorf("program missing engine"))
	}
	program, err := p.engine.loadOrCompile(p.expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, p.engine.environment(env))
	if err != nil {
		return nil, wrapEvaluationError("expr", p.expression, err)
	}
	return result, nil
}

func (e *exprEngine) environment(env map[string]any) map[string]any {
	out := make(map[string]any, len(env)+2)
	for key, value := range env {
		out[key] = value
	}
	if e.registry != nil {
		out["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			out[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	return out
}

func (e *exprEngine) registryNames() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

func (e *exprEngine) registryFunction(name string) func(...any) (any, error) {
	if e == nil || e.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
