package pvars

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// callMaxArity bounds the declared overloads for the call() helper. CEL has
// no variadic declarations, so call is declared once per arity.
const callMaxArity = 6

// CELEngineOption configures the CEL engine.
type CELEngineOption func(*celEngine)

// CELWithProgramCache wires a ProgramCache into the CEL engine.
func CELWithProgramCache(cache ProgramCache) CELEngineOption {
	return func(e *celEngine) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL engine.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEngineOption {
	return func(e *celEngine) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEngine constructs an Engine backed by cel-go.
func NewCELEngine(opts ...CELEngineOption) Engine {
	e := &celEngine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	env, err := celgo.NewEnv()
	if err != nil {
		return nil, wrapEngineError("cel", err)
	}
	parsed, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, issues.Err())
	}
	ident, identErr := celIdent(parsed.NativeRep().Expr(), expression)
	return &celBoundProgram{
		engine:     e,
		expression: expression,
		ident:      ident,
		identErr:   identErr,
	}, nil
}

// celIdent extracts the identifier the expression evaluates to: a bare
// ident, or the field of a select.
func celIdent(root celast.Expr, expression string) (string, error) {
	switch root.Kind() {
	case celast.IdentKind:
		return root.AsIdent(), nil
	case celast.SelectKind:
		return root.AsSelect().FieldName(), nil
	}
	return "", fmt.Errorf("%w: %q does not evaluate to an identifier", ErrInvalidCallback, expression)
}

func (e *celEngine) loadOrCompile(expression string, env map[string]any) (*celProgram, error) {
	if env == nil {
		env = map[string]any{}
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	celEnv, err := e.buildEnv(env)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}
	ast, issues := celEnv.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, issues.Err())
	}
	checked, issues := celEnv.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, issues.Err())
	}
	prg, err := celEnv.Program(checked)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}

	bundle := &celProgram{
		env:     celEnv,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEngine) buildEnv(env map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{}
	if e.registry != nil {
		overloads := make([]celgo.FunctionOpt, 0, callMaxArity)
		args := []*celgo.Type{celgo.StringType}
		for arity := 1; arity <= callMaxArity; arity++ {
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("call_dyn_%d", arity),
				append([]*celgo.Type(nil), args...),
				celgo.DynType,
				celgo.FunctionBinding(e.callBinding()),
			))
			args = append(args, celgo.DynType)
		}
		opts = append(opts, celgo.Function("call", overloads...))
	}
	for key := range env {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEngine) activation(env map[string]any) map[string]any {
	activation := make(map[string]any, len(env))
	for key, value := range env {
		activation[key] = value
	}
	return activation
}

type celBoundProgram struct {
	engine     *celEngine
	expression string
	ident      string
	identErr   error
}

func (p *celBoundProgram) Ident() (string, error) {
	return p.ident, p.identErr
}

func (p *celBoundProgram) Run(env map[string]any) (any, error) {
	if p.engine == nil {
		return nil, wrapEngineError("cel", fmt.Errorf("program missing engine"))
	}
	program, err := p.engine.loadOrCompile(p.expression, env)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(p.engine.activation(env))
	if err != nil {
		return nil, wrapEvaluationError("cel", p.expression, err)
	}
	return out.Value(), nil
}

func (e *celEngine) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("pvars: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("pvars: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("pvars: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
