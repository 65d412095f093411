package pvars

import "fmt"

// Engine compiles variable expressions. An expression names the value it
// tracks: the engine derives the storage name from the identifier the
// expression evaluates to, and evaluates the expression against the live
// bindings supplied at save time.
type Engine interface {
	Compile(expression string) (Program, error)
}

// Program is a compiled variable expression.
type Program interface {
	// Ident returns the storage name derived from the expression, or an
	// error wrapping ErrInvalidCallback when no identifier can be derived.
	Ident() (string, error)
	// Run evaluates the expression against env.
	Run(env map[string]any) (any, error)
}

func engineName(e Engine) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*pvars.exprEngine":
		return "expr"
	case "*pvars.celEngine":
		return "cel"
	case "*pvars.jsEngine":
		return "js"
	default:
		return "custom"
	}
}
