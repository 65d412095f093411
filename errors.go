package pvars

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat reports a backing file whose content does not
	// decode under any known codec.
	ErrUnsupportedFormat = errors.New("pvars: file not in a supported format")
	// ErrUnsupportedValue reports a value that the configured format cannot
	// represent.
	ErrUnsupportedValue = errors.New("pvars: value not representable in format")
	// ErrInvalidCallback reports a variable whose storage name could not be
	// derived from its expression.
	ErrInvalidCallback = errors.New("pvars: cannot derive variable name")
	// ErrInvalidLocation reports a storage path whose parent directory does
	// not exist and cannot be created.
	ErrInvalidLocation = errors.New("pvars: invalid storage location")
)

// EvaluationError captures engine metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("pvars: %s engine %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	return fmt.Errorf("pvars: %s engine: %w", engine, err)
}

func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
