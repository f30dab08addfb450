package expr

import (
	"errors"
	"fmt"
)

// Sentinel errors for expression evaluation.
var (
	// ErrDivisionByZero indicates a division by zero, integer or float.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrTypeMismatch is the base error wrapped by TypeMismatchError.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUndefinedVariable is the base error wrapped by UndefinedVariableError.
	ErrUndefinedVariable = errors.New("undefined variable")
)

// ParseError reports a syntax error in an expression source string.
type ParseError struct {
	// Src is the full expression source.
	Src string
	// Pos is the byte offset of the offending token.
	Pos int
	// Msg describes the problem.
	Msg string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s at offset %d", e.Src, e.Msg, e.Pos)
}

// TypeMismatchError reports operands whose kinds are incompatible
// with the operator applied to them.
type TypeMismatchError struct {
	// Op is the operator that failed (e.g. "+", "<", "and").
	Op string
	// Left and Right are the operand kinds.
	Left, Right Kind
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %s %s %s", e.Left, e.Op, e.Right)
}

// Unwrap returns ErrTypeMismatch for errors.Is support.
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// UndefinedVariableError reports a reference to a variable that is not
// present in the evaluation environment.
type UndefinedVariableError struct {
	// Scope is the explicit scope qualifier, or "" if unqualified.
	Scope string
	// Name is the referenced variable name.
	Name string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("undefined variable: %s.%s", e.Scope, e.Name)
	}
	return fmt.Sprintf("undefined variable: %s", e.Name)
}

// Unwrap returns ErrUndefinedVariable for errors.Is support.
func (e *UndefinedVariableError) Unwrap() error { return ErrUndefinedVariable }
