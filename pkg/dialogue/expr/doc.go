/*
Package expr provides typed expression evaluation for dialogue guards,
conditions and action effects.

# Overview

expr implements the small expression language used throughout a dialogue
graph: edge guards, condition-node expressions, and the right-hand side of
action assignments. Expressions are compiled once (at graph build time) and
evaluated many times against a variable environment.

# Expression Syntax

	<expr>       := <or>
	<or>         := <and> ('or' <and>)*
	<and>        := <comparison> ('and' <comparison>)*
	<comparison> := <additive> (('==' | '!=' | '<' | '<=' | '>' | '>=') <additive>)?
	<additive>   := <mult> (('+' | '-') <mult>)*
	<mult>       := <unary> (('*' | '/') <unary>)*
	<unary>      := ('not' | '!' | '-') <unary> | <primary>
	<primary>    := literal | variable | '(' <expr> ')'

Literals are booleans (true, false), integers (42), floats (3.14) and
quoted strings ('hello' or "hello"). Inside strings, \n, \t and \r
translate to newline, tab and carriage return; \ before any other
character (including the quote and \\ itself) yields that character.
Variables are referenced by name, optionally qualified with a scope:

	trust            // unqualified: local scope first, then global
	local.trust      // session-local variable
	global.reputation

# Typing

Values are typed (bool, int, float, string) and operators are strict:

  - == and != require same-kind operands; int and float compare numerically
  - < <= > >= require two numbers or two strings
  - + - * / require numbers; two ints yield an int, otherwise a float
  - and, or, not require booleans; there is no truthiness coercion

Violations fail with TypeMismatchError. Division by zero fails with
ErrDivisionByZero. Referencing a variable missing from the environment
fails with UndefinedVariableError.

# Static checking

Compiled.Check performs best-effort type inference against declared
variable kinds, letting graph validation surface mismatches before a
session ever runs. Variables without declarations stay unknown and are
only checked at evaluation time.

# Examples

	c, err := expr.Compile("trust > 3 and not angry")
	if err != nil { ... }

	env := expr.MapEnv{
	    "trust": expr.Int(5),
	    "angry": expr.Bool(false),
	}
	ok, err := c.EvalBool(env) // true, nil
*/
package expr
