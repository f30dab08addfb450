package expr

import "fmt"

// Env resolves variable references during evaluation.
//
// scope is "" for an unqualified reference, or one of ScopeGlobal /
// ScopeLocal for a qualified one. Unqualified resolution order (local
// before global) is the Env implementation's responsibility.
type Env interface {
	Lookup(scope, name string) (Value, bool)
}

// MapEnv is a flat Env backed by a map. Scope qualifiers are ignored.
// Intended for tests and simple hosts.
type MapEnv map[string]Value

// Lookup implements Env.
func (m MapEnv) Lookup(_, name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Eval evaluates the expression against the environment.
// Evaluation is pure: it never mutates env.
func (c *Compiled) Eval(env Env) (Value, error) {
	return eval(c.root, env)
}

// EvalBool evaluates the expression and requires a boolean result.
// Guards use this: a non-boolean guard is a type mismatch, not truthiness.
func (c *Compiled) EvalBool(env Env) (bool, error) {
	v, err := eval(c.root, env)
	if err != nil {
		return false, err
	}
	if v.Kind() != KindBool {
		return false, &TypeMismatchError{Op: "bool", Left: v.Kind(), Right: KindBool}
	}
	return v.AsBool(), nil
}

func eval(n node, env Env) (Value, error) {
	switch x := n.(type) {
	case litNode:
		return x.v, nil

	case varNode:
		v, ok := env.Lookup(x.scope, x.name)
		if !ok {
			return Value{}, &UndefinedVariableError{Scope: x.scope, Name: x.name}
		}
		return v, nil

	case unaryNode:
		v, err := eval(x.x, env)
		if err != nil {
			return Value{}, err
		}
		switch x.op {
		case "not":
			if v.Kind() != KindBool {
				return Value{}, &TypeMismatchError{Op: "not", Left: v.Kind(), Right: KindBool}
			}
			return Bool(!v.AsBool()), nil
		case "-":
			switch v.Kind() {
			case KindInt:
				return Int(-v.AsInt()), nil
			case KindFloat:
				return Float(-v.AsFloat()), nil
			}
			return Value{}, &TypeMismatchError{Op: "-", Left: v.Kind(), Right: KindInt}
		}
		return Value{}, fmt.Errorf("unknown unary operator: %s", x.op)

	case binNode:
		return evalBinary(x, env)
	}
	return Value{}, fmt.Errorf("unknown expression node: %T", n)
}

func evalBinary(x binNode, env Env) (Value, error) {
	// and/or short-circuit before the right side is evaluated.
	if x.op == "and" || x.op == "or" {
		l, err := eval(x.l, env)
		if err != nil {
			return Value{}, err
		}
		if l.Kind() != KindBool {
			return Value{}, &TypeMismatchError{Op: x.op, Left: l.Kind(), Right: KindBool}
		}
		if x.op == "and" && !l.AsBool() {
			return Bool(false), nil
		}
		if x.op == "or" && l.AsBool() {
			return Bool(true), nil
		}
		r, err := eval(x.r, env)
		if err != nil {
			return Value{}, err
		}
		if r.Kind() != KindBool {
			return Value{}, &TypeMismatchError{Op: x.op, Left: l.Kind(), Right: r.Kind()}
		}
		return Bool(r.AsBool()), nil
	}

	l, err := eval(x.l, env)
	if err != nil {
		return Value{}, err
	}
	r, err := eval(x.r, env)
	if err != nil {
		return Value{}, err
	}

	switch x.op {
	case "==":
		return compareEq(x.op, l, r)
	case "!=":
		v, err := compareEq(x.op, l, r)
		if err != nil {
			return Value{}, err
		}
		return Bool(!v.AsBool()), nil
	case "<", "<=", ">", ">=":
		return compareOrder(x.op, l, r)
	case "+", "-", "*", "/":
		return arithmetic(x.op, l, r)
	}
	return Value{}, fmt.Errorf("unknown operator: %s", x.op)
}

// compareEq implements == over same-kind operands, with int/float
// comparing numerically.
func compareEq(op string, l, r Value) (Value, error) {
	if l.Kind() == r.Kind() || (l.IsNumeric() && r.IsNumeric()) {
		return Bool(l.Equal(r)), nil
	}
	return Value{}, &TypeMismatchError{Op: op, Left: l.Kind(), Right: r.Kind()}
}

// compareOrder implements < <= > >= over numeric operands or two strings.
func compareOrder(op string, l, r Value) (Value, error) {
	if l.Kind() == KindString && r.Kind() == KindString {
		ls, rs := l.AsString(), r.AsString()
		switch op {
		case "<":
			return Bool(ls < rs), nil
		case "<=":
			return Bool(ls <= rs), nil
		case ">":
			return Bool(ls > rs), nil
		case ">=":
			return Bool(ls >= rs), nil
		}
	}
	if !l.IsNumeric() || !r.IsNumeric() {
		return Value{}, &TypeMismatchError{Op: op, Left: l.Kind(), Right: r.Kind()}
	}
	lf, rf := l.AsFloat(), r.AsFloat()
	switch op {
	case "<":
		return Bool(lf < rf), nil
	case "<=":
		return Bool(lf <= rf), nil
	case ">":
		return Bool(lf > rf), nil
	default:
		return Bool(lf >= rf), nil
	}
}

// arithmetic implements + - * / over numeric operands. Two ints yield
// an int; any float operand widens the result to float.
func arithmetic(op string, l, r Value) (Value, error) {
	if !l.IsNumeric() || !r.IsNumeric() {
		return Value{}, &TypeMismatchError{Op: op, Left: l.Kind(), Right: r.Kind()}
	}
	if l.Kind() == KindInt && r.Kind() == KindInt {
		li, ri := l.AsInt(), r.AsInt()
		switch op {
		case "+":
			return Int(li + ri), nil
		case "-":
			return Int(li - ri), nil
		case "*":
			return Int(li * ri), nil
		default:
			if ri == 0 {
				return Value{}, ErrDivisionByZero
			}
			return Int(li / ri), nil
		}
	}
	lf, rf := l.AsFloat(), r.AsFloat()
	switch op {
	case "+":
		return Float(lf + rf), nil
	case "-":
		return Float(lf - rf), nil
	case "*":
		return Float(lf * rf), nil
	default:
		if rf == 0 {
			return Value{}, ErrDivisionByZero
		}
		return Float(lf / rf), nil
	}
}
