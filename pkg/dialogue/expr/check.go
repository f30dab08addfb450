package expr

// Check statically type-checks the expression against declared variable
// kinds. Variables absent from decls have unknown type and are skipped;
// full checking for those happens at evaluation time.
//
// Returns the inferred result kind, or KindInvalid when it cannot be
// determined statically, and the first mismatch found.
func (c *Compiled) Check(decls map[string]Kind) (Kind, error) {
	return infer(c.root, decls)
}

func infer(n node, decls map[string]Kind) (Kind, error) {
	switch x := n.(type) {
	case litNode:
		return x.v.Kind(), nil

	case varNode:
		if k, ok := decls[x.name]; ok {
			return k, nil
		}
		return KindInvalid, nil

	case unaryNode:
		k, err := infer(x.x, decls)
		if err != nil {
			return KindInvalid, err
		}
		if x.op == "not" {
			if k != KindInvalid && k != KindBool {
				return KindInvalid, &TypeMismatchError{Op: "not", Left: k, Right: KindBool}
			}
			return KindBool, nil
		}
		if k != KindInvalid && k != KindInt && k != KindFloat {
			return KindInvalid, &TypeMismatchError{Op: "-", Left: k, Right: KindInt}
		}
		return k, nil

	case binNode:
		lk, err := infer(x.l, decls)
		if err != nil {
			return KindInvalid, err
		}
		rk, err := infer(x.r, decls)
		if err != nil {
			return KindInvalid, err
		}
		return inferBinary(x.op, lk, rk)
	}
	return KindInvalid, nil
}

func inferBinary(op string, lk, rk Kind) (Kind, error) {
	numeric := func(k Kind) bool { return k == KindInt || k == KindFloat }

	switch op {
	case "and", "or":
		if lk != KindInvalid && lk != KindBool {
			return KindInvalid, &TypeMismatchError{Op: op, Left: lk, Right: KindBool}
		}
		if rk != KindInvalid && rk != KindBool {
			return KindInvalid, &TypeMismatchError{Op: op, Left: rk, Right: KindBool}
		}
		return KindBool, nil

	case "==", "!=":
		if lk == KindInvalid || rk == KindInvalid {
			return KindBool, nil
		}
		if lk == rk || (numeric(lk) && numeric(rk)) {
			return KindBool, nil
		}
		return KindInvalid, &TypeMismatchError{Op: op, Left: lk, Right: rk}

	case "<", "<=", ">", ">=":
		if lk == KindInvalid || rk == KindInvalid {
			return KindBool, nil
		}
		if (numeric(lk) && numeric(rk)) || (lk == KindString && rk == KindString) {
			return KindBool, nil
		}
		return KindInvalid, &TypeMismatchError{Op: op, Left: lk, Right: rk}

	case "+", "-", "*", "/":
		if lk != KindInvalid && !numeric(lk) {
			return KindInvalid, &TypeMismatchError{Op: op, Left: lk, Right: rk}
		}
		if rk != KindInvalid && !numeric(rk) {
			return KindInvalid, &TypeMismatchError{Op: op, Left: lk, Right: rk}
		}
		if lk == KindInvalid || rk == KindInvalid {
			return KindInvalid, nil
		}
		if lk == KindFloat || rk == KindFloat {
			return KindFloat, nil
		}
		return KindInt, nil
	}
	return KindInvalid, nil
}
