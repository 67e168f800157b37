package calc

func init() {
	register(
		&FunctionDef{Name: "AND", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: logical(func(acc, b bool) bool { return acc && b }, true)},
		&FunctionDef{Name: "OR", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: logical(func(acc, b bool) bool { return acc || b }, false)},
		&FunctionDef{Name: "XOR", MinArgs: 1, MaxArgs: 254, Params: []ParamKind{ParamRange}, Call: logical(func(acc, b bool) bool { return acc != b }, false)},
		&FunctionDef{Name: "NOT", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamBoolean}, Call: func(_ *CallContext, args []Arg) Value {
			return Boolean(!args[0].Value.Bool())
		}},
		&FunctionDef{Name: "TRUE", MaxArgs: 0, Call: func(*CallContext, []Arg) Value { return Boolean(true) }},
		&FunctionDef{Name: "FALSE", MaxArgs: 0, Call: func(*CallContext, []Arg) Value { return Boolean(false) }},
		&FunctionDef{Name: "IF", MinArgs: 2, MaxArgs: 3, Lazy: ifFn},
		&FunctionDef{Name: "IFERROR", MinArgs: 2, MaxArgs: 2, Lazy: ifError(func(v Value) bool { return v.IsError() })},
		&FunctionDef{Name: "IFNA", MinArgs: 2, MaxArgs: 2, Lazy: ifError(func(v Value) bool { return v.Err() == ErrorNotAvailable })},
	)
}

// logical folds the booleans of its arguments. Text and blank cells inside
// references are skipped; if nothing is left the result is #VALUE!.
func logical(fold func(acc, b bool) bool, initial bool) func(c *CallContext, args []Arg) Value {
	return func(c *CallContext, args []Arg) Value {
		acc, seen := initial, false
		for _, a := range args {
			if c.Range(a) == nil {
				b, ek := toBool(a.Value)
				if ek != 0 {
					return ErrorValue(ek)
				}
				acc, seen = fold(acc, b), true
				continue
			}
			for v := range c.Values(a) {
				switch v.Kind() {
				case KindError:
					return v
				case KindBoolean, KindNumber:
					b, _ := toBool(v)
					acc, seen = fold(acc, b), true
				}
			}
		}
		if !seen {
			return ErrorValue(ErrorInvalidValue)
		}
		return Boolean(acc)
	}
}

// branch evaluates the chosen argument of IF or CHOOSE. An empty slot reads
// as 0.
func branch(c *CallContext, node ASTNode) (Arg, error) {
	a, err := c.Evaluate(node, ParamRange)
	if err != nil {
		return Arg{}, err
	}
	if a.Omitted {
		return Arg{Value: Number(0)}, nil
	}
	return a, nil
}

func ifFn(c *CallContext, args []ASTNode) (Arg, error) {
	cond, err := c.Evaluate(args[0], ParamBoolean)
	if err != nil {
		return Arg{}, err
	}
	if cond.Value.IsError() {
		return Arg{Value: cond.Value}, nil
	}
	if cond.Value.Bool() {
		return branch(c, args[1])
	}
	if len(args) < 3 {
		return Arg{Value: Boolean(false)}, nil
	}
	return branch(c, args[2])
}

func ifError(caught func(Value) bool) func(c *CallContext, args []ASTNode) (Arg, error) {
	return func(c *CallContext, args []ASTNode) (Arg, error) {
		a, err := branch(c, args[0])
		if err != nil {
			return Arg{}, err
		}
		if v := c.Scalar(a); !caught(v) {
			return a, nil
		}
		return branch(c, args[1])
	}
}
