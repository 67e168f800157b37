package calc

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// maxTextLength is the longest text a cell can hold.
const maxTextLength = 32767

func init() {
	register(
		&FunctionDef{Name: "CHAR", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamNumber}, Call: char},
		&FunctionDef{Name: "CLEAN", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: clean},
		&FunctionDef{Name: "CODE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: code},
		&FunctionDef{Name: "CONCAT", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamRange}, Call: concat},
		&FunctionDef{Name: "CONCATENATE", MinArgs: 1, MaxArgs: 255, Params: []ParamKind{ParamText}, Call: concatenate},
		&FunctionDef{Name: "DOLLAR", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: dollarFn},
		&FunctionDef{Name: "EXACT", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamText}, Call: exact},
		&FunctionDef{Name: "FIND", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamText, ParamText, ParamNumber}, Call: find},
		&FunctionDef{Name: "FIXED", MinArgs: 1, MaxArgs: 3, Params: []ParamKind{ParamNumber, ParamNumber, ParamBoolean}, Call: fixed},
		&FunctionDef{Name: "LEFT", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamText, ParamNumber}, Call: left},
		&FunctionDef{Name: "LEN", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: length},
		&FunctionDef{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: textMap((*Culture).Lower)},
		&FunctionDef{Name: "MID", MinArgs: 3, MaxArgs: 3, Params: []ParamKind{ParamText, ParamNumber}, Call: mid},
		&FunctionDef{Name: "PROPER", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: textMap((*Culture).Title)},
		&FunctionDef{Name: "REPLACE", MinArgs: 4, MaxArgs: 4, Params: []ParamKind{ParamText, ParamNumber, ParamNumber, ParamText}, Call: replace},
		&FunctionDef{Name: "REPT", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamText, ParamNumber}, Call: rept},
		&FunctionDef{Name: "RIGHT", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamText, ParamNumber}, Call: right},
		&FunctionDef{Name: "SEARCH", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamText, ParamText, ParamNumber}, Call: search},
		&FunctionDef{Name: "SUBSTITUTE", MinArgs: 3, MaxArgs: 4, Params: []ParamKind{ParamText, ParamText, ParamText, ParamNumber}, Call: substitute},
		&FunctionDef{Name: "T", MinArgs: 1, MaxArgs: 1, Call: tFn},
		&FunctionDef{Name: "TEXT", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamAny, ParamText}, Call: textFn},
		&FunctionDef{Name: "TEXTJOIN", MinArgs: 3, MaxArgs: 254, Params: []ParamKind{ParamText, ParamBoolean, ParamRange}, Call: textJoin},
		&FunctionDef{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: trim},
		&FunctionDef{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: textMap((*Culture).Upper)},
		&FunctionDef{Name: "VALUE", MinArgs: 1, MaxArgs: 1, Call: valueFn},
	)
}

// textResult rejects text longer than a cell can hold.
func textResult(s string) Value {
	if utf8.RuneCountInString(s) > maxTextLength {
		return ErrorValue(ErrorInvalidValue)
	}
	return Text(s)
}

func textMap(fn func(*Culture, string) string) func(c *CallContext, args []Arg) Value {
	return func(c *CallContext, args []Arg) Value {
		return Text(fn(c.Culture(), args[0].Value.Str()))
	}
}

// CHAR and CODE use the Windows-1252 code page.
func char(_ *CallContext, args []Arg) Value {
	n := math.Trunc(args[0].Value.Num())
	if n < 1 || n > 255 {
		return ErrorValue(ErrorInvalidValue)
	}
	return Text(string(charmap.Windows1252.DecodeByte(byte(n))))
}

func code(_ *CallContext, args []Arg) Value {
	s := args[0].Value.Str()
	if s == "" {
		return ErrorValue(ErrorInvalidValue)
	}
	r, _ := utf8.DecodeRuneInString(s)
	b, ok := charmap.Windows1252.EncodeRune(r)
	if !ok {
		return Number('?')
	}
	return Number(float64(b))
}

func clean(_ *CallContext, args []Arg) Value {
	return Text(strings.Map(func(r rune) rune {
		if r < 32 {
			return -1
		}
		return r
	}, args[0].Value.Str()))
}

func concat(c *CallContext, args []Arg) Value {
	var b strings.Builder
	for _, a := range args {
		for v := range c.Values(a) {
			s, ek := toText(v)
			if ek != 0 {
				return ErrorValue(ek)
			}
			b.WriteString(s)
		}
	}
	return textResult(b.String())
}

func concatenate(_ *CallContext, args []Arg) Value {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.Value.Str())
	}
	return textResult(b.String())
}

func decimalsArg(args []Arg, i, def int) int {
	if len(args) <= i || args[i].Omitted {
		return def
	}
	return int(math.Trunc(args[i].Value.Num()))
}

// dollar formats with a currency sign, grouping and parentheses for
// negative amounts.
func dollarFn(c *CallContext, args []Arg) Value {
	n := args[0].Value.Num()
	decimals := decimalsArg(args, 1, 2)
	if decimals > 127 {
		return ErrorValue(ErrorInvalidValue)
	}
	rounded := roundDecimal(math.Abs(n), decimals, roundHalfUp)
	s := "$" + c.Culture().FormatFixed(rounded, decimals, true)
	if n < 0 && rounded != 0 {
		s = "(" + s + ")"
	}
	return Text(s)
}

func fixed(c *CallContext, args []Arg) Value {
	n := args[0].Value.Num()
	decimals := decimalsArg(args, 1, 2)
	if decimals > 127 {
		return ErrorValue(ErrorInvalidValue)
	}
	noCommas := len(args) > 2 && args[2].Value.Bool()
	rounded := roundDecimal(n, decimals, roundHalfUp)
	return Text(c.Culture().FormatFixed(rounded, decimals, !noCommas))
}

func exact(_ *CallContext, args []Arg) Value {
	return Boolean(args[0].Value.Str() == args[1].Value.Str())
}

// startArg reads a one-based start position, defaulting to 1.
func startArg(args []Arg, i int) int {
	if len(args) <= i || args[i].Omitted {
		return 1
	}
	return int(math.Trunc(args[i].Value.Num()))
}

func find(_ *CallContext, args []Arg) Value {
	needle, hay := args[0].Value.Str(), []rune(args[1].Value.Str())
	start := startArg(args, 2)
	if start < 1 || start > len(hay)+1 {
		return ErrorValue(ErrorInvalidValue)
	}
	idx := strings.Index(string(hay[start-1:]), needle)
	if idx < 0 {
		return ErrorValue(ErrorInvalidValue)
	}
	return Number(float64(start + utf8.RuneCountInString(string(hay[start-1:])[:idx])))
}

func search(_ *CallContext, args []Arg) Value {
	needle, hay := args[0].Value.Str(), args[1].Value.Str()
	start := startArg(args, 2)
	if start < 1 || start > utf8.RuneCountInString(hay)+1 {
		return ErrorValue(ErrorInvalidValue)
	}
	idx := wildcardIndex(needle, hay, start-1)
	if idx < 0 {
		return ErrorValue(ErrorInvalidValue)
	}
	return Number(float64(idx + 1))
}

func countArg(args []Arg, i int) (int, bool) {
	if len(args) <= i || args[i].Omitted {
		return 1, true
	}
	n := math.Trunc(args[i].Value.Num())
	return int(min(n, maxTextLength+1)), n >= 0
}

func left(_ *CallContext, args []Arg) Value {
	n, ok := countArg(args, 1)
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	r := []rune(args[0].Value.Str())
	return Text(string(r[:min(n, len(r))]))
}

func right(_ *CallContext, args []Arg) Value {
	n, ok := countArg(args, 1)
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	r := []rune(args[0].Value.Str())
	return Text(string(r[len(r)-min(n, len(r)):]))
}

func mid(_ *CallContext, args []Arg) Value {
	r := []rune(args[0].Value.Str())
	start := math.Trunc(args[1].Value.Num())
	n := math.Trunc(args[2].Value.Num())
	if start < 1 || n < 0 {
		return ErrorValue(ErrorInvalidValue)
	}
	from := int(min(start-1, float64(len(r))))
	to := int(min(float64(from)+n, float64(len(r))))
	return Text(string(r[from:to]))
}

func length(_ *CallContext, args []Arg) Value {
	return Number(float64(utf8.RuneCountInString(args[0].Value.Str())))
}

func replace(_ *CallContext, args []Arg) Value {
	r := []rune(args[0].Value.Str())
	start := math.Trunc(args[1].Value.Num())
	n := math.Trunc(args[2].Value.Num())
	if start < 1 || n < 0 {
		return ErrorValue(ErrorInvalidValue)
	}
	from := int(min(start-1, float64(len(r))))
	to := int(min(float64(from)+n, float64(len(r))))
	return textResult(string(r[:from]) + args[3].Value.Str() + string(r[to:]))
}

func rept(_ *CallContext, args []Arg) Value {
	s := args[0].Value.Str()
	n := math.Trunc(args[1].Value.Num())
	if n < 0 || float64(utf8.RuneCountInString(s))*n > maxTextLength {
		return ErrorValue(ErrorInvalidValue)
	}
	return Text(strings.Repeat(s, int(n)))
}

func substitute(_ *CallContext, args []Arg) Value {
	text, old, repl := args[0].Value.Str(), args[1].Value.Str(), args[2].Value.Str()
	if old == "" {
		return Text(text)
	}
	if len(args) < 4 || args[3].Omitted {
		return textResult(strings.ReplaceAll(text, old, repl))
	}
	instance := int(math.Trunc(args[3].Value.Num()))
	if instance < 1 {
		return ErrorValue(ErrorInvalidValue)
	}
	pos := 0
	for i := 1; ; i++ {
		idx := strings.Index(text[pos:], old)
		if idx < 0 {
			return Text(text)
		}
		if i == instance {
			at := pos + idx
			return textResult(text[:at] + repl + text[at+len(old):])
		}
		pos += idx + len(old)
	}
}

func tFn(_ *CallContext, args []Arg) Value {
	if v := args[0].Value; v.IsText() {
		return v
	}
	return Text("")
}

func textFn(c *CallContext, args []Arg) Value {
	return Text(formatValue(args[0].Value, args[1].Value.Str(), c.Culture()))
}

func textJoin(c *CallContext, args []Arg) Value {
	delim := args[0].Value.Str()
	ignoreEmpty := args[1].Value.Bool()
	var parts []string
	for _, a := range args[2:] {
		if r := c.Range(a); r != nil && !ignoreEmpty {
			// blanks inside a range still take a slot
			rows, cols := rangeSize(r)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					s, ek := toText(r.At(i, j))
					if ek != 0 {
						return ErrorValue(ek)
					}
					parts = append(parts, s)
				}
			}
			continue
		}
		for v := range c.Values(a) {
			s, ek := toText(v)
			if ek != 0 {
				return ErrorValue(ek)
			}
			if ignoreEmpty && s == "" {
				continue
			}
			parts = append(parts, s)
		}
	}
	return textResult(strings.Join(parts, delim))
}

// trim drops leading and trailing spaces and collapses inner runs to one.
func trim(_ *CallContext, args []Arg) Value {
	fields := strings.FieldsFunc(args[0].Value.Str(), func(r rune) bool { return r == ' ' })
	return Text(strings.Join(fields, " "))
}

func valueFn(c *CallContext, args []Arg) Value {
	v := args[0].Value
	switch v.Kind() {
	case KindNumber:
		return v
	case KindBlank:
		return Number(0)
	case KindText:
		if n, ek := toNumber(v, c.Culture()); ek == 0 {
			return Number(n)
		}
	}
	return ErrorValue(ErrorInvalidValue)
}
