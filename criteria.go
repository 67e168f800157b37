package calc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// criterion is the selection rule of the *IF and *IFS functions: an
// optional comparison prefix followed by a value, as in ">=10", "<>x" or
// "a*".
type criterion struct {
	op      BinaryOp
	operand Value
	pattern *regexp.Regexp // text equality with wildcards
	culture *Culture
}

var criterionPrefixes = []struct {
	prefix string
	op     BinaryOp
}{
	{"<>", BinOpNotEqual},
	{">=", BinOpGreaterEqual},
	{"<=", BinOpLessEqual},
	{"=", BinOpEqual},
	{">", BinOpGreater},
	{"<", BinOpLess},
}

// parseCriterion reads a criteria argument. Non-text criteria match by
// equality; an empty text criterion matches blank cells.
func parseCriterion(v Value, c *Culture) criterion {
	cr := criterion{op: BinOpEqual, culture: c}
	v = v.TopLeft()
	if !v.IsText() {
		if v.IsBlank() {
			v = Number(0)
		}
		cr.operand = v
		return cr
	}

	text := v.Str()
	rest := text
	for _, p := range criterionPrefixes {
		if strings.HasPrefix(text, p.prefix) {
			cr.op = p.op
			rest = text[len(p.prefix):]
			break
		}
	}
	if rest == "" {
		if text == "" {
			cr.operand = Number(0)
		} else {
			cr.operand = Blank()
		}
		return cr
	}
	cr.operand = valueFromInput(rest, c)
	if cr.operand.IsText() && (cr.op == BinOpEqual || cr.op == BinOpNotEqual) {
		cr.pattern = wildcardPattern(cr.operand.Str(), true)
	}
	return cr
}

func (cr criterion) matches(v Value) bool {
	v = v.TopLeft()
	switch cr.operand.Kind() {
	case KindBlank:
		if !v.IsBlank() {
			return cr.op == BinOpNotEqual
		}
		return cr.op == BinOpEqual
	case KindBoolean:
		if !v.IsBoolean() {
			return cr.op == BinOpNotEqual
		}
		return cr.compare(compareValues(v, cr.operand, cr.culture))
	case KindNumber:
		var n float64
		switch {
		case v.IsNumber():
			n = v.Num()
		case v.IsText():
			parsed, ok := cr.culture.ParseNumber(v.Str())
			if !ok {
				return cr.op == BinOpNotEqual
			}
			n = parsed
		default:
			return cr.op == BinOpNotEqual
		}
		return cr.compare(compareValues(Number(n), cr.operand, cr.culture))
	case KindText:
		if !v.IsText() {
			return cr.op == BinOpNotEqual
		}
		if cr.pattern != nil {
			matched := cr.pattern.MatchString(v.Str())
			if cr.op == BinOpNotEqual {
				return !matched
			}
			return matched
		}
		return cr.compare(cr.culture.CompareText(v.Str(), cr.operand.Str()))
	case KindError:
		if !v.IsError() {
			return cr.op == BinOpNotEqual
		}
		return cr.compare(cmpInt(int(v.Err()), int(cr.operand.Err())))
	}
	return false
}

func (cr criterion) compare(cmp int) bool {
	switch cr.op {
	case BinOpEqual:
		return cmp == 0
	case BinOpNotEqual:
		return cmp != 0
	case BinOpLess:
		return cmp < 0
	case BinOpLessEqual:
		return cmp <= 0
	case BinOpGreater:
		return cmp > 0
	case BinOpGreaterEqual:
		return cmp >= 0
	}
	return false
}

// wildcardPattern compiles a pattern where '*' matches any run of
// characters, '?' one character and '~' escapes the next one. Matching
// ignores case. whole anchors the pattern to the entire text.
func wildcardPattern(pattern string, whole bool) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)")
	if whole {
		b.WriteByte('^')
	}
	escaped := false
	for _, ch := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(ch)))
			escaped = false
		case ch == '~':
			escaped = true
		case ch == '*':
			b.WriteString(".*")
		case ch == '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	if escaped {
		b.WriteString("~")
	}
	if whole {
		b.WriteByte('$')
	}
	return regexp.MustCompile(b.String())
}

// wildcardIndex returns the rune offset of the first match of pattern in
// text at or after start, or -1.
func wildcardIndex(pattern, text string, start int) int {
	re := wildcardPattern(pattern, false)
	byteStart := 0
	for i := 0; i < start && byteStart < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[byteStart:])
		byteStart += size
	}
	loc := re.FindStringIndex(text[byteStart:])
	if loc == nil {
		return -1
	}
	return start + utf8.RuneCountInString(text[byteStart:byteStart+loc[0]])
}

// criteriaPair is one (range, criterion) pair of a *IFS function.
type criteriaPair struct {
	rng  Range
	rule criterion
}

// criteriaPairs reads alternating range and criteria arguments. Every range
// must be rows x cols.
func criteriaPairs(c *CallContext, args []Arg, rows, cols int) ([]criteriaPair, bool) {
	if len(args)%2 != 0 {
		return nil, false
	}
	var pairs []criteriaPair
	for i := 0; i < len(args); i += 2 {
		r := c.Range(args[i])
		if r == nil {
			return nil, false
		}
		if rr, cc := rangeSize(r); rr != rows || cc != cols {
			return nil, false
		}
		pairs = append(pairs, criteriaPair{rng: r, rule: parseCriterion(c.Scalar(args[i+1]), c.Culture())})
	}
	return pairs, true
}

// matchAll reports whether the cell at offset (row, col) satisfies every
// pair.
func matchAll(pairs []criteriaPair, row, col int) bool {
	for _, p := range pairs {
		if !p.rule.matches(p.rng.At(row, col)) {
			return false
		}
	}
	return true
}

// matchingOffsets yields the offsets inside r satisfying rule. Blank
// cells are only visited when the rule can match a blank.
func matchingOffsets(r Range, rule criterion) [][2]int {
	var out [][2]int
	rows, cols := rangeSize(r)
	if rule.matches(Blank()) {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if rule.matches(r.At(i, j)) {
					out = append(out, [2]int{i, j})
				}
			}
		}
		return out
	}
	b := r.Bounds()
	for addr, v := range r.Cells() {
		if rule.matches(v) {
			out = append(out, [2]int{int(addr.Row - b.StartRow), int(addr.Column - b.StartColumn)})
		}
	}
	return out
}
