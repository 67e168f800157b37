package calc

import (
	"math"
	"strings"
)

// toNumber coerces a scalar for arithmetic. Blank is 0, booleans are 0/1 and
// text must read as a number in the culture. A non-zero ErrorKind reports
// failure; errors held by v are returned as-is.
func toNumber(v Value, c *Culture) (float64, ErrorKind) {
	v = v.TopLeft()
	switch v.kind {
	case KindNumber:
		return v.number, 0
	case KindBlank:
		return 0, 0
	case KindBoolean:
		if v.boolean {
			return 1, 0
		}
		return 0, 0
	case KindText:
		if n, ok := c.ParseNumber(v.text); ok {
			return n, 0
		}
		if n, ok := parseDateText(v.text, c); ok {
			return n, 0
		}
		return 0, ErrorInvalidValue
	case KindError:
		return 0, v.err
	}
	return 0, ErrorInvalidValue
}

// toText coerces a scalar for concatenation and text functions.
func toText(v Value) (string, ErrorKind) {
	v = v.TopLeft()
	switch v.kind {
	case KindError:
		return "", v.err
	case KindNumber:
		return formatGeneral(v.number), 0
	}
	return v.String(), 0
}

// toBool coerces a scalar for logical functions. Text must spell TRUE or
// FALSE.
func toBool(v Value) (bool, ErrorKind) {
	v = v.TopLeft()
	switch v.kind {
	case KindBoolean:
		return v.boolean, 0
	case KindNumber:
		return v.number != 0, 0
	case KindBlank:
		return false, 0
	case KindText:
		switch strings.ToUpper(strings.TrimSpace(v.text)) {
		case "TRUE":
			return true, 0
		case "FALSE":
			return false, 0
		}
		return false, ErrorInvalidValue
	case KindError:
		return false, v.err
	}
	return false, ErrorInvalidValue
}

// numberResult wraps an arithmetic result, mapping NaN and infinities to
// #NUM!.
func numberResult(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return ErrorValue(ErrorNumericInvalid)
	}
	return Number(n)
}

// typeRank orders kinds for mixed comparisons: numbers < text < booleans.
func typeRank(k ValueKind) int {
	switch k {
	case KindNumber:
		return 1
	case KindText:
		return 2
	case KindBoolean:
		return 3
	}
	return 0
}

// compareValues orders two non-error scalars. A blank compares as the zero
// value of the other side's kind.
func compareValues(a, b Value, c *Culture) int {
	a, b = a.TopLeft(), b.TopLeft()
	if a.kind == KindBlank && b.kind == KindBlank {
		return 0
	}
	if a.kind == KindBlank {
		a = zeroOf(b.kind)
	}
	if b.kind == KindBlank {
		b = zeroOf(a.kind)
	}
	if a.kind != b.kind {
		return cmpInt(typeRank(a.kind), typeRank(b.kind))
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.number < b.number:
			return -1
		case a.number > b.number:
			return 1
		}
		return 0
	case KindText:
		return c.CompareText(a.text, b.text)
	case KindBoolean:
		switch {
		case a.boolean == b.boolean:
			return 0
		case b.boolean:
			return -1
		}
		return 1
	}
	return 0
}

func zeroOf(k ValueKind) Value {
	switch k {
	case KindText:
		return Text("")
	case KindBoolean:
		return Boolean(false)
	}
	return Number(0)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// valueFromInput seeds a literal from raw user input: numbers (culture
// aware, with percent and currency), booleans and error literals are
// recognized; everything else is text.
func valueFromInput(raw string, c *Culture) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Blank()
	}
	if n, ok := c.ParseNumber(trimmed); ok {
		return Number(n)
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Boolean(true)
	case "FALSE":
		return Boolean(false)
	}
	if k, ok := ParseErrorKind(trimmed); ok {
		return ErrorValue(k)
	}
	if n, ok := parseDateText(trimmed, c); ok {
		return Number(n)
	}
	return Text(raw)
}
