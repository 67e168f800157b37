package calc

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Culture carries every locale-sensitive rule the engine applies: number
// separators, text comparison and case mapping. It is always passed
// explicitly; nothing reads process-wide locale settings. A Culture is not
// safe for concurrent use; the Engine serializes access to it.
type Culture struct {
	Tag      language.Tag
	decimal  rune
	group    rune
	printer  *message.Printer
	collator *collate.Collator
	upper    cases.Caser
	lower    cases.Caser
	title    cases.Caser
}

// NewCulture builds the rules for tag. Separators are taken from the CLDR
// data behind x/text.
func NewCulture(tag language.Tag) *Culture {
	printer := message.NewPrinter(tag)
	c := &Culture{
		Tag:      tag,
		decimal:  '.',
		group:    ',',
		printer:  printer,
		collator: collate.New(tag, collate.IgnoreCase),
		upper:    cases.Upper(tag),
		lower:    cases.Lower(tag),
		title:    cases.Title(tag),
	}
	if s := printer.Sprint(number.Decimal(1.5, number.Scale(1))); utf8.RuneCountInString(s) == 3 {
		c.decimal = []rune(s)[1]
	}
	if s := printer.Sprint(number.Decimal(1000)); utf8.RuneCountInString(s) == 5 {
		c.group = []rune(s)[1]
	}
	return c
}

// DefaultCulture is en-US, the culture formulas are stored in.
func DefaultCulture() *Culture {
	return NewCulture(language.AmericanEnglish)
}

// DecimalSeparator returns the culture's decimal separator.
func (c *Culture) DecimalSeparator() rune { return c.decimal }

// ParseNumber reads user-typed numeric text: optional sign, currency '$',
// group separators, the culture's decimal separator, an exponent and a
// trailing percent sign.
func (c *Culture) ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if strings.HasPrefix(s, "$") {
		s = s[1:]
	}
	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(s[:len(s)-1])
	}
	if s == "" {
		return 0, false
	}

	var b strings.Builder
	seenDecimal := false
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9', ch == 'e', ch == 'E', ch == '+', ch == '-':
			b.WriteRune(ch)
		case ch == c.decimal && !seenDecimal:
			seenDecimal = true
			b.WriteByte('.')
		case (ch == c.group || (c.group == ' ' && ch == ' ')) && !seenDecimal:
		default:
			return 0, false
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	if negative {
		n = -n
	}
	if percent {
		n /= 100
	}
	return n, true
}

// CompareText orders two strings case-insensitively by the culture's
// collation rules.
func (c *Culture) CompareText(a, b string) int {
	if a == b {
		return 0
	}
	if r := c.collator.CompareString(a, b); r != 0 {
		return r
	}
	// collation treats some distinct strings as equal; fall back to
	// case-folded code points so unequal text never compares equal
	return strings.Compare(c.lower.String(a), c.lower.String(b))
}

// EqualText reports case-insensitive equality.
func (c *Culture) EqualText(a, b string) bool {
	return c.CompareText(a, b) == 0
}

func (c *Culture) Upper(s string) string { return c.upper.String(s) }
func (c *Culture) Lower(s string) string { return c.lower.String(s) }
func (c *Culture) Title(s string) string { return c.title.String(s) }

// FormatFixed renders v rounded to decimals places with the culture's
// separators, optionally grouping thousands.
func (c *Culture) FormatFixed(v float64, decimals int, grouping bool) string {
	if decimals < 0 {
		decimals = 0
	}
	opts := []number.Option{number.Scale(decimals)}
	if !grouping {
		opts = append(opts, number.NoSeparator())
	}
	return c.printer.Sprint(number.Decimal(v, opts...))
}
