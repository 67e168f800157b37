package calc

import (
	"math"
	"strconv"
	"strings"

	"github.com/xuri/nfp"
)

// formatValue renders v with an Excel number format code, as TEXT does.
// Numbers pick the section for their sign; text uses the fourth section
// when there is one and is returned unchanged otherwise.
func formatValue(v Value, code string, c *Culture) string {
	if v.IsText() {
		if n, ek := toNumber(v, c); ek == 0 {
			v = Number(n)
		}
	}
	if strings.EqualFold(code, "General") || code == "" {
		if v.IsNumber() {
			return formatGeneral(v.Num())
		}
		return v.String()
	}
	ps := nfp.NumberFormatParser()
	sections := ps.Parse(code)
	if len(sections) == 0 {
		return v.String()
	}

	if !v.IsNumber() {
		text := v.String()
		if len(sections) < 4 {
			if len(sections) == 1 && hasToken(sections[0], nfp.TokenTypeTextPlaceHolder) {
				return renderText(text, sections[0])
			}
			return text
		}
		return renderText(text, sections[3])
	}

	n := v.Num()
	sec, signShown := pickSection(sections, n)
	switch {
	case isDateSection(sec):
		return renderDateTime(n, sec)
	case hasToken(sec, nfp.TokenTypeGeneral):
		return renderGeneralSection(n, sec, signShown)
	}
	return renderNumber(n, sec, signShown, c)
}

// pickSection selects the section for n. signShown reports whether the
// chosen section renders negative values itself, so no minus is added.
func pickSection(sections []nfp.Section, n float64) (nfp.Section, bool) {
	switch {
	case len(sections) == 1:
		return sections[0], false
	case n < 0:
		return sections[1], true
	case n == 0 && len(sections) >= 3:
		return sections[2], false
	}
	return sections[0], false
}

func hasToken(sec nfp.Section, tt string) bool {
	for _, tok := range sec.Items {
		if tok.TType == tt {
			return true
		}
	}
	return false
}

func isDateSection(sec nfp.Section) bool {
	return hasToken(sec, nfp.TokenTypeDateTimes) || hasToken(sec, nfp.TokenTypeElapsedDateTimes)
}

func renderText(text string, sec nfp.Section) string {
	var b strings.Builder
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypeTextPlaceHolder:
			b.WriteString(text)
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		}
	}
	return b.String()
}

func renderGeneralSection(n float64, sec nfp.Section, signShown bool) string {
	if signShown {
		n = math.Abs(n)
	}
	var b strings.Builder
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypeGeneral:
			b.WriteString(formatGeneral(n))
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		}
	}
	return b.String()
}

// numberLayout collects what a number section asks for before rendering.
type numberLayout struct {
	percent    int
	grouping   bool
	intZeros   int
	fracZeros  int
	fracHashes int
	decimal    bool
	exponent   string // "E+" or "E-" when scientific
	expZeros   int
	scale      int // trailing thousands separators divide by 1000 each
}

func layoutOf(sec nfp.Section) numberLayout {
	var l numberLayout
	afterDecimal, afterExp := false, false
	for i, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypePercent:
			l.percent++
		case nfp.TokenTypeThousandsSeparator:
			if trailingSeparator(sec.Items[i+1:]) {
				l.scale++
			} else {
				l.grouping = true
			}
		case nfp.TokenTypeDecimalPoint:
			if !afterExp {
				l.decimal, afterDecimal = true, true
			}
		case nfp.TokenTypeExponential:
			l.exponent, afterExp = strings.ToUpper(tok.TValue), true
		case nfp.TokenTypeZeroPlaceHolder:
			switch {
			case afterExp:
				l.expZeros += len(tok.TValue)
			case afterDecimal:
				l.fracZeros += len(tok.TValue)
			default:
				l.intZeros += len(tok.TValue)
			}
		case nfp.TokenTypeHashPlaceHolder, nfp.TokenTypeDigitalPlaceHolder:
			switch {
			case afterExp:
			case afterDecimal:
				l.fracHashes += len(tok.TValue)
			}
		}
	}
	return l
}

// trailingSeparator reports whether no digit placeholder follows.
func trailingSeparator(rest []nfp.Token) bool {
	for _, tok := range rest {
		switch tok.TType {
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder, nfp.TokenTypeDigitalPlaceHolder:
			return false
		case nfp.TokenTypeDecimalPoint:
			return true
		}
	}
	return true
}

func renderNumber(n float64, sec nfp.Section, signShown bool, c *Culture) string {
	l := layoutOf(sec)
	abs := math.Abs(n)
	for range l.percent {
		abs *= 100
	}
	for range l.scale {
		abs /= 1000
	}
	places := l.fracZeros + l.fracHashes

	var exp int
	if l.exponent != "" && abs != 0 {
		intDigits := max(l.intZeros, 1)
		exp = int(math.Floor(math.Log10(abs))) - (intDigits - 1)
		abs /= math.Pow(10, float64(exp))
	}

	rounded := roundDecimal(abs, places, roundHalfUp)
	if l.exponent != "" && rounded >= math.Pow(10, float64(max(l.intZeros, 1))) {
		exp++
		rounded = roundDecimal(abs/10, places, roundHalfUp)
	}
	digits := strconv.FormatFloat(rounded, 'f', places, 64)
	intPart, fracPart, _ := strings.Cut(digits, ".")
	if intPart == "0" && l.intZeros == 0 {
		intPart = ""
	}
	for len(intPart) < l.intZeros {
		intPart = "0" + intPart
	}
	for len(fracPart) > l.fracZeros && strings.HasSuffix(fracPart, "0") {
		fracPart = fracPart[:len(fracPart)-1]
	}
	if l.grouping {
		intPart = groupDigits(intPart, c.group)
	}

	var b strings.Builder
	if n < 0 && !signShown && (rounded != 0 || l.exponent != "") {
		b.WriteByte('-')
	}
	intDone, fracDone, expDone := false, false, false
	afterDecimal, afterExp := false, false
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		case nfp.TokenTypePercent:
			b.WriteByte('%')
		case nfp.TokenTypeDecimalPoint:
			if !afterExp {
				afterDecimal = true
				if l.fracZeros > 0 || fracPart != "" {
					b.WriteRune(c.decimal)
				}
			}
		case nfp.TokenTypeExponential:
			afterExp = true
			b.WriteByte('E')
			switch {
			case exp < 0:
				b.WriteByte('-')
			case l.exponent == "E+":
				b.WriteByte('+')
			}
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder, nfp.TokenTypeDigitalPlaceHolder:
			switch {
			case afterExp:
				if !expDone {
					e := strconv.Itoa(abs2(exp))
					for len(e) < l.expZeros {
						e = "0" + e
					}
					b.WriteString(e)
					expDone = true
				}
			case afterDecimal:
				if !fracDone {
					b.WriteString(fracPart)
					fracDone = true
				}
			default:
				if !intDone {
					b.WriteString(intPart)
					intDone = true
				}
			}
		}
	}
	if !intDone && !afterDecimal && !afterExp {
		b.WriteString(intPart)
	}
	return b.String()
}

func abs2(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func groupDigits(s string, sep rune) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteRune(sep)
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

var (
	monthNames = []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
)

func renderDateTime(serial float64, sec nfp.Section) string {
	if serial < 0 {
		return "#VALUE!"
	}
	t := serialToTime(serial)
	twelveHour := false
	for _, tok := range sec.Items {
		if tok.TType == nfp.TokenTypeDateTimes && strings.Contains(tok.TValue, "/") {
			twelveHour = true
		}
	}

	var b strings.Builder
	items := sec.Items
	for i, tok := range items {
		switch tok.TType {
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		case nfp.TokenTypeElapsedDateTimes:
			b.WriteString(renderElapsed(strings.ToUpper(tok.TValue), serial))
		case nfp.TokenTypeDateTimes:
			upper := strings.ToUpper(tok.TValue)
			if (upper == "M" || upper == "MM") && minuteContext(items, i) {
				upper = "N" + upper[1:]
			}
			switch upper {
			case "YYYY", "YYY":
				b.WriteString(pad(t.Year(), 4))
			case "YY", "Y":
				b.WriteString(pad(t.Year()%100, 2))
			case "MMMMM":
				b.WriteString(monthNames[t.Month()-1][:1])
			case "MMMM":
				b.WriteString(monthNames[t.Month()-1])
			case "MMM":
				b.WriteString(monthNames[t.Month()-1][:3])
			case "MM":
				b.WriteString(pad(int(t.Month()), 2))
			case "M":
				b.WriteString(strconv.Itoa(int(t.Month())))
			case "DDDD":
				b.WriteString(dayNames[t.Weekday()])
			case "DDD":
				b.WriteString(dayNames[t.Weekday()][:3])
			case "DD":
				b.WriteString(pad(t.Day(), 2))
			case "D":
				b.WriteString(strconv.Itoa(t.Day()))
			case "HH", "H":
				h := t.Hour()
				if twelveHour {
					h %= 12
					if h == 0 {
						h = 12
					}
				}
				if upper == "HH" {
					b.WriteString(pad(h, 2))
				} else {
					b.WriteString(strconv.Itoa(h))
				}
			case "NN":
				b.WriteString(pad(t.Minute(), 2))
			case "N":
				b.WriteString(strconv.Itoa(t.Minute()))
			case "SS":
				b.WriteString(pad(t.Second(), 2))
			case "S":
				b.WriteString(strconv.Itoa(t.Second()))
			case "AM/PM":
				if t.Hour() < 12 {
					b.WriteString("AM")
				} else {
					b.WriteString("PM")
				}
			case "A/P":
				if t.Hour() < 12 {
					b.WriteString("A")
				} else {
					b.WriteString("P")
				}
			default:
				b.WriteString(tok.TValue)
			}
		}
	}
	return b.String()
}

// minuteContext reports whether an m token at i means minutes: it follows
// an hour or precedes a second.
func minuteContext(items []nfp.Token, i int) bool {
	for j := i - 1; j >= 0; j-- {
		tt := items[j].TType
		if tt == nfp.TokenTypeDateTimes || tt == nfp.TokenTypeElapsedDateTimes {
			u := strings.ToUpper(items[j].TValue)
			return u == "H" || u == "HH"
		}
	}
	for j := i + 1; j < len(items); j++ {
		if items[j].TType == nfp.TokenTypeDateTimes || items[j].TType == nfp.TokenTypeElapsedDateTimes {
			u := strings.ToUpper(items[j].TValue)
			return u == "S" || u == "SS"
		}
	}
	return false
}

func renderElapsed(upper string, serial float64) string {
	seconds := int(math.Round(serial * 86400))
	switch upper {
	case "H", "HH":
		return pad(seconds/3600, len(upper))
	case "M", "MM":
		return pad(seconds/60, len(upper))
	case "S", "SS":
		return pad(seconds, len(upper))
	}
	return ""
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
