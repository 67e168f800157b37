package calc

import (
	"math"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Dates are serial numbers: whole days since 1899-12-30 plus the fraction
// of the day. Serials before March 1900 are shifted by one so that serial
// 1 is 1900-01-01 and the nonexistent 1900-02-29 keeps serial 60.
var dateEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	maxDateSerial = 2958465 // 9999-12-31
	secondsPerDay = 86400
)

func init() {
	register(
		&FunctionDef{Name: "DATE", MinArgs: 3, MaxArgs: 3, Params: []ParamKind{ParamNumber}, Call: date},
		&FunctionDef{Name: "DATEDIF", MinArgs: 3, MaxArgs: 3, Params: []ParamKind{ParamNumber, ParamNumber, ParamText}, Call: dateDif},
		&FunctionDef{Name: "DATEVALUE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: dateValue},
		&FunctionDef{Name: "DAYS", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: days},
		&FunctionDef{Name: "DAYS360", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamNumber, ParamNumber, ParamBoolean}, Call: days360Fn},
		&FunctionDef{Name: "EDATE", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: monthShift(false)},
		&FunctionDef{Name: "EOMONTH", MinArgs: 2, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: monthShift(true)},
		datePart("DAY", func(t time.Time) int { return t.Day() }),
		datePart("MONTH", func(t time.Time) int { return int(t.Month()) }),
		datePart("YEAR", func(t time.Time) int { return t.Year() }),
		datePart("HOUR", func(t time.Time) int { return t.Hour() }),
		datePart("MINUTE", func(t time.Time) int { return t.Minute() }),
		datePart("SECOND", func(t time.Time) int { return t.Second() }),
		datePart("ISOWEEKNUM", func(t time.Time) int { _, w := t.ISOWeek(); return w }),
		&FunctionDef{Name: "NOW", MaxArgs: 0, Volatile: true, Call: func(c *CallContext, _ []Arg) Value {
			return Number(timeToSerial(c.Now()))
		}},
		&FunctionDef{Name: "TODAY", MaxArgs: 0, Volatile: true, Call: func(c *CallContext, _ []Arg) Value {
			return Number(math.Floor(timeToSerial(c.Now())))
		}},
		&FunctionDef{Name: "TIME", MinArgs: 3, MaxArgs: 3, Params: []ParamKind{ParamNumber}, Call: timeFn},
		&FunctionDef{Name: "TIMEVALUE", MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamText}, Call: timeValue},
		&FunctionDef{Name: "WEEKDAY", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: weekday},
		&FunctionDef{Name: "WEEKNUM", MinArgs: 1, MaxArgs: 2, Params: []ParamKind{ParamNumber}, Call: weekNum},
		&FunctionDef{Name: "NETWORKDAYS", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamNumber, ParamNumber, ParamRange}, Call: networkDays},
		&FunctionDef{Name: "WORKDAY", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamNumber, ParamNumber, ParamRange}, Call: workday},
		&FunctionDef{Name: "YEARFRAC", MinArgs: 2, MaxArgs: 3, Params: []ParamKind{ParamNumber}, Call: yearFrac},
	)
}

// serialToTime converts a serial number to a UTC time.
func serialToTime(serial float64) time.Time {
	days := math.Floor(serial)
	seconds := math.Round((serial - days) * secondsPerDay)
	if days < 61 {
		days++
	}
	return dateEpoch.AddDate(0, 0, int(days)).Add(time.Duration(seconds) * time.Second)
}

// timeToSerial converts the wall-clock reading of t to a serial number.
func timeToSerial(t time.Time) float64 {
	y, m, d := t.Date()
	days := math.Round(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(dateEpoch).Hours() / 24)
	if days < 61 {
		days--
	}
	seconds := float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())/1e9
	return days + seconds/secondsPerDay
}

// validSerial reports whether n can be shown as a date.
func validSerial(n float64) bool {
	return n >= 0 && n < maxDateSerial+1
}

// dateSerial builds the serial for a calendar date. Months and days out of
// range roll over into neighbouring months and years; years below 1900 are
// offsets from 1900.
func dateSerial(year, month, day int) (float64, bool) {
	if year < 0 || year >= 10000 {
		return 0, false
	}
	if year < 1900 {
		year += 1900
	}
	t := time.Date(year, time.Month(1), 1, 0, 0, 0, 0, time.UTC).AddDate(0, month-1, day-1)
	serial := timeToSerial(t)
	if !validSerial(serial) {
		return 0, false
	}
	return serial, true
}

func date(_ *CallContext, args []Arg) Value {
	year := int(math.Trunc(args[0].Value.Num()))
	month := int(math.Trunc(args[1].Value.Num()))
	day := int(math.Trunc(args[2].Value.Num()))
	serial, ok := dateSerial(year, month, day)
	if !ok {
		return ErrorValue(ErrorNumericInvalid)
	}
	return Number(serial)
}

func dateValue(c *CallContext, args []Arg) Value {
	n, ok := parseDateText(args[0].Value.Str(), c.Culture())
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	return Number(math.Floor(n))
}

func timeValue(c *CallContext, args []Arg) Value {
	n, ok := parseDateText(args[0].Value.Str(), c.Culture())
	if !ok {
		return ErrorValue(ErrorInvalidValue)
	}
	return Number(n - math.Floor(n))
}

func datePart(name string, part func(time.Time) int) *FunctionDef {
	return &FunctionDef{
		Name: name, MinArgs: 1, MaxArgs: 1, Params: []ParamKind{ParamNumber},
		Call: func(_ *CallContext, args []Arg) Value {
			n := args[0].Value.Num()
			if !validSerial(n) {
				return ErrorValue(ErrorNumericInvalid)
			}
			return Number(float64(part(serialToTime(n))))
		},
	}
}

func days(_ *CallContext, args []Arg) Value {
	end, start := math.Floor(args[0].Value.Num()), math.Floor(args[1].Value.Num())
	if !validSerial(end) || !validSerial(start) {
		return ErrorValue(ErrorNumericInvalid)
	}
	return Number(end - start)
}

// addMonths moves t by n months, clamping the day to the target month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func monthShift(endOfMonth bool) func(_ *CallContext, args []Arg) Value {
	return func(_ *CallContext, args []Arg) Value {
		start := math.Floor(args[0].Value.Num())
		if !validSerial(start) {
			return ErrorValue(ErrorNumericInvalid)
		}
		months := int(math.Trunc(args[1].Value.Num()))
		t := addMonths(serialToTime(start), months)
		if endOfMonth {
			t = time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		}
		serial := timeToSerial(t)
		if !validSerial(serial) {
			return ErrorValue(ErrorNumericInvalid)
		}
		return Number(serial)
	}
}

func timeFn(_ *CallContext, args []Arg) Value {
	h := math.Trunc(args[0].Value.Num())
	m := math.Trunc(args[1].Value.Num())
	s := math.Trunc(args[2].Value.Num())
	total := h*3600 + m*60 + s
	if total < 0 || h > 32767 || m > 32767 || s > 32767 {
		return ErrorValue(ErrorNumericInvalid)
	}
	return Number(math.Mod(total, secondsPerDay) / secondsPerDay)
}

func weekday(_ *CallContext, args []Arg) Value {
	n := args[0].Value.Num()
	if !validSerial(n) {
		return ErrorValue(ErrorNumericInvalid)
	}
	kind := 1
	if len(args) > 1 && !args[1].Omitted {
		kind = int(math.Trunc(args[1].Value.Num()))
	}
	wd := int(serialToTime(n).Weekday()) // Sunday = 0
	switch {
	case kind == 1:
		return Number(float64(wd + 1))
	case kind == 2:
		return Number(float64((wd+6)%7 + 1))
	case kind == 3:
		return Number(float64((wd + 6) % 7))
	case kind >= 11 && kind <= 17:
		first := (kind - 10) % 7 // 11 starts on Monday
		return Number(float64((wd-first+7)%7 + 1))
	}
	return ErrorValue(ErrorNumericInvalid)
}

// weekNum numbers weeks from January 1st, with a new week starting on the
// day chosen by the return type. Type 21 is the ISO week.
func weekNum(_ *CallContext, args []Arg) Value {
	n := args[0].Value.Num()
	if !validSerial(n) {
		return ErrorValue(ErrorNumericInvalid)
	}
	kind := 1
	if len(args) > 1 && !args[1].Omitted {
		kind = int(math.Trunc(args[1].Value.Num()))
	}
	t := serialToTime(n)
	var first time.Weekday
	switch {
	case kind == 1 || kind == 17:
		first = time.Sunday
	case kind == 2 || kind == 11:
		first = time.Monday
	case kind >= 12 && kind <= 16:
		first = time.Weekday(kind - 10)
	case kind == 21:
		_, w := t.ISOWeek()
		return Number(float64(w))
	default:
		return ErrorValue(ErrorNumericInvalid)
	}
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(jan1.Weekday()) - int(first) + 7) % 7
	return Number(float64((t.YearDay()-1+offset)/7 + 1))
}

func isWorkday(serial float64) bool {
	wd := serialToTime(serial).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// holidays reads the optional third argument of WORKDAY and NETWORKDAYS
// as a set of whole-day serials.
func holidays(c *CallContext, args []Arg) (sets.Set[float64], ErrorKind) {
	out := sets.New[float64]()
	if len(args) < 3 || args[2].Omitted {
		return out, 0
	}
	for v := range c.Values(args[2]) {
		if v.IsBlank() {
			continue
		}
		n, ek := toNumber(v, c.Culture())
		if ek != 0 {
			return nil, ek
		}
		n = math.Floor(n)
		if !validSerial(n) {
			return nil, ErrorNumericInvalid
		}
		out.Insert(n)
	}
	return out, 0
}

// networkDays counts the weekdays from start to end inclusive that are not
// holidays. The count is negative when end comes first.
func networkDays(c *CallContext, args []Arg) Value {
	start, end := math.Floor(args[0].Value.Num()), math.Floor(args[1].Value.Num())
	if !validSerial(start) || !validSerial(end) {
		return ErrorValue(ErrorNumericInvalid)
	}
	off, ek := holidays(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	sign := 1.0
	if start > end {
		start, end = end, start
		sign = -1
	}
	total := int(end-start) + 1
	count := total / 7 * 5
	for d := start + float64(total/7*7); d <= end; d++ {
		if isWorkday(d) {
			count++
		}
	}
	for h := range off {
		if h >= start && h <= end && isWorkday(h) {
			count--
		}
	}
	return Number(sign * float64(count))
}

// workday moves from start by the given number of weekdays, skipping
// holidays.
func workday(c *CallContext, args []Arg) Value {
	day := math.Floor(args[0].Value.Num())
	if !validSerial(day) {
		return ErrorValue(ErrorNumericInvalid)
	}
	off, ek := holidays(c, args)
	if ek != 0 {
		return ErrorValue(ek)
	}
	remaining := math.Trunc(args[1].Value.Num())
	step := 1.0
	if remaining < 0 {
		step, remaining = -1, -remaining
	}
	for remaining > 0 {
		day += step
		if !validSerial(day) {
			return ErrorValue(ErrorNumericInvalid)
		}
		if isWorkday(day) && !off.Has(day) {
			remaining--
		}
	}
	return Number(day)
}

// dayCount selects how a 30/360 calendar treats month ends.
type dayCount int

const (
	// dayCountUS moves a month-end start to the 30th, and an end on the
	// 31st to the 30th when the start is on or after the 30th.
	dayCountUS dayCount = iota
	// dayCountNASD is dayCountUS that also moves an end on the last day of
	// February to the 30th when the start is one too.
	dayCountNASD
	// dayCountEuropean moves every 31st to the 30th.
	dayCountEuropean
)

func lastOfFebruary(t time.Time) bool {
	return t.Month() == time.February && t.AddDate(0, 0, 1).Month() == time.March
}

func days360(start, end time.Time, method dayCount) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()
	switch method {
	case dayCountEuropean:
		d1, d2 = min(d1, 30), min(d2, 30)
	default:
		if method == dayCountNASD && lastOfFebruary(start) && lastOfFebruary(end) {
			d2 = 30
		}
		if d1 == 31 || lastOfFebruary(start) {
			d1 = 30
		}
		if d2 == 31 && d1 >= 30 {
			d2 = 30
		}
	}
	return 360*(y2-y1) + 30*(int(m2)-int(m1)) + d2 - d1
}

func days360Fn(_ *CallContext, args []Arg) Value {
	s, e := math.Floor(args[0].Value.Num()), math.Floor(args[1].Value.Num())
	if !validSerial(s) || !validSerial(e) {
		return ErrorValue(ErrorNumericInvalid)
	}
	method := dayCountUS
	if len(args) > 2 && args[2].Value.Bool() {
		method = dayCountEuropean
	}
	return Number(float64(days360(serialToTime(s), serialToTime(e), method)))
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// actualYearLength is the divisor of the actual/actual basis: 366 when a
// span of at most a year covers a February 29th, otherwise the average
// length of the years the span touches.
func actualYearLength(start, end time.Time) float64 {
	y1, y2 := start.Year(), end.Year()
	withinYear := y1 == y2 || (y2 == y1+1 && (start.Month() > end.Month() ||
		(start.Month() == end.Month() && start.Day() >= end.Day())))
	if withinYear {
		for _, y := range []int{y1, y2} {
			if !isLeapYear(y) {
				continue
			}
			leap := time.Date(y, time.February, 29, 0, 0, 0, 0, time.UTC)
			if y1 == y2 || (!leap.Before(start) && !leap.After(end)) {
				return 366
			}
		}
		return 365
	}
	total := 0
	for y := y1; y <= y2; y++ {
		total += 365
		if isLeapYear(y) {
			total++
		}
	}
	return float64(total) / float64(y2-y1+1)
}

// yearFrac is the fraction of a year between two dates under one of five
// day count bases.
func yearFrac(_ *CallContext, args []Arg) Value {
	s, e := math.Floor(args[0].Value.Num()), math.Floor(args[1].Value.Num())
	if !validSerial(s) || !validSerial(e) {
		return ErrorValue(ErrorNumericInvalid)
	}
	basis := 0
	if len(args) > 2 && !args[2].Omitted {
		basis = int(math.Trunc(args[2].Value.Num()))
	}
	if s > e {
		s, e = e, s
	}
	start, end := serialToTime(s), serialToTime(e)
	switch basis {
	case 0:
		return Number(float64(days360(start, end, dayCountNASD)) / 360)
	case 1:
		return Number((e - s) / actualYearLength(start, end))
	case 2:
		return Number((e - s) / 360)
	case 3:
		return Number((e - s) / 365)
	case 4:
		return Number(float64(days360(start, end, dayCountEuropean)) / 360)
	}
	return ErrorValue(ErrorNumericInvalid)
}

// dateDif counts whole years, months or days between two dates.
func dateDif(_ *CallContext, args []Arg) Value {
	s, e := math.Floor(args[0].Value.Num()), math.Floor(args[1].Value.Num())
	if !validSerial(s) || !validSerial(e) || s > e {
		return ErrorValue(ErrorNumericInvalid)
	}
	start, end := serialToTime(s), serialToTime(e)
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	switch strings.ToUpper(args[2].Value.Str()) {
	case "Y":
		return Number(float64(months / 12))
	case "M":
		return Number(float64(months))
	case "D":
		return Number(e - s)
	case "YM":
		return Number(float64(months % 12))
	case "MD":
		anchor := addMonths(start, months)
		return Number(math.Round(end.Sub(anchor).Hours() / 24))
	case "YD":
		anchor := addMonths(start, months/12*12)
		return Number(math.Round(end.Sub(anchor).Hours() / 24))
	}
	return ErrorValue(ErrorNumericInvalid)
}

var (
	isoDateLayouts = []string{"2006-01-02", "2006-1-2", "2006/1/2"}
	mdyLayouts     = []string{"1/2/2006", "1-2-2006", "1/2/06"}
	dmyLayouts     = []string{"2/1/2006", "2-1-2006", "2.1.2006", "2/1/06"}
	namedLayouts   = []string{"2 January 2006", "2 Jan 2006", "2-Jan-2006", "2-Jan-06", "January 2, 2006", "Jan 2, 2006", "January 2 2006", "Jan 2 2006"}
	timeLayouts    = []string{"15:04", "15:04:05", "3:04 PM", "3:04:05 PM", "3 PM", "15:04:05.000"}
)

// monthFirst reports whether the culture writes numeric dates month first.
func monthFirst(c *Culture) bool {
	region, _ := c.Tag.Region()
	return region.String() == "US"
}

// parseDateText reads a date, a time or both typed as text and returns the
// serial number.
func parseDateText(text string, c *Culture) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.IndexFunc(text, func(r rune) bool { return strings.ContainsRune("/-:. ", r) }) < 0 {
		return 0, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return float64(t.Hour()*3600+t.Minute()*60+t.Second()) / secondsPerDay, true
		}
	}

	dates := append([]string{}, isoDateLayouts...)
	if monthFirst(c) {
		dates = append(dates, mdyLayouts...)
	} else {
		dates = append(dates, dmyLayouts...)
	}
	dates = append(dates, namedLayouts...)
	for _, dl := range dates {
		if t, err := time.Parse(dl, text); err == nil {
			return dateTextSerial(t)
		}
		for _, tl := range timeLayouts {
			if t, err := time.Parse(dl+" "+tl, text); err == nil {
				return dateTextSerial(t)
			}
		}
	}
	return 0, false
}

func dateTextSerial(t time.Time) (float64, bool) {
	serial := timeToSerial(t)
	return serial, validSerial(serial)
}
