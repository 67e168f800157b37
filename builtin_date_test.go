package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestSerialConversion(t *testing.T) {
	tests := []struct {
		date   time.Time
		serial float64
	}{
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC), 59},
		{time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), 61},
		{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 36161},
		{time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), 45306.75},
		{time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), maxDateSerial},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format(time.DateOnly), func(t *testing.T) {
			assert.Equal(t, tt.serial, timeToSerial(tt.date))
			assert.True(t, tt.date.Equal(serialToTime(tt.serial)))
		})
	}
}

func TestDateFunctions(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{"=DATE(2024, 1, 15)", 45306},
		{"=DATE(1900, 1, 1)", 1},
		{"=DATE(1900, 3, 1)", 61},
		{"=DATE(2024, 13, 1)", 45658},
		{"=DATE(2024, 1, 0)", 45291},
		{"=DATE(99, 1, 1)", 36161},
		{"=DATE(10000, 1, 1)", ErrorNumericInvalid},
		{"=YEAR(45306)", 2024},
		{"=MONTH(45306)", 1},
		{"=DAY(45306)", 15},
		{"=YEAR(-1)", ErrorNumericInvalid},
		{"=ISOWEEKNUM(45306)", 3},
		{"=WEEKDAY(45306)", 2},
		{"=WEEKDAY(45306, 2)", 1},
		{"=WEEKDAY(45306, 3)", 0},
		{"=WEEKDAY(45306, 11)", 1},
		{"=WEEKDAY(45306, 12)", 7},
		{"=WEEKDAY(45306, 17)", 2},
		{"=WEEKDAY(45306, 4)", ErrorNumericInvalid},
		{"=EDATE(DATE(2024, 1, 31), 1)", 45351},
		{"=EDATE(DATE(2024, 3, 31), -1)", 45351},
		{"=EOMONTH(DATE(2024, 1, 31), 1)", 45351},
		{"=EOMONTH(DATE(2024, 1, 15), 0)", 45322},
		{"=DAYS(DATE(2024, 3, 1), DATE(2024, 2, 1))", 29},
		{`=DAYS("2024-03-01", "2024-02-01")`, 29},
		{`="2024-01-15"+1`, 45307},
	})
}

func TestWeekNum(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{"=WEEKNUM(45306)", 3},
		{"=WEEKNUM(45306, 2)", 3},
		{"=WEEKNUM(DATE(2024, 1, 6))", 1},
		{"=WEEKNUM(DATE(2024, 1, 7))", 2},
		{"=WEEKNUM(DATE(2024, 1, 7), 2)", 1},
		{"=WEEKNUM(DATE(2024, 1, 7), 11)", 1},
		{"=WEEKNUM(DATE(2024, 1, 6), 16)", 2},
		{"=WEEKNUM(DATE(2024, 1, 5), 16)", 1},
		{"=WEEKNUM(DATE(2024, 12, 31), 21)", 1},
		{"=WEEKNUM(45306, 3)", ErrorNumericInvalid},
		{"=WEEKNUM(-1)", ErrorNumericInvalid},
	})
}

func TestWorkdays(t *testing.T) {
	// a Wednesday and a Saturday
	b := newTestBook(t).column("B1", 45301, 45297)
	b.check(t, []formulaCase{
		{"=NETWORKDAYS(DATE(2024, 1, 1), DATE(2024, 1, 31))", 23},
		{"=NETWORKDAYS(DATE(2024, 1, 1), DATE(2024, 1, 31), B1:B2)", 22},
		{"=NETWORKDAYS(DATE(2024, 1, 31), DATE(2024, 1, 1), B1:B2)", -22},
		{"=NETWORKDAYS(DATE(2024, 1, 1), DATE(2024, 1, 31), {45301, 45306})", 21},
		{"=NETWORKDAYS(DATE(2024, 1, 6), DATE(2024, 1, 7))", 0},
		{"=NETWORKDAYS(45306, 45306)", 1},
		{`=NETWORKDAYS(45306, 45310, "x")`, ErrorInvalidValue},
		{"=NETWORKDAYS(-1, 45306)", ErrorNumericInvalid},
		{"=WORKDAY(DATE(2024, 1, 1), 10)", 45306},
		{"=WORKDAY(DATE(2024, 1, 1), 10, B1:B2)", 45307},
		{"=WORKDAY(DATE(2024, 1, 5), 1)", 45299},
		{"=WORKDAY(45306, -3)", 45301},
		{"=WORKDAY(45306, 0)", 45306},
		{"=WORKDAY(2, -5)", ErrorNumericInvalid},
	})
}

func TestDayCountFunctions(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{"=DAYS360(DATE(2024, 1, 30), DATE(2024, 2, 29))", 29},
		{"=DAYS360(DATE(2024, 1, 1), DATE(2024, 12, 31))", 360},
		{"=DAYS360(DATE(2024, 1, 1), DATE(2024, 12, 31), TRUE)", 359},
		{"=DAYS360(DATE(2024, 2, 29), DATE(2024, 3, 31))", 30},
		{"=DAYS360(DATE(2024, 3, 31), DATE(2024, 1, 1))", -89},
		{"=YEARFRAC(DATE(2024, 1, 1), DATE(2024, 7, 1))", 0.5},
		{"=YEARFRAC(DATE(2024, 7, 1), DATE(2024, 1, 1))", 0.5},
		{"=YEARFRAC(DATE(2024, 1, 1), DATE(2024, 7, 1), 1)", 182.0 / 366},
		{"=YEARFRAC(DATE(2024, 1, 1), DATE(2024, 7, 1), 2)", 182.0 / 360},
		{"=YEARFRAC(DATE(2024, 1, 1), DATE(2024, 7, 1), 3)", 182.0 / 365},
		{"=YEARFRAC(DATE(2024, 1, 1), DATE(2024, 7, 1), 4)", 0.5},
		{"=YEARFRAC(DATE(2023, 2, 28), DATE(2024, 2, 29))", 1},
		{"=YEARFRAC(DATE(2023, 3, 1), DATE(2024, 3, 1), 1)", 1},
		{"=YEARFRAC(DATE(2023, 1, 1), DATE(2025, 1, 1), 1)", 731 / (1096.0 / 3)},
		{"=YEARFRAC(45306, 45307, 5)", ErrorNumericInvalid},
	})
}

func TestDateDif(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "Y")`, 3},
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "M")`, 43},
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "D")`, 1335},
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "ym")`, 7},
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "MD")`, 26},
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "YD")`, 240},
		{`=DATEDIF(DATE(2024, 1, 15), DATE(2020, 5, 20), "Y")`, ErrorNumericInvalid},
		{`=DATEDIF(DATE(2020, 5, 20), DATE(2024, 1, 15), "W")`, ErrorNumericInvalid},
	})
}

func TestTimeFunctions(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{"=TIME(12, 30, 0)", 0.5208333333333334},
		{"=TIME(25, 0, 0)", 1.0 / 24},
		{"=TIME(0, 90, 0)", 0.0625},
		{"=TIME(-1, 0, 0)", ErrorNumericInvalid},
		{"=HOUR(0.75)", 18},
		{"=MINUTE(TIME(12, 30, 0))", 30},
		{"=SECOND(TIME(1, 2, 3))", 3},
		{"=HOUR(45306.75)", 18},
	})
}

func TestDateText(t *testing.T) {
	newTestBook(t).check(t, []formulaCase{
		{`=DATEVALUE("2024-01-15")`, 45306},
		{`=DATEVALUE("1/15/2024")`, 45306},
		{`=DATEVALUE("15 Jan 2024")`, 45306},
		{`=DATEVALUE("Jan 15, 2024")`, 45306},
		{`=DATEVALUE("2024-01-15 18:00")`, 45306},
		{`=DATEVALUE("nonsense")`, ErrorInvalidValue},
		{`=TIMEVALUE("18:00")`, 0.75},
		{`=TIMEVALUE("6:00 PM")`, 0.75},
		{`=TIMEVALUE("2024-01-15 12:00")`, 0.5},
		{`=TIMEVALUE("noon")`, ErrorInvalidValue},
	})

	newTestBook(t, WithCulture(language.German)).check(t, []formulaCase{
		{`=DATEVALUE("15.01.2024")`, 45306},
		{`=DATEVALUE("15/01/2024")`, 45306},
	})
}
