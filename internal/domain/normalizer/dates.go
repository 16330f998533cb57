package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// excelEpochOffset is the serial of 1970-01-01 in the spreadsheet date system.
const excelEpochOffset = 25569

// dayMonthYear matches DD/MM/YYYY or DD/MM/YY with an optional time of day,
// which is dropped.
var dayMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})(?:[ T]+\d{1,2}:\d{2}(?::\d{2})?)?$`)

// textDateLayouts are tried in order for dates that are not DD/MM/YYYY.
var textDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
}

// ParseDate reduces a cell to a calendar date.
//
// Native date/time cells keep their own wall-clock date, so the result does
// not depend on the host time zone. Numbers are spreadsheet serials.
func ParseDate(c Cell) (ledger.Date, error) {
	switch c.Kind {
	case CellTime:
		if c.Time.IsZero() {
			return ledger.Date{}, fmt.Errorf("zero time value")
		}
		return ledger.DateOf(c.Time), nil
	case CellNumber:
		return dateFromSerial(c.Number)
	case CellText:
		return parseDateText(c.Text)
	default:
		return ledger.Date{}, fmt.Errorf("empty date cell")
	}
}

func dateFromSerial(serial float64) (ledger.Date, error) {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return ledger.Date{}, fmt.Errorf("invalid date serial %v", serial)
	}
	secs := math.Round((serial - excelEpochOffset) * 86400)
	return ledger.DateOf(time.Unix(int64(secs), 0).UTC()), nil
}

func parseDateText(s string) (ledger.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ledger.Date{}, fmt.Errorf("empty date string")
	}

	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		d := ledger.NewDate(year, time.Month(month), day)
		// NewDate normalizes 31/02 into March; reject instead.
		if d.Day != day || int(d.Month) != month {
			return ledger.Date{}, fmt.Errorf("invalid date %q", s)
		}
		return d, nil
	}

	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ledger.DateOf(t), nil
		}
	}

	return ledger.Date{}, fmt.Errorf("unable to parse date %q", s)
}
