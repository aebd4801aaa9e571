package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day-month-year format the operator types dates in.
const DateLayout = "02-01-2006"

const periodLayout = "20060102"

// ParseDate parses a dd-mm-yyyy date in loc. The input must be exactly
// what formatting the parsed date produces, so "1-5-2024" or "2024-05-01"
// are rejected.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil || t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("input format should be dd-mm-yyyy")
	}
	return t, nil
}

// DefaultRange returns the suggested from and to answers: one month back
// from today, and today.
func DefaultRange(today time.Time) (from, to string) {
	return today.AddDate(0, -1, 0).Format(DateLayout), today.Format(DateLayout)
}

// DateRange is the inclusive billing window chosen by the operator.
type DateRange struct {
	From time.Time
	To   time.Time
}

var ErrRangeReversed = errors.New("the end date cannot be before the start date")

// NewDateRange parses both answers in loc. A range ending before it
// starts is rejected; a single day is allowed.
func NewDateRange(from, to string, loc *time.Location) (DateRange, error) {
	f, err := ParseDate(from, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("from date %q: %w", from, err)
	}
	t, err := ParseDate(to, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("to date %q: %w", to, err)
	}
	if t.Before(f) {
		return DateRange{}, ErrRangeReversed
	}
	return DateRange{From: f, To: t}, nil
}

// Window returns the query bounds: the start of the first day and 23:59
// on the last day.
func (r DateRange) Window() (start, end time.Time) {
	start = time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, r.From.Location())
	end = time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 23, 59, 0, 0, r.To.Location())
	return start, end
}

// Period returns the range as a period interval.
func (r DateRange) Period() Period {
	return Period{From: r.From, To: r.To}
}

func (r DateRange) String() string {
	return r.From.Format(DateLayout) + " to " + r.To.Format(DateLayout)
}

// Period is a billed service window, written as "YYYYMMDD..YYYYMMDD".
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) String() string {
	return p.From.Format(periodLayout) + ".." + p.To.Format(periodLayout)
}

func ParsePeriod(s string) (Period, error) {
	from, to, ok := strings.Cut(s, "..")
	if !ok {
		return Period{}, fmt.Errorf("period %q: missing \"..\" separator", s)
	}
	f, err := time.Parse(periodLayout, from)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", s, err)
	}
	t, err := time.Parse(periodLayout, to)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", s, err)
	}
	return Period{From: f, To: t}, nil
}

// ExtendPeriod moves the end of an existing period to to when that is
// later. The start is never changed. An empty or unreadable existing
// period is returned unchanged.
func ExtendPeriod(existing string, to time.Time) string {
	if existing == "" {
		return existing
	}
	p, err := ParsePeriod(existing)
	if err != nil {
		return existing
	}
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if end.After(p.To) {
		p.To = end
	}
	return p.String()
}

// MergedPeriod is the period of an invoice that combines an existing
// draft with lines for r: the draft's period extended to r.To, or r's
// period when the draft has none.
func MergedPeriod(draftPeriod string, r DateRange) string {
	if draftPeriod != "" {
		if _, err := ParsePeriod(draftPeriod); err == nil {
			return ExtendPeriod(draftPeriod, r.To)
		}
	}
	return r.Period().String()
}
