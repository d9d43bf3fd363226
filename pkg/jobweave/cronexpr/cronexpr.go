// Package cronexpr computes next-firing instants from a canonical cron
// string and drives periodic firings for the scheduler/worker. It wraps
// github.com/robfig/cron/v3 for standard field parsing (5- or 6-field,
// *, N, lists, ranges, steps) the way devclaw/scheduler/scheduler.go
// configures cron.NewParser, and layers the builder DSL's "last
// weekday of month" (dL) suffix on top, since robfig/cron/v3 has no
// notion of it.
package cronexpr

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
)

// fiveFieldParser parses standard 5-field cron expressions.
var fiveFieldParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// sixFieldParser parses 6-field cron expressions with a leading seconds field.
var sixFieldParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule is a compiled, location-bound cron expression capable of
// computing its own next firing instant.
type Schedule struct {
	expr     string
	loc      *time.Location
	base     cron.Schedule
	lastWeek bool
	targetDow int
}

// Parse compiles a canonical 5- or 6-field cron expression in the given
// IANA timezone ("" means UTC). It accepts the builder DSL's dL
// day-of-week suffix (e.g. "0 17 * * 5L") in addition to everything
// robfig/cron/v3 understands natively.
func Parse(expr, timezone string) (*Schedule, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, jerrors.NewInputError("cronexpr.Parse", timezone, "unknown IANA timezone")
		}
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 && len(fields) != 6 {
		return nil, jerrors.NewInputError("cronexpr.Parse", expr, "must have 5 or 6 fields")
	}

	dowIdx := len(fields) - 1
	dowField := fields[dowIdx]

	lastWeek := false
	targetDow := 0
	if strings.HasSuffix(dowField, "L") && dowField != "L" {
		num := strings.TrimSuffix(dowField, "L")
		dow, err := parseSingleDow(num)
		if err != nil {
			return nil, jerrors.NewInputError("cronexpr.Parse", expr, "invalid dL day-of-week: "+num)
		}
		lastWeek = true
		targetDow = dow
		// For the underlying library, match every day of week; jobweave
		// filters candidates down to the last occurrence itself.
		fields = append([]string{}, fields...)
		fields[dowIdx] = "*"
	}

	parser := fiveFieldParser
	if len(fields) == 6 {
		parser = sixFieldParser
	}

	base, err := parser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, jerrors.NewInputError("cronexpr.Parse", expr, err.Error())
	}

	return &Schedule{
		expr:      expr,
		loc:       loc,
		base:      base,
		lastWeek:  lastWeek,
		targetDow: targetDow,
	}, nil
}

func parseSingleDow(s string) (int, error) {
	n, err := parseUint(s)
	if err != nil {
		return 0, err
	}
	if n > 7 {
		return 0, jerrors.NewInputError("dow", s, "must be 0-7")
	}
	return n % 7, nil // cron allows 7 for Sunday
}

func parseUint(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, jerrors.NewInputError("dow", s, "empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, jerrors.NewInputError("dow", s, "not numeric")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// Next returns the first instant strictly after `after`, in the
// schedule's timezone, at which this schedule fires. For a dL
// ("last weekday of month") schedule it walks day-granularity
// candidates from the underlying schedule until it finds one that
// both matches the target weekday and is the last such weekday in its
// month — identified by the fact that candidate+7d rolls into the next
// month.
func (s *Schedule) Next(after time.Time) time.Time {
	ref := after.In(s.loc)
	if !s.lastWeek {
		return s.base.Next(ref)
	}

	candidate := ref
	// Bounded: at most one weekday occurrence (the last) exists per
	// month, and a month holds at most ~5 occurrences of any weekday,
	// so a couple of months of day-granularity candidates is always enough.
	for i := 0; i < 500; i++ {
		candidate = s.base.Next(candidate)
		if int(candidate.Weekday()) == s.targetDow && isLastWeekdayOfMonth(candidate) {
			return candidate
		}
	}
	return time.Time{}
}

func isLastWeekdayOfMonth(t time.Time) bool {
	next := t.AddDate(0, 0, 7)
	return next.Month() != t.Month()
}
