package schedule

import (
	"regexp"
	"strconv"
	"time"

	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
)

// ParseDurationMillis parses a Go-style duration string ("30s", "5m",
// "1h30m", "50ms") into integer milliseconds. It is the general-purpose
// duration parser used for retry.initialDelay and job.timeout; it
// delegates to time.ParseDuration rather than reinventing unit math.
func ParseDurationMillis(s string) (int64, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, jerrors.NewInputError("parseDuration", s, err.Error())
	}
	if d <= 0 {
		return 0, jerrors.NewInputError("parseDuration", s, "must be positive")
	}
	return d.Milliseconds(), nil
}

// intervalPattern matches the every() builder's restricted token
// grammar: a positive integer followed by a single unit letter.
var intervalPattern = regexp.MustCompile(`^(\d+)(s|m|h|d|w)$`)

// parseIntervalToken parses an every() interval token such as "15m" or
// "2d". Unlike ParseDurationMillis it accepts "d" and "w" units (not
// supported by time.ParseDuration) because every() lowers those to
// cron expressions, never to a time.Duration.
func parseIntervalToken(s string) (n int, unit string, err error) {
	m := intervalPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", jerrors.NewInputError("every", s, `must match ^(\d+)(s|m|h|d|w)$`)
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil || n <= 0 {
		return 0, "", jerrors.NewInputError("every", s, "value must be > 0")
	}
	return n, m[2], nil
}

// clockPattern matches a 24-hour "HH:MM" clock string.
var clockPattern = regexp.MustCompile(`^([0-2]?[0-9]):([0-5][0-9])$`)

// parseClock parses a 24-hour "HH:MM" string into hour and minute.
func parseClock(s string) (hour, minute int, err error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, jerrors.NewInputError("clock", s, `must match "HH:MM"`)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 {
		return 0, 0, jerrors.NewInputError("clock", s, "hour must be 0-23")
	}
	return hour, minute, nil
}
