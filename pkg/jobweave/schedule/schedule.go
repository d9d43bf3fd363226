// Package schedule implements the builder DSL that lowers high-level
// schedule expressions (every/daily/weekly/monthly/cron) into a
// canonical cron string plus a recurrence descriptor. It mirrors the
// teacher's cron-shorthand handling in devclaw/scheduler/nlp_schedule.go,
// generalized into a typed, immutable builder instead of a best-effort
// natural-language matcher.
package schedule

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jholhewres/jobweave/pkg/jobweave/jerrors"
)

// Type identifies which builder produced a ScheduleDescriptor.
type Type string

const (
	TypeInterval Type = "interval"
	TypeDaily    Type = "daily"
	TypeWeekly   Type = "weekly"
	TypeMonthly  Type = "monthly"
	TypeCron     Type = "cron"
)

// Descriptor is the immutable compiled form of a schedule. Value
// semantics: every mutator (WithTimezone) returns a new Descriptor.
type Descriptor struct {
	Type           Type
	Cron           string
	Timezone       string // IANA zone name, "" means worker default / UTC
	HumanReadable  string
	OriginalParams map[string]string
}

// WithTimezone returns a copy of d scoped to tz. tz must be a loadable
// IANA zone name (validated with time.LoadLocation); "" clears it back
// to worker default.
func (d Descriptor) WithTimezone(tz string) (Descriptor, error) {
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return Descriptor{}, jerrors.NewInputError("withTimezone", tz, "unknown IANA timezone")
		}
	}
	out := d
	out.Timezone = tz
	out.OriginalParams = cloneParams(d.OriginalParams)
	return out, nil
}

func cloneParams(p map[string]string) map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

var dowNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var dowTokens = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// Every compiles an interval schedule, e.g. "15m", "2h", "1d".
func Every(interval string) (Descriptor, error) {
	cron, human, err := lowerInterval(interval)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Type:           TypeInterval,
		Cron:           cron,
		HumanReadable:  human,
		OriginalParams: map[string]string{"interval": interval},
	}, nil
}

// lowerInterval implements the recursive lowering table from §4.1.
// The human text always reflects the *original* token the caller passed
// in (recursion only changes the emitted cron, never the human text).
func lowerInterval(interval string) (cron string, human string, err error) {
	human = humanizeInterval(interval)
	cron, err = lowerIntervalCron(interval)
	if err != nil {
		return "", "", err
	}
	return cron, human, nil
}

func lowerIntervalCron(interval string) (string, error) {
	n, unit, err := parseIntervalToken(interval)
	if err != nil {
		return "", err
	}

	switch unit {
	case "s":
		if n < 60 {
			return fmt.Sprintf("*/%d * * * * *", n), nil
		}
		return lowerIntervalCron(fmt.Sprintf("%dm", ceilDiv(n, 60)))
	case "m":
		if n < 60 {
			return fmt.Sprintf("*/%d * * * *", n), nil
		}
		return lowerIntervalCron(fmt.Sprintf("%dh", ceilDiv(n, 60)))
	case "h":
		if n < 24 {
			return fmt.Sprintf("0 */%d * * *", n), nil
		}
		return lowerIntervalCron(fmt.Sprintf("%dd", ceilDiv(n, 24)))
	case "d":
		if n == 1 {
			return "0 0 * * *", nil
		}
		return fmt.Sprintf("0 0 */%d * *", n), nil
	case "w":
		if n == 1 {
			return "0 0 * * 0", nil
		}
		return lowerIntervalCron(fmt.Sprintf("%dd", n*7))
	default:
		return "", jerrors.NewInputError("every", interval, "unsupported unit")
	}
}

func ceilDiv(n, d int) int {
	return int(math.Ceil(float64(n) / float64(d)))
}

func humanizeInterval(interval string) string {
	n, unit, err := parseIntervalToken(interval)
	if err != nil {
		return interval
	}
	var noun string
	switch unit {
	case "s":
		noun = "second"
	case "m":
		noun = "minute"
	case "h":
		noun = "hour"
	case "d":
		noun = "day"
	case "w":
		noun = "week"
	}
	if n != 1 {
		noun += "s"
	}
	return fmt.Sprintf("every %d %s", n, noun)
}

// Daily compiles a schedule that fires once per day for each clock time
// given. All times must share the same hour or the same minute.
func Daily(times ...string) (Descriptor, error) {
	if len(times) == 0 {
		return Descriptor{}, jerrors.NewInputError("daily", "", "at least one time is required")
	}

	hours := make([]int, 0, len(times))
	minutes := make([]int, 0, len(times))
	for _, t := range times {
		h, m, err := parseClock(t)
		if err != nil {
			return Descriptor{}, err
		}
		hours = append(hours, h)
		minutes = append(minutes, m)
	}

	distinctHours := dedupSortedInts(hours)
	distinctMinutes := dedupSortedInts(minutes)

	var cron string
	switch {
	case len(distinctHours) == 1:
		cron = fmt.Sprintf("%s %d * * *", joinInts(distinctMinutes), distinctHours[0])
	case len(distinctMinutes) == 1:
		cron = fmt.Sprintf("%d %s * * *", distinctMinutes[0], joinInts(distinctHours))
	default:
		return Descriptor{}, jerrors.NewInputError("daily", strings.Join(times, ","),
			"times must share the same hour or the same minute")
	}

	parts := make([]string, len(times))
	for i, t := range times {
		h, m, _ := parseClock(t)
		parts[i] = formatClock12(h, m)
	}

	return Descriptor{
		Type:          TypeDaily,
		Cron:          cron,
		HumanReadable: "daily at " + joinEnglish(parts),
		OriginalParams: map[string]string{
			"times": strings.Join(times, ","),
		},
	}, nil
}

// Weekly compiles a schedule that fires on the given days of week at a
// single clock time. Day tokens are case-insensitive three-letter or
// full English names (sun..sat); duplicates are ignored.
func Weekly(days []string, at string) (Descriptor, error) {
	if len(days) == 0 {
		return Descriptor{}, jerrors.NewInputError("weekly", at, "at least one day is required")
	}
	hour, minute, err := parseClock(at)
	if err != nil {
		return Descriptor{}, err
	}

	seen := make(map[int]bool)
	for _, d := range days {
		n, ok := dowTokens[strings.ToLower(d)[:min(3, len(d))]]
		if !ok {
			return Descriptor{}, jerrors.NewInputError("weekly", d, "unknown day of week")
		}
		seen[n] = true
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	names := make([]string, len(nums))
	for i, n := range nums {
		names[i] = dowNames[n]
	}

	cron := fmt.Sprintf("%d %d * * %s", minute, hour, joinInts(nums))
	return Descriptor{
		Type:          TypeWeekly,
		Cron:          cron,
		HumanReadable: "every " + joinEnglish(names) + " at " + formatClock12(hour, minute),
		OriginalParams: map[string]string{
			"days": strings.Join(days, ","),
			"at":   at,
		},
	}, nil
}

var lastWeekdayPattern = regexp.MustCompile(`^last-(\w+)$`)

// Monthly compiles a schedule that fires once per month, either on a
// fixed day-of-month ("1".."31") or on the last occurrence of a weekday
// ("last-fri").
func Monthly(day string, at string) (Descriptor, error) {
	hour, minute, err := parseClock(at)
	if err != nil {
		return Descriptor{}, err
	}

	if m := lastWeekdayPattern.FindStringSubmatch(strings.ToLower(day)); m != nil {
		dow, ok := dowTokens[m[1][:min(3, len(m[1]))]]
		if !ok {
			return Descriptor{}, jerrors.NewInputError("monthly", day, "unknown day of week")
		}
		cron := fmt.Sprintf("%d %d * * %dL", minute, hour, dow)
		human := fmt.Sprintf("last %s of every month at %s", dowNames[dow], formatClock12(hour, minute))
		return Descriptor{
			Type:          TypeMonthly,
			Cron:          cron,
			HumanReadable: human,
			OriginalParams: map[string]string{
				"day": day,
				"at":  at,
			},
		}, nil
	}

	n, err := strconv.Atoi(day)
	if err != nil || n < 1 || n > 31 {
		return Descriptor{}, jerrors.NewInputError("monthly", day, "day must be 1-31 or \"last-<weekday>\"")
	}

	cron := fmt.Sprintf("%d %d %d * *", minute, hour, n)
	human := fmt.Sprintf("on day %d of every month at %s", n, formatClock12(hour, minute))
	return Descriptor{
		Type:          TypeMonthly,
		Cron:          cron,
		HumanReadable: human,
		OriginalParams: map[string]string{
			"day": day,
			"at":  at,
		},
	}, nil
}

// fieldPattern matches a single cron field under the cron() constructor's
// restricted grammar: digits, *, ',', '/', '-', 'L', 'W', '#'.
var fieldPattern = regexp.MustCompile(`^[0-9*,/\-LW#]+$`)

// Cron compiles a raw 5- or 6-field cron expression. The expression is
// canonicalized by trimming and collapsing whitespace between fields;
// field contents are otherwise passed through verbatim for the
// evaluator to interpret.
func Cron(expr string) (Descriptor, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 && len(fields) != 6 {
		return Descriptor{}, jerrors.NewInputError("cron", expr, "must have 5 or 6 whitespace-separated fields")
	}
	for _, f := range fields {
		if !fieldPattern.MatchString(f) {
			return Descriptor{}, jerrors.NewInputError("cron", expr, fmt.Sprintf("invalid field %q", f))
		}
	}
	canonical := strings.Join(fields, " ")
	return Descriptor{
		Type:          TypeCron,
		Cron:          canonical,
		HumanReadable: fmt.Sprintf("cron(%s)", canonical),
		OriginalParams: map[string]string{
			"expr": expr,
		},
	}, nil
}

// ---------- formatting helpers ----------

func dedupSortedInts(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, v := range in {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func formatClock12(hour, minute int) string {
	suffix := "AM"
	h := hour
	if h == 0 {
		h = 12
	} else if h == 12 {
		suffix = "PM"
	} else if h > 12 {
		h -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}

// joinEnglish renders a list with an Oxford comma for 3+ items, a bare
// "and" for 2, and no separator for 1 — matching the scenarios in §8
// ("9:00 AM and 5:00 PM", "Monday, Wednesday, and Friday").
func joinEnglish(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
