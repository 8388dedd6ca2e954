// Package cronexpr converts human scheduling intent into five-field cron
// expressions and back. All arithmetic is in UTC; a timezone parameter is
// accepted at the API boundary for forward compatibility but always resolves
// to UTC.
package cronexpr

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Frequency enumerates the supported recurrence kinds.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Recurrence is the tagged representation of a schedule's firing pattern.
// Both the cron expression and the one-shot decision are derived from it,
// so the two representations cannot diverge.
type Recurrence struct {
	Frequency  Frequency
	Minute     int
	Hour       int
	DayOfWeek  time.Weekday // weekly only
	DayOfMonth int          // once and monthly
	Month      time.Month   // once only
}

// New builds a Recurrence from a wall-clock instant and a frequency.
// dayOfWeek applies to weekly schedules and defaults to the instant's own UTC
// weekday when nil; dayOfMonth applies to monthly schedules and defaults to
// the instant's UTC day.
func New(at time.Time, freq Frequency, dayOfWeek *int, dayOfMonth *int) (Recurrence, error) {
	if !freq.Valid() {
		return Recurrence{}, fmt.Errorf("unsupported frequency %q", freq)
	}

	utc := at.UTC()
	r := Recurrence{
		Frequency: freq,
		Minute:    utc.Minute(),
		Hour:      utc.Hour(),
	}

	switch freq {
	case FrequencyOnce:
		r.DayOfMonth = utc.Day()
		r.Month = utc.Month()
	case FrequencyWeekly:
		r.DayOfWeek = utc.Weekday()
		if dayOfWeek != nil {
			if *dayOfWeek < 0 || *dayOfWeek > 6 {
				return Recurrence{}, fmt.Errorf("day of week %d out of range 0-6", *dayOfWeek)
			}
			r.DayOfWeek = time.Weekday(*dayOfWeek)
		}
	case FrequencyMonthly:
		r.DayOfMonth = utc.Day()
		if dayOfMonth != nil {
			if *dayOfMonth < 1 || *dayOfMonth > 31 {
				return Recurrence{}, fmt.Errorf("day of month %d out of range 1-31", *dayOfMonth)
			}
			r.DayOfMonth = *dayOfMonth
		}
	}

	return r, nil
}

// Expression renders the five-field cron string for the recurrence.
func (r Recurrence) Expression() string {
	switch r.Frequency {
	case FrequencyOnce:
		return fmt.Sprintf("%d %d %d %d *", r.Minute, r.Hour, r.DayOfMonth, int(r.Month))
	case FrequencyWeekly:
		return fmt.Sprintf("%d %d * * %d", r.Minute, r.Hour, int(r.DayOfWeek))
	case FrequencyMonthly:
		return fmt.Sprintf("%d %d %d * *", r.Minute, r.Hour, r.DayOfMonth)
	default:
		return fmt.Sprintf("%d %d * * *", r.Minute, r.Hour)
	}
}

// OneShot reports whether the recurrence fires exactly once.
func (r Recurrence) OneShot() bool {
	return r.Frequency == FrequencyOnce
}

// Next returns the first fire instant strictly after the given time.
func (r Recurrence) Next(after time.Time) (time.Time, error) {
	return NextRun(r.Expression(), after)
}

// Explain renders a human-readable description of the recurrence.
func (r Recurrence) Explain() string {
	at := fmt.Sprintf("%02d:%02d UTC", r.Hour, r.Minute)
	switch r.Frequency {
	case FrequencyOnce:
		return fmt.Sprintf("Once on %s %d at %s", r.Month, r.DayOfMonth, at)
	case FrequencyWeekly:
		return fmt.Sprintf("Weekly on %s at %s", r.DayOfWeek, at)
	case FrequencyMonthly:
		return fmt.Sprintf("Monthly on day %d at %s", r.DayOfMonth, at)
	default:
		return fmt.Sprintf("Daily at %s", at)
	}
}

// ToCron converts an instant and a frequency straight to a cron expression.
func ToCron(at time.Time, freq Frequency, dayOfWeek *int, dayOfMonth *int) (string, error) {
	r, err := New(at, freq, dayOfWeek, dayOfMonth)
	if err != nil {
		return "", err
	}
	return r.Expression(), nil
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks that expr is a well-formed five-field cron expression.
func Validate(expr string) error {
	_, err := parser.Parse(expr)
	return err
}

// NextRun computes the first instant strictly after the given time at which
// expr fires, in UTC.
func NextRun(expr string, after time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return sched.Next(after.UTC()).UTC(), nil
}

// Infer derives the recurrence kind of a well-formed expression from its
// field shape: pinned day-of-month and month mean a one-time firing, a fixed
// day-of-week means weekly, a fixed day-of-month means monthly, anything else
// daily. Inverse of Expression for every Recurrence this package produces.
func Infer(expr string) (Frequency, error) {
	if err := Validate(expr); err != nil {
		return "", fmt.Errorf("invalid cron expression: %w", err)
	}
	fields := strings.Fields(expr)
	switch {
	case !strings.Contains(fields[2], "*") && !strings.Contains(fields[3], "*"):
		return FrequencyOnce, nil
	case !strings.Contains(fields[4], "*"):
		return FrequencyWeekly, nil
	case !strings.Contains(fields[2], "*"):
		return FrequencyMonthly, nil
	default:
		return FrequencyDaily, nil
	}
}

// Pinned reports whether expr describes a one-time firing, i.e. both the
// day-of-month and month fields are fixed values. Recurring daily and weekly
// expressions keep a wildcard in at least one of those two fields. Used only
// for schedules created from a raw cron string where no frequency was
// recorded.
func Pinned(expr string) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	return !strings.Contains(fields[2], "*") && !strings.Contains(fields[3], "*")
}

// Validation error codes returned by ValidateFutureDateTime.
const (
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeNotInFuture   = "NOT_IN_FUTURE"
)

// ValidationResult is the outcome of a future-instant check.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ValidateFutureDateTime checks that the instant composed from a
// "2006-01-02" date and a "15:04" (or "15:04:05") time is strictly in the
// future. This is a point-in-time check: a validated instant can still become
// overdue before the schedule is persisted.
func ValidateFutureDateTime(date, clock string) ValidationResult {
	return validateFutureDateTimeAt(date, clock, time.Now().UTC())
}

func validateFutureDateTimeAt(date, clock string, now time.Time) ValidationResult {
	composed := date + "T" + clock
	layouts := []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

	var at time.Time
	var err error
	for _, layout := range layouts {
		at, err = time.ParseInLocation(layout, composed, time.UTC)
		if err == nil {
			break
		}
	}
	if err != nil {
		return ValidationResult{
			IsValid: false,
			Code:    CodeInvalidFormat,
			Error:   fmt.Sprintf("cannot parse %q as a UTC date/time", composed),
		}
	}

	if !at.After(now) {
		return ValidationResult{
			IsValid: false,
			Code:    CodeNotInFuture,
			Error:   fmt.Sprintf("%s is not in the future", at.Format(time.RFC3339)),
		}
	}

	return ValidationResult{IsValid: true}
}
