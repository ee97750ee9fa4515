// Package cronspec validates five-field cron expressions and computes next
// trigger times for server schedules.
package cronspec

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the standard five fields: minute, hour, day-of-month,
// month, day-of-week.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Expression is a cron expression with its five fields kept separate, the
// way schedule tools receive them.
type Expression struct {
	Minute     string
	Hour       string
	DayOfMonth string
	Month      string
	DayOfWeek  string
}

// String renders the expression in standard field order.
func (e Expression) String() string {
	return fmt.Sprintf("%s %s %s %s %s", e.Minute, e.Hour, e.DayOfMonth, e.Month, e.DayOfWeek)
}

// Validate reports whether the expression parses.
func Validate(e Expression) error {
	if _, err := parser.Parse(e.String()); err != nil {
		return fmt.Errorf("cronspec: invalid expression %q: %w", e.String(), err)
	}
	return nil
}

// NextRun computes the first trigger strictly after from.
func NextRun(e Expression, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(e.String())
	if err != nil {
		return time.Time{}, fmt.Errorf("cronspec: invalid expression %q: %w", e.String(), err)
	}
	return sched.Next(from), nil
}
