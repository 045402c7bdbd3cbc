package schedule

import (
	"fmt"
	"time"
)

// NextFire computes the first fire instant strictly after the given
// time. Times are wall clock in the reference time's location. A
// monthly day-of-month beyond the month's length clamps to its last
// day, so a day-31 schedule fires on April 30 rather than skipping
// April.
func NextFire(def Definition, after time.Time) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(def.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	switch def.Frequency {
	case Daily:
		candidate := atTime(after, 0, hour, minute)
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case Weekly:
		allowed := make(map[time.Weekday]bool, len(def.Weekdays))
		for _, day := range def.Weekdays {
			allowed[day] = true
		}
		for offset := 0; offset <= 7; offset++ {
			candidate := atTime(after, offset, hour, minute)
			if allowed[candidate.Weekday()] && candidate.After(after) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("schedule: no weekday match for %q", def.Name)

	case Monthly:
		year, month, _ := after.Date()
		for offset := 0; offset <= 1; offset++ {
			// time.Date normalizes a month past December into the next year
			m := month + time.Month(offset)
			day := clampDay(year, m, def.DayOfMonth)
			candidate := time.Date(year, m, day, hour, minute, 0, 0, after.Location())
			if candidate.After(after) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("schedule: no monthly match for %q", def.Name)

	default:
		return time.Time{}, fmt.Errorf("schedule: unknown frequency %q", def.Frequency)
	}
}

func atTime(ref time.Time, dayOffset, hour, minute int) time.Time {
	year, month, day := ref.AddDate(0, 0, dayOffset).Date()
	return time.Date(year, month, day, hour, minute, 0, 0, ref.Location())
}

// clampDay limits a requested day of month to the month's actual length.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}
