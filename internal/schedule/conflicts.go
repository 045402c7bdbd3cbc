package schedule

import "time"

// Conflicts reports the names of enabled schedules whose fire windows
// collide with the candidate's. Two schedules collide when their times
// of day are within the tolerance, their recurrence patterns can land
// on the same day, and their operation sets intersect. The result is
// advisory only; conflicting schedules are still allowed to exist.
func Conflicts(candidate Definition, existing []Definition, tolerance time.Duration) []string {
	var names []string
	for _, other := range existing {
		if other.ID == candidate.ID || !other.Enabled {
			continue
		}
		if !withinTolerance(candidate.TimeOfDay, other.TimeOfDay, tolerance) {
			continue
		}
		if !daysOverlap(candidate, other) {
			continue
		}
		if !operationsIntersect(candidate.Operations, other.Operations) {
			continue
		}
		names = append(names, other.Name)
	}
	return names
}

func withinTolerance(a, b string, tolerance time.Duration) bool {
	ah, am, err := parseTimeOfDay(a)
	if err != nil {
		return false
	}
	bh, bm, err := parseTimeOfDay(b)
	if err != nil {
		return false
	}
	diff := time.Duration(ah-bh)*time.Hour + time.Duration(am-bm)*time.Minute
	if diff < 0 {
		diff = -diff
	}
	// midnight wrap: 23:59 and 00:01 are two minutes apart
	if wrapped := 24*time.Hour - diff; wrapped < diff {
		diff = wrapped
	}
	return diff <= tolerance
}

// daysOverlap reports whether two recurrence patterns can fire on the
// same calendar day. Daily overlaps everything; a weekly and a monthly
// schedule eventually share a day, so they always overlap.
func daysOverlap(a, b Definition) bool {
	if a.Frequency == Daily || b.Frequency == Daily {
		return true
	}
	if a.Frequency == Weekly && b.Frequency == Weekly {
		set := make(map[time.Weekday]bool, len(a.Weekdays))
		for _, day := range a.Weekdays {
			set[day] = true
		}
		for _, day := range b.Weekdays {
			if set[day] {
				return true
			}
		}
		return false
	}
	if a.Frequency == Monthly && b.Frequency == Monthly {
		return a.DayOfMonth == b.DayOfMonth
	}
	return true
}

func operationsIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, op := range a {
		set[op] = true
	}
	for _, op := range b {
		if set[op] {
			return true
		}
	}
	return false
}
