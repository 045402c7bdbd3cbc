package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency selects the recurrence pattern of a schedule.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ErrNotFound indicates no schedule exists with the given id.
var ErrNotFound = errors.New("schedule: not found")

// Definition is one recurring schedule.
type Definition struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Operations []string       `json:"operations"`
	Frequency  Frequency      `json:"frequency"`
	TimeOfDay  string         `json:"time_of_day"`
	Weekdays   []time.Weekday `json:"weekdays,omitempty"`
	DayOfMonth int            `json:"day_of_month,omitempty"`
	Enabled    bool           `json:"enabled"`
	LastFired  time.Time      `json:"last_fired_at,omitempty"`
	NextFire   time.Time      `json:"next_fire_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Validate checks the definition is complete for its frequency.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("schedule: name must be set")
	}
	if len(d.Operations) == 0 {
		return errors.New("schedule: at least one operation required")
	}
	if _, _, err := parseTimeOfDay(d.TimeOfDay); err != nil {
		return err
	}
	switch d.Frequency {
	case Daily:
	case Weekly:
		if len(d.Weekdays) == 0 {
			return errors.New("schedule: weekly schedule requires weekdays")
		}
	case Monthly:
		if d.DayOfMonth < 1 || d.DayOfMonth > 31 {
			return fmt.Errorf("schedule: day_of_month %d out of range", d.DayOfMonth)
		}
	default:
		return fmt.Errorf("schedule: unknown frequency %q", d.Frequency)
	}
	return nil
}

// parseTimeOfDay parses "HH:MM" into hour and minute.
func parseTimeOfDay(value string) (int, int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schedule: time of day %q not in HH:MM form", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule: invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule: invalid minute in %q", value)
	}
	return hour, minute, nil
}
