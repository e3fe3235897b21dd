package capacity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DateRange is an inclusive window of calendar days
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether date falls on or between the range's start and end days
func (r DateRange) Contains(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(r.Start)) && !d.After(truncateDay(r.End))
}

// AvailabilityRules restrict the days an item can be sold on.
// Every configured rule must pass; an empty rule places no restriction.
type AvailabilityRules struct {
	DaysOfWeek    []time.Weekday `json:"days_of_week,omitempty"`
	DateRanges    []DateRange    `json:"date_ranges,omitempty"`
	BlackoutDates []time.Time    `json:"blackout_dates,omitempty"`
}

// Allows evaluates the rules for a calendar day, ignoring capacity and status
func (r AvailabilityRules) Allows(date time.Time) bool {
	if len(r.DaysOfWeek) > 0 {
		allowed := false
		for _, wd := range r.DaysOfWeek {
			if wd == date.Weekday() {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	for _, blackout := range r.BlackoutDates {
		if sameDay(blackout, date) {
			return false
		}
	}

	if len(r.DateRanges) > 0 {
		for _, dr := range r.DateRanges {
			if dr.Contains(date) {
				return true
			}
		}
		return false
	}

	return true
}

// Value implements driver.Valuer
func (r AvailabilityRules) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *AvailabilityRules) Scan(value any) error {
	return scanJSON(value, r)
}

func scanJSON(value any, dest any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSON column")
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
