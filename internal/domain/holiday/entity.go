package holiday

import (
	"database/sql"
	"time"
)

type ScheduleRule string

const (
	// RuleFixedDate resolves to the same month/day every year.
	RuleFixedDate ScheduleRule = "fixed_date"
	// RuleNthWeekday resolves to the nth weekday of a month (e.g. third Monday
	// of February). WeekOrdinal -1 means the last such weekday of the month.
	RuleNthWeekday ScheduleRule = "nth_weekday"
	// RuleYearList resolves to a fixed month/day, but only in the listed years.
	RuleYearList ScheduleRule = "year_list"
)

type Holiday struct {
	ID          int64        `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	Rule        ScheduleRule `json:"rule" db:"rule"`

	// Occurrence data. Month/Day are used by fixed_date and year_list;
	// Weekday/WeekOrdinal by nth_weekday.
	Month         sql.NullInt32 `json:"month,omitempty" db:"month"`
	Day           sql.NullInt32 `json:"day,omitempty" db:"day"`
	Weekday       sql.NullInt32 `json:"weekday,omitempty" db:"weekday"`
	WeekOrdinal   sql.NullInt32 `json:"week_ordinal,omitempty" db:"week_ordinal"`
	ObservedYears []int32       `json:"observed_years,omitempty" db:"observed_years"`

	Recurring bool `json:"recurring" db:"recurring"`

	// Placement window offsets in calendar days around the occurrence.
	// Nullable on purpose: admin data has degraded before, and the scheduler
	// must refuse such holidays instead of assuming an offset.
	PlacementDaysBefore sql.NullInt32 `json:"placement_days_before,omitempty" db:"placement_days_before"`
	RemovalDaysAfter    sql.NullInt32 `json:"removal_days_after,omitempty" db:"removal_days_after"`

	Active    bool      `json:"active" db:"active"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ObservedIn reports whether a year_list holiday occurs in the given year.
func (h *Holiday) ObservedIn(year int) bool {
	for _, y := range h.ObservedYears {
		if int(y) == year {
			return true
		}
	}
	return false
}
