package schedule

import (
	"fmt"
	"time"

	"flagpost-service/internal/domain/holiday"
	"flagpost-service/internal/domain/placement"
	xerrors "flagpost-service/internal/pkg/errors"
)

// Calculator resolves holiday occurrences and placement windows. All date
// arithmetic is calendar-day arithmetic in the service's local time zone;
// values are date-only, so no daylight-saving handling is needed.
type Calculator struct {
	loc *time.Location
}

func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{loc: loc}
}

// ComputeWindow resolves the placement window for a holiday in the given
// reference year. It returns (nil, nil) when the holiday simply does not
// occur that year (a year_list holiday outside its eligible years), and a
// *xerrors.ConfigurationError when the holiday's timing data is unusable.
// Offsets are never defaulted: a null offset is a data-integrity bug that
// must surface, not be papered over.
func (c *Calculator) ComputeWindow(h *holiday.Holiday, referenceYear int) (*placement.Window, error) {
	if !h.PlacementDaysBefore.Valid || h.PlacementDaysBefore.Int32 < 0 {
		return nil, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "placement_days_before"}
	}
	if !h.RemovalDaysAfter.Valid || h.RemovalDaysAfter.Int32 < 0 {
		return nil, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "removal_days_after"}
	}

	occurrence, ok, err := c.resolveOccurrence(h, referenceYear)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return &placement.Window{
		Occurrence:    occurrence,
		PlacementDate: occurrence.AddDate(0, 0, -int(h.PlacementDaysBefore.Int32)),
		RemovalDate:   occurrence.AddDate(0, 0, int(h.RemovalDaysAfter.Int32)),
	}, nil
}

func (c *Calculator) resolveOccurrence(h *holiday.Holiday, year int) (time.Time, bool, error) {
	switch h.Rule {
	case holiday.RuleFixedDate:
		d, err := c.fixedDate(h, year)
		return d, err == nil, err

	case holiday.RuleNthWeekday:
		d, err := c.nthWeekday(h, year)
		return d, err == nil, err

	case holiday.RuleYearList:
		if len(h.ObservedYears) == 0 {
			return time.Time{}, false, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "observed_years"}
		}
		if !h.ObservedIn(year) {
			return time.Time{}, false, nil
		}
		d, err := c.fixedDate(h, year)
		return d, err == nil, err

	default:
		return time.Time{}, false, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "rule"}
	}
}

func (c *Calculator) fixedDate(h *holiday.Holiday, year int) (time.Time, error) {
	if !h.Month.Valid || h.Month.Int32 < 1 || h.Month.Int32 > 12 {
		return time.Time{}, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "month"}
	}
	if !h.Day.Valid || h.Day.Int32 < 1 || h.Day.Int32 > 31 {
		return time.Time{}, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "day"}
	}
	d := time.Date(year, time.Month(h.Month.Int32), int(h.Day.Int32), 0, 0, 0, 0, c.loc)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); treat that as bad data.
	if d.Month() != time.Month(h.Month.Int32) {
		return time.Time{}, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "day"}
	}
	return d, nil
}

// nthWeekday resolves rules like "third Monday of February". WeekOrdinal -1
// means the last such weekday of the month.
func (c *Calculator) nthWeekday(h *holiday.Holiday, year int) (time.Time, error) {
	if !h.Month.Valid || h.Month.Int32 < 1 || h.Month.Int32 > 12 {
		return time.Time{}, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "month"}
	}
	if !h.Weekday.Valid || h.Weekday.Int32 < 0 || h.Weekday.Int32 > 6 {
		return time.Time{}, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "weekday"}
	}
	if !h.WeekOrdinal.Valid || h.WeekOrdinal.Int32 == 0 || h.WeekOrdinal.Int32 > 5 || h.WeekOrdinal.Int32 < -1 {
		return time.Time{}, &xerrors.ConfigurationError{HolidayID: h.ID, Field: "week_ordinal"}
	}

	month := time.Month(h.Month.Int32)
	target := time.Weekday(h.Weekday.Int32)

	if h.WeekOrdinal.Int32 == -1 {
		// Walk back from the last day of the month.
		d := time.Date(year, month+1, 0, 0, 0, 0, 0, c.loc)
		for d.Weekday() != target {
			d = d.AddDate(0, 0, -1)
		}
		return d, nil
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	offset := (int(target) - int(first.Weekday()) + 7) % 7
	d := first.AddDate(0, 0, offset+7*int(h.WeekOrdinal.Int32-1))
	if d.Month() != month {
		return time.Time{}, fmt.Errorf("no %s #%d in %s %d: %w",
			target, h.WeekOrdinal.Int32, month, year, xerrors.ErrConfiguration)
	}
	return d, nil
}
