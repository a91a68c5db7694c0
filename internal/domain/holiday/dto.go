package holiday

type CreateHolidayRequest struct {
	Name                string       `json:"name" binding:"required"`
	Description         string       `json:"description"`
	Rule                ScheduleRule `json:"rule" binding:"required"`
	Month               *int32       `json:"month"`
	Day                 *int32       `json:"day"`
	Weekday             *int32       `json:"weekday"`
	WeekOrdinal         *int32       `json:"week_ordinal"`
	ObservedYears       []int32      `json:"observed_years"`
	Recurring           bool         `json:"recurring"`
	PlacementDaysBefore *int32       `json:"placement_days_before"`
	RemovalDaysAfter    *int32       `json:"removal_days_after"`
	Active              bool         `json:"active"`
	SortOrder           int          `json:"sort_order"`
}

type UpdateHolidayRequest struct {
	Name                *string  `json:"name"`
	Description         *string  `json:"description"`
	Month               *int32   `json:"month"`
	Day                 *int32   `json:"day"`
	Weekday             *int32   `json:"weekday"`
	WeekOrdinal         *int32   `json:"week_ordinal"`
	ObservedYears       *[]int32 `json:"observed_years"`
	PlacementDaysBefore *int32   `json:"placement_days_before"`
	RemovalDaysAfter    *int32   `json:"removal_days_after"`
	Active              *bool    `json:"active"`
	SortOrder           *int     `json:"sort_order"`
}

// IntegrityIssue describes a holiday whose timing data would make the
// scheduler refuse it.
type IntegrityIssue struct {
	HolidayID int64  `json:"holiday_id"`
	Name      string `json:"name"`
	Field     string `json:"field"`
}
