package holiday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainholiday "flagpost-service/internal/domain/holiday"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/service/schedule"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, h *domainholiday.Holiday) error
	Update(ctx context.Context, h *domainholiday.Holiday) error
	FindByID(ctx context.Context, id int64) (*domainholiday.Holiday, error)
	List(ctx context.Context, includeInactive bool) ([]domainholiday.Holiday, error)
	ListActiveByIDs(ctx context.Context, ids []int64) ([]domainholiday.Holiday, error)
}

// Service is the admin surface for the holiday catalog. Holidays are never
// deleted, only deactivated, so historical placements keep a valid parent.
type Service struct {
	store  Store
	calc   *schedule.Calculator
	logger *zap.Logger
}

func NewService(store Store, calc *schedule.Calculator, logger *zap.Logger) *Service {
	return &Service{store: store, calc: calc, logger: logger}
}

func (s *Service) Create(ctx context.Context, req *domainholiday.CreateHolidayRequest) (*domainholiday.Holiday, error) {
	h := &domainholiday.Holiday{
		Name:                req.Name,
		Description:         req.Description,
		Rule:                req.Rule,
		Month:               toNullInt32(req.Month),
		Day:                 toNullInt32(req.Day),
		Weekday:             toNullInt32(req.Weekday),
		WeekOrdinal:         toNullInt32(req.WeekOrdinal),
		ObservedYears:       req.ObservedYears,
		Recurring:           req.Recurring,
		PlacementDaysBefore: toNullInt32(req.PlacementDaysBefore),
		RemovalDaysAfter:    toNullInt32(req.RemovalDaysAfter),
		Active:              req.Active,
		SortOrder:           req.SortOrder,
	}
	if err := s.validate(h); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to create holiday: %w", err)
	}
	s.logger.Info("holiday created", zap.Int64("id", h.ID), zap.String("name", h.Name))
	return h, nil
}

func (s *Service) Update(ctx context.Context, id int64, req *domainholiday.UpdateHolidayRequest) (*domainholiday.Holiday, error) {
	h, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("holiday not found: %w", err)
	}

	if req.Name != nil {
		h.Name = *req.Name
	}
	if req.Description != nil {
		h.Description = *req.Description
	}
	if req.Month != nil {
		h.Month = toNullInt32(req.Month)
	}
	if req.Day != nil {
		h.Day = toNullInt32(req.Day)
	}
	if req.Weekday != nil {
		h.Weekday = toNullInt32(req.Weekday)
	}
	if req.WeekOrdinal != nil {
		h.WeekOrdinal = toNullInt32(req.WeekOrdinal)
	}
	if req.ObservedYears != nil {
		h.ObservedYears = *req.ObservedYears
	}
	if req.PlacementDaysBefore != nil {
		h.PlacementDaysBefore = toNullInt32(req.PlacementDaysBefore)
	}
	if req.RemovalDaysAfter != nil {
		h.RemovalDaysAfter = toNullInt32(req.RemovalDaysAfter)
	}
	if req.Active != nil {
		h.Active = *req.Active
	}
	if req.SortOrder != nil {
		h.SortOrder = *req.SortOrder
	}

	if err := s.validate(h); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to update holiday: %w", err)
	}
	return h, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domainholiday.Holiday, error) {
	h, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("holiday not found: %w", err)
	}
	return h, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]domainholiday.Holiday, error) {
	holidays, err := s.store.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}

// Deactivate takes a holiday out of future placement generation without
// touching existing placements.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	h, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("holiday not found: %w", err)
	}
	if !h.Active {
		return nil
	}
	h.Active = false
	if err := s.store.Update(ctx, h); err != nil {
		return fmt.Errorf("failed to deactivate holiday: %w", err)
	}
	s.logger.Info("holiday deactivated", zap.Int64("id", id), zap.String("name", h.Name))
	return nil
}

// CheckIntegrity checks every active holiday against next year's calendar and
// reports the ones the scheduler would refuse. Admins run this after edits so
// degraded timing data surfaces before the next generation batch.
func (s *Service) CheckIntegrity(ctx context.Context, now time.Time) ([]domainholiday.IntegrityIssue, error) {
	holidays, err := s.store.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	checkYear := now.Year() + 1
	var issues []domainholiday.IntegrityIssue
	for i := range holidays {
		h := &holidays[i]
		if _, err := s.calc.ComputeWindow(h, checkYear); err != nil {
			var cfg *xerrors.ConfigurationError
			field := "occurrence"
			if errors.As(err, &cfg) {
				field = cfg.Field
			}
			issues = append(issues, domainholiday.IntegrityIssue{
				HolidayID: h.ID,
				Name:      h.Name,
				Field:     field,
			})
		}
	}
	return issues, nil
}

func (s *Service) validate(h *domainholiday.Holiday) error {
	switch h.Rule {
	case domainholiday.RuleFixedDate:
		if !h.Month.Valid || !h.Day.Valid {
			return fmt.Errorf("%w: fixed_date holidays need month and day", xerrors.ErrInvalidInput)
		}
	case domainholiday.RuleNthWeekday:
		if !h.Month.Valid || !h.Weekday.Valid || !h.WeekOrdinal.Valid {
			return fmt.Errorf("%w: nth_weekday holidays need month, weekday and week_ordinal", xerrors.ErrInvalidInput)
		}
		if ord := h.WeekOrdinal.Int32; ord != -1 && (ord < 1 || ord > 5) {
			return fmt.Errorf("%w: week_ordinal must be 1..5 or -1 for last", xerrors.ErrInvalidInput)
		}
	case domainholiday.RuleYearList:
		if !h.Month.Valid || !h.Day.Valid {
			return fmt.Errorf("%w: year_list holidays need month and day", xerrors.ErrInvalidInput)
		}
		if len(h.ObservedYears) == 0 {
			return fmt.Errorf("%w: year_list holidays need at least one observed year", xerrors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown schedule rule %q", xerrors.ErrInvalidInput, h.Rule)
	}

	if h.Month.Valid && (h.Month.Int32 < 1 || h.Month.Int32 > 12) {
		return fmt.Errorf("%w: month must be 1..12", xerrors.ErrInvalidInput)
	}
	if h.Day.Valid && (h.Day.Int32 < 1 || h.Day.Int32 > 31) {
		return fmt.Errorf("%w: day must be 1..31", xerrors.ErrInvalidInput)
	}
	if h.Weekday.Valid && (h.Weekday.Int32 < 0 || h.Weekday.Int32 > 6) {
		return fmt.Errorf("%w: weekday must be 0 (Sunday) .. 6 (Saturday)", xerrors.ErrInvalidInput)
	}
	// Offsets may be absent here; the scheduler refuses such holidays at
	// generation time and the integrity check reports them.
	if h.PlacementDaysBefore.Valid && h.PlacementDaysBefore.Int32 < 0 {
		return fmt.Errorf("%w: placement_days_before must not be negative", xerrors.ErrInvalidInput)
	}
	if h.RemovalDaysAfter.Valid && h.RemovalDaysAfter.Int32 < 0 {
		return fmt.Errorf("%w: removal_days_after must not be negative", xerrors.ErrInvalidInput)
	}
	return nil
}

func toNullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}
