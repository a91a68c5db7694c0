package holiday

import (
	"context"
	"testing"
	"time"

	domainholiday "flagpost-service/internal/domain/holiday"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/service/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memHolidayStore struct {
	rows   map[int64]*domainholiday.Holiday
	nextID int64
}

func newMemHolidayStore() *memHolidayStore {
	return &memHolidayStore{rows: make(map[int64]*domainholiday.Holiday)}
}

func (s *memHolidayStore) Create(_ context.Context, h *domainholiday.Holiday) error {
	s.nextID++
	h.ID = s.nextID
	clone := *h
	s.rows[h.ID] = &clone
	return nil
}

func (s *memHolidayStore) Update(_ context.Context, h *domainholiday.Holiday) error {
	if _, ok := s.rows[h.ID]; !ok {
		return xerrors.ErrNotFound
	}
	clone := *h
	s.rows[h.ID] = &clone
	return nil
}

func (s *memHolidayStore) FindByID(_ context.Context, id int64) (*domainholiday.Holiday, error) {
	h, ok := s.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	clone := *h
	return &clone, nil
}

func (s *memHolidayStore) List(_ context.Context, includeInactive bool) ([]domainholiday.Holiday, error) {
	var out []domainholiday.Holiday
	for id := int64(1); id <= s.nextID; id++ {
		h, ok := s.rows[id]
		if !ok {
			continue
		}
		if h.Active || includeInactive {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (s *memHolidayStore) ListActiveByIDs(_ context.Context, ids []int64) ([]domainholiday.Holiday, error) {
	var out []domainholiday.Holiday
	for _, id := range ids {
		if h, ok := s.rows[id]; ok && h.Active {
			out = append(out, *h)
		}
	}
	return out, nil
}

func newService(store *memHolidayStore) *Service {
	return NewService(store, schedule.NewCalculator(time.UTC), zap.NewNop())
}

func int32p(v int32) *int32 { return &v }

func TestCreate_FixedDate(t *testing.T) {
	svc := newService(newMemHolidayStore())

	h, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name:                "Independence Day",
		Rule:                domainholiday.RuleFixedDate,
		Month:               int32p(7),
		Day:                 int32p(4),
		Recurring:           true,
		PlacementDaysBefore: int32p(2),
		RemovalDaysAfter:    int32p(2),
		Active:              true,
	})
	require.NoError(t, err)
	assert.NotZero(t, h.ID)
	assert.True(t, h.Month.Valid)
	assert.EqualValues(t, 7, h.Month.Int32)
}

func TestCreate_RejectsIncompleteRules(t *testing.T) {
	svc := newService(newMemHolidayStore())

	_, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Broken", Rule: domainholiday.RuleFixedDate, Month: int32p(7),
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Broken", Rule: domainholiday.RuleNthWeekday, Month: int32p(2), Weekday: int32p(1),
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Broken", Rule: domainholiday.RuleYearList, Month: int32p(6), Day: int32p(6),
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestCreate_AllowsMissingOffsets(t *testing.T) {
	// Offsets may legitimately be absent at creation time; the integrity
	// check and the scheduler surface them later.
	svc := newService(newMemHolidayStore())

	h, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Flag Day", Rule: domainholiday.RuleFixedDate,
		Month: int32p(6), Day: int32p(14), Active: true,
	})
	require.NoError(t, err)
	assert.False(t, h.PlacementDaysBefore.Valid)
}

func TestUpdate_PartialPatch(t *testing.T) {
	store := newMemHolidayStore()
	svc := newService(store)

	h, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Memorial Day", Rule: domainholiday.RuleNthWeekday,
		Month: int32p(5), Weekday: int32p(1), WeekOrdinal: int32p(-1),
		PlacementDaysBefore: int32p(2), RemovalDaysAfter: int32p(2), Active: true,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), h.ID, &domainholiday.UpdateHolidayRequest{
		PlacementDaysBefore: int32p(3),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated.PlacementDaysBefore.Int32)
	assert.EqualValues(t, -1, updated.WeekOrdinal.Int32)
	assert.Equal(t, "Memorial Day", updated.Name)
}

func TestDeactivate_Idempotent(t *testing.T) {
	store := newMemHolidayStore()
	svc := newService(store)

	h, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Labor Day", Rule: domainholiday.RuleNthWeekday,
		Month: int32p(9), Weekday: int32p(1), WeekOrdinal: int32p(1),
		PlacementDaysBefore: int32p(2), RemovalDaysAfter: int32p(2), Active: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), h.ID))
	require.NoError(t, svc.Deactivate(context.Background(), h.ID))

	got, err := svc.Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestCheckIntegrity_ReportsDegradedHolidays(t *testing.T) {
	store := newMemHolidayStore()
	svc := newService(store)

	_, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Independence Day", Rule: domainholiday.RuleFixedDate,
		Month: int32p(7), Day: int32p(4),
		PlacementDaysBefore: int32p(2), RemovalDaysAfter: int32p(2), Active: true,
	})
	require.NoError(t, err)

	broken, err := svc.Create(context.Background(), &domainholiday.CreateHolidayRequest{
		Name: "Flag Day", Rule: domainholiday.RuleFixedDate,
		Month: int32p(6), Day: int32p(14),
		RemovalDaysAfter: int32p(2), Active: true,
	})
	require.NoError(t, err)

	issues, err := svc.CheckIntegrity(context.Background(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, broken.ID, issues[0].HolidayID)
	assert.Equal(t, "placement_days_before", issues[0].Field)
}
