package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"flagpost-service/internal/domain/catalog"
	"flagpost-service/internal/domain/customer"
	"flagpost-service/internal/domain/holiday"
	domaininventory "flagpost-service/internal/domain/inventory"
	domainplacement "flagpost-service/internal/domain/placement"
	"flagpost-service/internal/domain/notification"
	domainsub "flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/service/placement"
	"flagpost-service/internal/service/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- in-memory collaborators ----

type memPlacements struct {
	rows   []*domainplacement.FlagPlacement
	nextID int64

	// insertErr makes the next InsertIfAbsent fail once, then clears.
	insertErr error
}

func (s *memPlacements) InsertIfAbsent(_ context.Context, p *domainplacement.FlagPlacement) (bool, error) {
	if s.insertErr != nil {
		err := s.insertErr
		s.insertErr = nil
		return false, err
	}
	for _, existing := range s.rows {
		if existing.Status == domainplacement.StatusSkipped {
			continue
		}
		if existing.SubscriptionID == p.SubscriptionID &&
			existing.HolidayID == p.HolidayID &&
			existing.FlagProductID == p.FlagProductID &&
			existing.Year == p.Year {
			return false, nil
		}
	}
	s.nextID++
	p.ID = s.nextID
	clone := *p
	s.rows = append(s.rows, &clone)
	return true, nil
}

func (s *memPlacements) SkipFutureScheduled(_ context.Context, subscriptionID int64, after time.Time) (int64, error) {
	var n int64
	for _, p := range s.rows {
		if p.SubscriptionID == subscriptionID &&
			p.Status == domainplacement.StatusScheduled &&
			p.PlacementDate.After(after) {
			p.Status = domainplacement.StatusSkipped
			n++
		}
	}
	return n, nil
}

type memStore struct {
	subs   map[int64]*domainsub.Subscription
	items  map[int64][]domainsub.SubscriptionItem
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		subs:  make(map[int64]*domainsub.Subscription),
		items: make(map[int64][]domainsub.SubscriptionItem),
	}
}

func (s *memStore) FindByID(_ context.Context, id int64) (*domainsub.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	clone := *sub
	return &clone, nil
}

func (s *memStore) FindByReference(_ context.Context, ref string) (*domainsub.Subscription, error) {
	for _, sub := range s.subs {
		if sub.SubscriptionReference == ref {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *memStore) FindByBillingSubscriptionID(_ context.Context, billingID string) (*domainsub.Subscription, error) {
	for _, sub := range s.subs {
		if sub.BillingSubscriptionID.String == billingID {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *memStore) Create(_ context.Context, sub *domainsub.Subscription, items []domainsub.SubscriptionItem) error {
	s.nextID++
	sub.ID = s.nextID
	clone := *sub
	s.subs[sub.ID] = &clone
	s.items[sub.ID] = items
	return nil
}

func (s *memStore) ListItems(_ context.Context, subscriptionID int64) ([]domainsub.SubscriptionItem, error) {
	return s.items[subscriptionID], nil
}

func (s *memStore) MarkActive(_ context.Context, id int64) (bool, error) {
	sub := s.subs[id]
	if sub.Status != domainsub.StatusPending {
		return false, nil
	}
	sub.Status = domainsub.StatusActive
	return true, nil
}

func (s *memStore) MarkCanceled(_ context.Context, id int64, reason string, canceledAt time.Time) error {
	sub := s.subs[id]
	sub.Status = domainsub.StatusCanceled
	sub.CanceledAt = sql.NullTime{Time: canceledAt, Valid: true}
	sub.CancellationReason = sql.NullString{String: reason, Valid: reason != ""}
	return nil
}

func (s *memStore) MarkCancelAtPeriodEnd(_ context.Context, id int64, reason string, canceledAt time.Time) error {
	sub := s.subs[id]
	if sub.Status != domainsub.StatusPending && sub.Status != domainsub.StatusActive {
		return xerrors.ErrNotFound
	}
	sub.CancelAtPeriodEnd = true
	sub.CanceledAt = sql.NullTime{Time: canceledAt, Valid: true}
	sub.CancellationReason = sql.NullString{String: reason, Valid: reason != ""}
	return nil
}

func (s *memStore) MarkExpired(_ context.Context, id int64) error {
	s.subs[id].Status = domainsub.StatusExpired
	return nil
}

func (s *memStore) ExtendEndDate(_ context.Context, id int64, newEnd time.Time) error {
	s.subs[id].EndDate = newEnd
	return nil
}

func (s *memStore) SetBillingRefs(_ context.Context, id int64, checkoutSessionID, billingSubscriptionID string) error {
	sub := s.subs[id]
	if checkoutSessionID != "" {
		sub.BillingCheckoutSessionID = sql.NullString{String: checkoutSessionID, Valid: true}
	}
	if billingSubscriptionID != "" {
		sub.BillingSubscriptionID = sql.NullString{String: billingSubscriptionID, Valid: true}
	}
	return nil
}

func (s *memStore) ListDueForExpiry(_ context.Context, asOf time.Time) ([]domainsub.Subscription, error) {
	var due []domainsub.Subscription
	for _, sub := range s.subs {
		if sub.Status == domainsub.StatusActive && sub.EndDate.Before(asOf) {
			due = append(due, *sub)
		}
	}
	return due, nil
}

func (s *memStore) List(_ context.Context, _ *domainsub.SubscriptionListFilters) ([]domainsub.Subscription, int64, error) {
	return nil, 0, nil
}

type memHolidays struct {
	holidays []holiday.Holiday
}

func (s *memHolidays) ListActiveByIDs(_ context.Context, ids []int64) ([]holiday.Holiday, error) {
	var out []holiday.Holiday
	for _, h := range s.holidays {
		if !h.Active {
			continue
		}
		for _, id := range ids {
			if h.ID == id {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

type memProducts struct {
	products map[int64]*catalog.FlagProduct
}

func (s *memProducts) FindByID(_ context.Context, id int64) (*catalog.FlagProduct, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return p, nil
}

type memCustomers struct {
	customers map[int64]*customer.Customer
	potential []customer.PotentialCustomer
}

func (s *memCustomers) FindByID(_ context.Context, id int64) (*customer.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return c, nil
}

func (s *memCustomers) SetBillingCustomerID(_ context.Context, id int64, billingCustomerID string) error {
	s.customers[id].BillingCustomerID = sql.NullString{String: billingCustomerID, Valid: true}
	return nil
}

func (s *memCustomers) CreatePotential(_ context.Context, p *customer.PotentialCustomer) error {
	s.potential = append(s.potential, *p)
	return nil
}

type fakeProvider struct {
	customers int
	sessions  int
}

func (p *fakeProvider) CreateCustomer(_ context.Context, _ *customer.Customer) (string, error) {
	p.customers++
	return fmt.Sprintf("cus_%d", p.customers), nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, _ CheckoutSessionParams) (*CheckoutSession, error) {
	p.sessions++
	return &CheckoutSession{
		SessionID: fmt.Sprintf("cs_%d", p.sessions),
		URL:       "https://billing.example.com/checkout",
	}, nil
}

type fakeArea struct {
	served bool
}

func (a *fakeArea) IsAddressServed(_ context.Context, _, _ float64, _ string) (bool, error) {
	return a.served, nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Notify(_ int64, subject, _ string, _ notification.Channel) {
	n.sent = append(n.sent, subject)
}

// ---- fixtures ----

type fixture struct {
	store      *memStore
	placements *memPlacements
	holidays   *memHolidays
	products   *memProducts
	customers  *memCustomers
	provider   *fakeProvider
	area       *fakeArea
	notifier   *recordingNotifier
	lifecycle  *Lifecycle
}

func i32(v int32) sql.NullInt32 {
	return sql.NullInt32{Int32: v, Valid: true}
}

func testHolidays() []holiday.Holiday {
	specs := []struct {
		id         int64
		month, day int32
	}{
		{1, 2, 14}, {2, 5, 26}, {3, 6, 14}, {4, 7, 4}, {5, 9, 11}, {6, 11, 11},
	}
	out := make([]holiday.Holiday, 0, len(specs))
	for _, s := range specs {
		out = append(out, holiday.Holiday{
			ID:                  s.id,
			Name:                fmt.Sprintf("holiday-%d", s.id),
			Rule:                holiday.RuleFixedDate,
			Month:               i32(s.month),
			Day:                 i32(s.day),
			Recurring:           true,
			PlacementDaysBefore: i32(2),
			RemovalDaysAfter:    i32(2),
			Active:              true,
		})
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      newMemStore(),
		placements: &memPlacements{},
		holidays:   &memHolidays{holidays: testHolidays()},
		products: &memProducts{products: map[int64]*catalog.FlagProduct{
			100: {ID: 100, FlagType: "US", FlagSize: "3x5", OneTimePrice: 60, AnnualPrice: 120, Active: true},
		}},
		customers: &memCustomers{customers: map[int64]*customer.Customer{
			1: {ID: 1, FullName: "Pat Doe", Email: "pat@example.com", Zip: "68502"},
		}},
		provider: &fakeProvider{},
		area:     &fakeArea{served: true},
		notifier: &recordingNotifier{},
	}

	gen := placement.NewGenerator(f.placements, schedule.NewCalculator(time.UTC), zap.NewNop())
	f.lifecycle = NewLifecycle(
		f.store, f.holidays, f.products, f.customers,
		gen, f.provider, f.area, f.notifier, zap.NewNop(),
	)
	return f
}

// seedSubscription covers next calendar year so generated placements are
// always in the future relative to time.Now.
func (f *fixture) seedSubscription(t *testing.T, status domainsub.SubscriptionStatus) *domainsub.Subscription {
	t.Helper()
	year := time.Now().Year() + 1
	sub := &domainsub.Subscription{
		SubscriptionReference: "SUB-TEST",
		CustomerID:            1,
		Type:                  domainsub.TypeAnnual,
		StartDate:             time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		SelectedHolidays:      []int64{1, 2, 3, 4, 5, 6},
		Status:                status,
	}
	items := []domainsub.SubscriptionItem{
		{FlagProductID: 100, Quantity: 1, UnitPrice: 120, TotalPrice: 120},
	}
	require.NoError(t, f.store.Create(context.Background(), sub, items))
	return sub
}

// ---- tests ----

func TestActivate_GeneratesPlacements(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusPending)

	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.Len(t, f.placements.rows, 6)
	assert.Len(t, f.notifier.sent, 1)
}

type recordingStock struct {
	entries []domaininventory.Adjustment
}

func (s *recordingStock) ApplyAdjustment(_ context.Context, productID int64, delta int, reason, reference string) (*domaininventory.Adjustment, error) {
	adj := domaininventory.Adjustment{
		ID:            int64(len(s.entries) + 1),
		FlagProductID: productID,
		Delta:         delta,
		Reason:        reason,
		Reference:     sql.NullString{String: reference, Valid: reference != ""},
	}
	s.entries = append(s.entries, adj)
	return &adj, nil
}

func TestActivate_RecordsSaleAdjustment(t *testing.T) {
	f := newFixture(t)
	stock := &recordingStock{}
	f.lifecycle.SetStockAdjuster(stock)
	sub := f.seedSubscription(t, domainsub.StatusPending)

	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))

	require.Len(t, stock.entries, 1)
	assert.Equal(t, int64(100), stock.entries[0].FlagProductID)
	assert.Equal(t, -1, stock.entries[0].Delta)
	assert.Equal(t, "sale", stock.entries[0].Reason)
	assert.Equal(t, "SUB-TEST", stock.entries[0].Reference.String)

	// Re-activation does not sell the flags twice.
	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))
	assert.Len(t, stock.entries, 1)
}

func TestActivate_RetryAfterGenerationFailureKeepsSideEffects(t *testing.T) {
	f := newFixture(t)
	stock := &recordingStock{}
	f.lifecycle.SetStockAdjuster(stock)
	sub := f.seedSubscription(t, domainsub.StatusPending)

	// First delivery: the status flips but placement storage hiccups, so the
	// webhook is answered with an error and redelivered.
	f.placements.insertErr = fmt.Errorf("connection reset")
	require.Error(t, f.lifecycle.Activate(context.Background(), sub.ID))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.Len(t, stock.entries, 1)
	assert.Len(t, f.notifier.sent, 1)

	// Redelivery: placements recover, the sale and email are not repeated.
	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))
	assert.Len(t, f.placements.rows, 6)
	assert.Len(t, stock.entries, 1)
	assert.Len(t, f.notifier.sent, 1)
}

func TestActivate_Idempotent(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusPending)

	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))
	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))

	assert.Len(t, f.placements.rows, 6)
	// The customer is notified once, not per delivery.
	assert.Len(t, f.notifier.sent, 1)
}

func TestActivate_CanceledIsNoOp(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusCanceled)

	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusCanceled, got.Status)
	assert.Empty(t, f.placements.rows)
}

func TestCancel_SkipsOnlyFutureScheduled(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusPending)
	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))

	// Two flags already in the ground.
	f.placements.rows[0].Status = domainplacement.StatusPlaced
	f.placements.rows[1].Status = domainplacement.StatusPlaced

	require.NoError(t, f.lifecycle.Cancel(context.Background(), sub.ID, "moved away", false))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusCanceled, got.Status)
	assert.True(t, got.CanceledAt.Valid)

	var placed, skipped int
	for _, p := range f.placements.rows {
		switch p.Status {
		case domainplacement.StatusPlaced:
			placed++
		case domainplacement.StatusSkipped:
			skipped++
		}
	}
	assert.Equal(t, 2, placed)
	assert.NotZero(t, skipped)
}

func TestCancel_AtPeriodEndKeepsActive(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusPending)
	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))

	require.NoError(t, f.lifecycle.Cancel(context.Background(), sub.ID, "next year maybe", true))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.True(t, got.CancelAtPeriodEnd)
	assert.True(t, got.CanceledAt.Valid)

	// No placements were skipped; the paid period still runs.
	for _, p := range f.placements.rows {
		assert.Equal(t, domainplacement.StatusScheduled, p.Status)
	}
}

func TestCancel_TerminalIsNoOp(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusExpired)

	require.NoError(t, f.lifecycle.Cancel(context.Background(), sub.ID, "", false))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusExpired, got.Status)
}

func TestRenew_CreatesPendingCopy(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusActive)

	next, err := f.lifecycle.Renew(context.Background(), sub.ID)
	require.NoError(t, err)

	assert.NotEqual(t, sub.ID, next.ID)
	assert.Equal(t, domainsub.StatusPending, next.Status)
	assert.Equal(t, sub.SelectedHolidays, next.SelectedHolidays)
	assert.Equal(t, sub.EndDate.AddDate(0, 0, 1), next.StartDate)

	items, err := f.store.ListItems(context.Background(), next.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(100), items[0].FlagProductID)

	// Renewal does not activate and generates nothing yet.
	assert.Empty(t, f.placements.rows)
}

func TestRenew_RejectsOneTimeAndInactive(t *testing.T) {
	f := newFixture(t)

	sub := f.seedSubscription(t, domainsub.StatusActive)
	f.store.subs[sub.ID].Type = domainsub.TypeOneTime
	_, err := f.lifecycle.Renew(context.Background(), sub.ID)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	pending := f.seedSubscription(t, domainsub.StatusPending)
	_, err = f.lifecycle.Renew(context.Background(), pending.ID)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestExtendPeriod_RegeneratesForNewYear(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, domainsub.StatusPending)
	require.NoError(t, f.lifecycle.Activate(context.Background(), sub.ID))
	require.Len(t, f.placements.rows, 6)

	newEnd := sub.EndDate.AddDate(1, 0, 0)
	require.NoError(t, f.lifecycle.ExtendPeriod(context.Background(), sub.ID, newEnd))

	// Six more placements for the following year's occurrences.
	assert.Len(t, f.placements.rows, 12)
}

func TestCheckout_OutsideServiceArea(t *testing.T) {
	f := newFixture(t)
	f.area.served = false

	_, err := f.lifecycle.Checkout(context.Background(), &domainsub.CheckoutRequest{
		CustomerID:       1,
		Type:             domainsub.TypeAnnual,
		SelectedHolidays: []int64{4},
		Items:            []domainsub.CheckoutItemRequest{{FlagProductID: 100, Quantity: 1}},
	})

	assert.ErrorIs(t, err, xerrors.ErrOutsideServiceArea)
	require.Len(t, f.customers.potential, 1)
	assert.Equal(t, "pat@example.com", f.customers.potential[0].Email)
}

func TestCheckout_CreatesPendingSubscription(t *testing.T) {
	f := newFixture(t)

	resp, err := f.lifecycle.Checkout(context.Background(), &domainsub.CheckoutRequest{
		CustomerID:       1,
		Type:             domainsub.TypeAnnual,
		SelectedHolidays: []int64{1, 4},
		Items:            []domainsub.CheckoutItemRequest{{FlagProductID: 100, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CheckoutURL)

	sub, err := f.store.FindByID(context.Background(), resp.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusPending, sub.Status)
	assert.Equal(t, 240.0, sub.TotalAmount)
	assert.True(t, sub.BillingCheckoutSessionID.Valid)

	// Billing customer was created and saved.
	assert.True(t, f.customers.customers[1].BillingCustomerID.Valid)

	// Nothing is generated before payment confirmation.
	assert.Empty(t, f.placements.rows)
}
