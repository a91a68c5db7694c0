package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	domainbilling "flagpost-service/internal/domain/billing"
	"flagpost-service/internal/domain/catalog"
	"flagpost-service/internal/domain/customer"
	"flagpost-service/internal/domain/holiday"
	"flagpost-service/internal/domain/notification"
	domainplacement "flagpost-service/internal/domain/placement"
	domainsub "flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/service/placement"
	"flagpost-service/internal/service/schedule"
	"flagpost-service/internal/service/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- collaborators ----

type memDeduper struct {
	claimed map[string]bool
}

func newMemDeduper() *memDeduper {
	return &memDeduper{claimed: make(map[string]bool)}
}

func (d *memDeduper) Claim(_ context.Context, eventID string) (bool, error) {
	if d.claimed[eventID] {
		return false, nil
	}
	d.claimed[eventID] = true
	return true, nil
}

func (d *memDeduper) Release(_ context.Context, eventID string) error {
	delete(d.claimed, eventID)
	return nil
}

type memPlacements struct {
	rows   []*domainplacement.FlagPlacement
	nextID int64
}

func (s *memPlacements) InsertIfAbsent(_ context.Context, p *domainplacement.FlagPlacement) (bool, error) {
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
	subs    map[int64]*domainsub.Subscription
	items   map[int64][]domainsub.SubscriptionItem
	nextID  int64
	findErr error // injected failure for retry tests
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
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, sub := range s.subs {
		if sub.SubscriptionReference == ref {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *memStore) FindByBillingSubscriptionID(_ context.Context, billingID string) (*domainsub.Subscription, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
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

func (s *memStore) ListDueForExpiry(_ context.Context, _ time.Time) ([]domainsub.Subscription, error) {
	return nil, nil
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
		for _, id := range ids {
			if h.ID == id && h.Active {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

type memProducts struct{}

func (memProducts) FindByID(_ context.Context, id int64) (*catalog.FlagProduct, error) {
	return &catalog.FlagProduct{ID: id, Active: true}, nil
}

type memCustomers struct{}

func (memCustomers) FindByID(_ context.Context, id int64) (*customer.Customer, error) {
	return &customer.Customer{ID: id}, nil
}
func (memCustomers) SetBillingCustomerID(_ context.Context, _ int64, _ string) error { return nil }
func (memCustomers) CreatePotential(_ context.Context, _ *customer.PotentialCustomer) error {
	return nil
}

type nopProvider struct{}

func (nopProvider) CreateCustomer(_ context.Context, _ *customer.Customer) (string, error) {
	return "cus_test", nil
}
func (nopProvider) CreateCheckoutSession(_ context.Context, _ subscription.CheckoutSessionParams) (*subscription.CheckoutSession, error) {
	return &subscription.CheckoutSession{SessionID: "cs_test", URL: "https://example.com"}, nil
}

type servedArea struct{}

func (servedArea) IsAddressServed(_ context.Context, _, _ float64, _ string) (bool, error) {
	return true, nil
}

type recordingNotifier struct {
	subjects []string
}

func (n *recordingNotifier) Notify(_ int64, subject, _ string, _ notification.Channel) {
	n.subjects = append(n.subjects, subject)
}

// ---- fixture ----

type fixture struct {
	store      *memStore
	placements *memPlacements
	deduper    *memDeduper
	notifier   *recordingNotifier
	processor  *Processor
}

func i32(v int32) sql.NullInt32 {
	return sql.NullInt32{Int32: v, Valid: true}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	holidays := make([]holiday.Holiday, 0, 6)
	specs := []struct {
		id         int64
		month, day int32
	}{
		{1, 2, 14}, {2, 5, 26}, {3, 6, 14}, {4, 7, 4}, {5, 9, 11}, {6, 11, 11},
	}
	for _, s := range specs {
		holidays = append(holidays, holiday.Holiday{
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

	f := &fixture{
		store:      newMemStore(),
		placements: &memPlacements{},
		deduper:    newMemDeduper(),
		notifier:   &recordingNotifier{},
	}

	gen := placement.NewGenerator(f.placements, schedule.NewCalculator(time.UTC), zap.NewNop())
	lifecycle := subscription.NewLifecycle(
		f.store, &memHolidays{holidays: holidays}, memProducts{}, memCustomers{},
		gen, nopProvider{}, servedArea{}, f.notifier, zap.NewNop(),
	)
	f.processor = NewProcessor(lifecycle, f.store, f.deduper, f.notifier, zap.NewNop())
	return f
}

func (f *fixture) seedPending(t *testing.T) *domainsub.Subscription {
	t.Helper()
	year := time.Now().Year() + 1
	sub := &domainsub.Subscription{
		SubscriptionReference: "SUB-WEBHOOK-TEST",
		CustomerID:            1,
		Type:                  domainsub.TypeAnnual,
		StartDate:             time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		SelectedHolidays:      []int64{1, 2, 3, 4, 5, 6},
		Status:                domainsub.StatusPending,
		BillingSubscriptionID: sql.NullString{String: "psub_1", Valid: true},
	}
	items := []domainsub.SubscriptionItem{
		{FlagProductID: 100, Quantity: 1, UnitPrice: 120, TotalPrice: 120},
	}
	require.NoError(t, f.store.Create(context.Background(), sub, items))
	return sub
}

// ---- tests ----

func TestProcess_CheckoutCompleted(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)

	err := f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		CheckoutSessionID:     "cs_1",
		SubscriptionReference: sub.SubscriptionReference,
		BillingSubscriptionID: "psub_1",
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.Len(t, f.placements.rows, 6)
}

func TestProcess_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)

	ev := domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: sub.SubscriptionReference,
	}

	require.NoError(t, f.processor.Process(context.Background(), ev))
	require.NoError(t, f.processor.Process(context.Background(), ev))

	assert.Len(t, f.placements.rows, 6)
	assert.Len(t, f.notifier.subjects, 1)
}

func TestProcess_RedeliveryWithNewEventIDIsStillIdempotent(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)

	first := domainbilling.CheckoutCompleted{ID: "evt_1", SubscriptionReference: sub.SubscriptionReference}
	second := domainbilling.CheckoutCompleted{ID: "evt_2", SubscriptionReference: sub.SubscriptionReference}

	require.NoError(t, f.processor.Process(context.Background(), first))
	require.NoError(t, f.processor.Process(context.Background(), second))

	assert.Len(t, f.placements.rows, 6)
	assert.Len(t, f.notifier.subjects, 1)
}

func TestProcess_UnknownSubscriptionIsLoggedNoOp(t *testing.T) {
	f := newFixture(t)

	err := f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: "SUB-DOES-NOT-EXIST",
	})
	assert.NoError(t, err)
	assert.Empty(t, f.placements.rows)
}

func TestProcess_SubscriptionDeleted(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)
	require.NoError(t, f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: sub.SubscriptionReference,
	}))

	err := f.processor.Process(context.Background(), domainbilling.SubscriptionDeleted{
		ID:                    "evt_2",
		BillingSubscriptionID: "psub_1",
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusCanceled, got.Status)
	assert.True(t, got.CanceledAt.Valid)

	for _, p := range f.placements.rows {
		assert.Equal(t, domainplacement.StatusSkipped, p.Status)
	}
}

func TestProcess_SubscriptionUpdatedToCanceled(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)
	require.NoError(t, f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: sub.SubscriptionReference,
	}))

	err := f.processor.Process(context.Background(), domainbilling.SubscriptionUpdated{
		ID:                    "evt_2",
		BillingSubscriptionID: "psub_1",
		ProviderStatus:        "canceled",
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusCanceled, got.Status)
}

func TestProcess_ScheduledCancellationBeforeActivation(t *testing.T) {
	// The provider can deliver a subscription update carrying
	// cancel_at_period_end before the checkout completion arrives.
	// The flag lands on the pending row and survives activation.
	f := newFixture(t)
	sub := f.seedPending(t)

	err := f.processor.Process(context.Background(), domainbilling.SubscriptionUpdated{
		ID:                    "evt_1",
		BillingSubscriptionID: "psub_1",
		ProviderStatus:        "active",
		CancelAtPeriodEnd:     true,
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusPending, got.Status)
	assert.True(t, got.CancelAtPeriodEnd)

	err = f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_2",
		CheckoutSessionID:     "cs_1",
		SubscriptionReference: sub.SubscriptionReference,
		BillingSubscriptionID: "psub_1",
	})
	require.NoError(t, err)

	got, err = f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.True(t, got.CancelAtPeriodEnd)
	assert.Len(t, f.placements.rows, 6)
}

func TestProcess_RenewalInvoiceExtendsAndRegenerates(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)
	require.NoError(t, f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: sub.SubscriptionReference,
	}))
	require.Len(t, f.placements.rows, 6)

	err := f.processor.Process(context.Background(), domainbilling.InvoicePaymentSucceeded{
		ID:                    "evt_2",
		BillingSubscriptionID: "psub_1",
		BillingReason:         "subscription_cycle",
		PeriodEnd:             sub.EndDate.AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.Equal(t, sub.EndDate.AddDate(1, 0, 0), got.EndDate)
	assert.Len(t, f.placements.rows, 12)
}

func TestProcess_InvoiceFailedNotifiesOnly(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)
	require.NoError(t, f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: sub.SubscriptionReference,
	}))
	before := len(f.notifier.subjects)

	err := f.processor.Process(context.Background(), domainbilling.InvoicePaymentFailed{
		ID:                    "evt_2",
		BillingSubscriptionID: "psub_1",
		AmountDue:             120,
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
	assert.Len(t, f.notifier.subjects, before+1)
	assert.Equal(t, "Payment failed", f.notifier.subjects[len(f.notifier.subjects)-1])
}

func TestProcess_TrialWillEndNotifiesOnly(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)
	require.NoError(t, f.processor.Process(context.Background(), domainbilling.CheckoutCompleted{
		ID:                    "evt_1",
		SubscriptionReference: sub.SubscriptionReference,
	}))

	err := f.processor.Process(context.Background(), domainbilling.TrialWillEnd{
		ID:                    "evt_2",
		BillingSubscriptionID: "psub_1",
		TrialEnd:              time.Now().AddDate(0, 0, 3),
	})
	require.NoError(t, err)

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
}

func TestProcess_RetryableFailureReleasesClaim(t *testing.T) {
	f := newFixture(t)
	sub := f.seedPending(t)

	f.store.findErr = errors.New("connection reset")
	ev := domainbilling.CheckoutCompleted{ID: "evt_1", SubscriptionReference: sub.SubscriptionReference}

	err := f.processor.Process(context.Background(), ev)
	require.Error(t, err)
	assert.False(t, f.deduper.claimed["evt_1"], "claim must be released for redelivery")

	// The provider redelivers and processing now succeeds.
	f.store.findErr = nil
	require.NoError(t, f.processor.Process(context.Background(), ev))

	got, err := f.store.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsub.StatusActive, got.Status)
}
