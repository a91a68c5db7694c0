package subscription

import (
	"context"
	"fmt"
	"time"

	"flagpost-service/internal/domain/catalog"
	"flagpost-service/internal/domain/customer"
	"flagpost-service/internal/domain/holiday"
	"flagpost-service/internal/domain/inventory"
	"flagpost-service/internal/domain/notification"
	domainsub "flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/pkg/reference"
	"flagpost-service/internal/service/placement"

	"go.uber.org/zap"
)

// Store is the subscription persistence surface the lifecycle needs.
type Store interface {
	FindByID(ctx context.Context, id int64) (*domainsub.Subscription, error)
	FindByReference(ctx context.Context, ref string) (*domainsub.Subscription, error)
	FindByBillingSubscriptionID(ctx context.Context, billingID string) (*domainsub.Subscription, error)
	Create(ctx context.Context, sub *domainsub.Subscription, items []domainsub.SubscriptionItem) error
	ListItems(ctx context.Context, subscriptionID int64) ([]domainsub.SubscriptionItem, error)

	// MarkActive flips pending to active and reports whether the row changed.
	// It must never touch canceled or expired rows.
	MarkActive(ctx context.Context, id int64) (bool, error)
	MarkCanceled(ctx context.Context, id int64, reason string, canceledAt time.Time) error
	// MarkCancelAtPeriodEnd flags a pending or active subscription; pending
	// rows accept it because the provider may schedule the cancellation
	// before the checkout completion arrives.
	MarkCancelAtPeriodEnd(ctx context.Context, id int64, reason string, canceledAt time.Time) error
	MarkExpired(ctx context.Context, id int64) error
	ExtendEndDate(ctx context.Context, id int64, newEnd time.Time) error
	SetBillingRefs(ctx context.Context, id int64, checkoutSessionID, billingSubscriptionID string) error
	ListDueForExpiry(ctx context.Context, asOf time.Time) ([]domainsub.Subscription, error)
	List(ctx context.Context, filters *domainsub.SubscriptionListFilters) ([]domainsub.Subscription, int64, error)
}

type HolidayStore interface {
	ListActiveByIDs(ctx context.Context, ids []int64) ([]holiday.Holiday, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, id int64) (*catalog.FlagProduct, error)
}

type CustomerStore interface {
	FindByID(ctx context.Context, id int64) (*customer.Customer, error)
	SetBillingCustomerID(ctx context.Context, id int64, billingCustomerID string) error
	CreatePotential(ctx context.Context, p *customer.PotentialCustomer) error
}

// CheckoutProvider is the slice of the billing boundary checkout needs.
type CheckoutProvider interface {
	CreateCustomer(ctx context.Context, c *customer.Customer) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error)
}

type CheckoutLine struct {
	BillingPriceID string
	Quantity       int
}

type CheckoutSessionParams struct {
	BillingCustomerID     string
	SubscriptionReference string
	Type                  domainsub.SubscriptionType
	Lines                 []CheckoutLine
}

type CheckoutSession struct {
	SessionID string
	URL       string
}

type AreaChecker interface {
	IsAddressServed(ctx context.Context, lat, lng float64, zip string) (bool, error)
}

type Notifier interface {
	Notify(customerID int64, subject, message string, channel notification.Channel)
}

// StockAdjuster records the inventory ledger entry for sold flags.
type StockAdjuster interface {
	ApplyAdjustment(ctx context.Context, productID int64, delta int, reason, reference string) (*inventory.Adjustment, error)
}

// Lifecycle owns subscription state transitions
// (pending -> active -> {canceled, expired}) and their side effects.
type Lifecycle struct {
	store     Store
	holidays  HolidayStore
	products  ProductStore
	customers CustomerStore
	generator *placement.Generator
	provider  CheckoutProvider
	area      AreaChecker
	notifier  Notifier
	stock     StockAdjuster
	logger    *zap.Logger
}

func NewLifecycle(
	store Store,
	holidays HolidayStore,
	products ProductStore,
	customers CustomerStore,
	generator *placement.Generator,
	provider CheckoutProvider,
	area AreaChecker,
	notifier Notifier,
	logger *zap.Logger,
) *Lifecycle {
	return &Lifecycle{
		store:     store,
		holidays:  holidays,
		products:  products,
		customers: customers,
		generator: generator,
		provider:  provider,
		area:      area,
		notifier:  notifier,
		logger:    logger,
	}
}

// SetStockAdjuster attaches the inventory ledger so activations record the
// flags sold. Optional; activation proceeds without it.
func (l *Lifecycle) SetStockAdjuster(stock StockAdjuster) {
	l.stock = stock
}

// Checkout creates a pending subscription with its immutable items and a
// billing checkout session for it. The subscription only becomes active once
// the provider confirms payment.
func (l *Lifecycle) Checkout(ctx context.Context, req *domainsub.CheckoutRequest) (*domainsub.CheckoutResponse, error) {
	cust, err := l.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer not found: %w", err)
	}

	served, err := l.area.IsAddressServed(ctx, cust.Latitude.Float64, cust.Longitude.Float64, cust.Zip)
	if err != nil {
		return nil, fmt.Errorf("failed to check service area: %w", err)
	}
	if !served {
		if err := l.customers.CreatePotential(ctx, &customer.PotentialCustomer{
			FullName:    cust.FullName,
			Email:       cust.Email,
			Phone:       cust.Phone,
			AddressLine: cust.AddressLine,
			Zip:         cust.Zip,
		}); err != nil {
			l.logger.Warn("failed to record potential customer", zap.Error(err))
		}
		return nil, xerrors.ErrOutsideServiceArea
	}

	activeHolidays, err := l.holidays.ListActiveByIDs(ctx, req.SelectedHolidays)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	if len(activeHolidays) == 0 {
		return nil, fmt.Errorf("no active holidays selected: %w", xerrors.ErrInvalidInput)
	}

	items, lines, total, err := l.buildItems(ctx, req)
	if err != nil {
		return nil, err
	}

	start := today()
	sub := &domainsub.Subscription{
		SubscriptionReference: reference.New("SUB"),
		CustomerID:            cust.ID,
		Type:                  req.Type,
		StartDate:             start,
		EndDate:               periodEnd(start, req.Type),
		SelectedHolidays:      req.SelectedHolidays,
		TotalAmount:           total,
		Status:                domainsub.StatusPending,
	}

	if err := l.store.Create(ctx, sub, items); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	billingCustomerID := cust.BillingCustomerID.String
	if billingCustomerID == "" {
		billingCustomerID, err = l.provider.CreateCustomer(ctx, cust)
		if err != nil {
			return nil, fmt.Errorf("failed to create billing customer: %w", err)
		}
		if err := l.customers.SetBillingCustomerID(ctx, cust.ID, billingCustomerID); err != nil {
			l.logger.Warn("failed to save billing customer id", zap.Error(err))
		}
	}

	session, err := l.provider.CreateCheckoutSession(ctx, CheckoutSessionParams{
		BillingCustomerID:     billingCustomerID,
		SubscriptionReference: sub.SubscriptionReference,
		Type:                  sub.Type,
		Lines:                 lines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := l.store.SetBillingRefs(ctx, sub.ID, session.SessionID, ""); err != nil {
		l.logger.Warn("failed to save checkout session id", zap.Error(err))
	}

	l.logger.Info("checkout session created",
		zap.Int64("subscription_id", sub.ID),
		zap.String("subscription_reference", sub.SubscriptionReference),
		zap.String("type", string(sub.Type)),
		zap.Float64("total_amount", total),
	)

	return &domainsub.CheckoutResponse{
		SubscriptionID:        sub.ID,
		SubscriptionReference: sub.SubscriptionReference,
		CheckoutURL:           session.URL,
	}, nil
}

// Activate flips a pending subscription to active and generates its
// placements. Safe to call twice: generation skips existing rows and a
// subscription that is already terminal is left untouched with a warning.
func (l *Lifecycle) Activate(ctx context.Context, subscriptionID int64) error {
	sub, err := l.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if sub.Status.Terminal() {
		l.logger.Warn("ignoring activation of terminal subscription",
			zap.Int64("subscription_id", sub.ID),
			zap.String("status", string(sub.Status)),
		)
		return nil
	}

	activated, err := l.store.MarkActive(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	// Side effects ride on the first flip, before generation. A generation
	// error makes the delivery retry, and on that retry activated is false,
	// so anything gated behind generation would be lost for good.
	if activated {
		l.logger.Info("subscription activated", zap.Int64("subscription_id", sub.ID))
		l.recordSale(ctx, sub)
		l.notifier.Notify(sub.CustomerID,
			"Your flag subscription is active",
			fmt.Sprintf("Subscription %s is confirmed. Flags will be placed for your selected holidays.", sub.SubscriptionReference),
			notification.ChannelEmail,
		)
	}

	return l.generateFor(ctx, sub.ID)
}

// recordSale writes inventory ledger entries for the flags a newly activated
// subscription sold. Ledger failures must not undo the activation.
func (l *Lifecycle) recordSale(ctx context.Context, sub *domainsub.Subscription) {
	if l.stock == nil {
		return
	}

	items, err := l.store.ListItems(ctx, sub.ID)
	if err != nil {
		l.logger.Error("failed to load items for stock adjustment",
			zap.Int64("subscription_id", sub.ID),
			zap.Error(err),
		)
		return
	}

	for _, item := range items {
		_, err := l.stock.ApplyAdjustment(ctx, item.FlagProductID, -item.Quantity, "sale", sub.SubscriptionReference)
		if err != nil {
			l.logger.Error("failed to record sale adjustment",
				zap.Int64("subscription_id", sub.ID),
				zap.Int64("flag_product_id", item.FlagProductID),
				zap.Error(err),
			)
		}
	}
}

// Cancel cancels a subscription, immediately or at the end of the paid
// period. Immediate cancellation skips the still-scheduled future placements;
// already-placed flags keep their removal date either way.
func (l *Lifecycle) Cancel(ctx context.Context, subscriptionID int64, reason string, atPeriodEnd bool) error {
	sub, err := l.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if sub.Status.Terminal() {
		return nil
	}

	now := time.Now()
	if atPeriodEnd {
		if err := l.store.MarkCancelAtPeriodEnd(ctx, sub.ID, reason, now); err != nil {
			return fmt.Errorf("failed to schedule cancellation: %w", err)
		}
		l.logger.Info("subscription cancellation scheduled at period end",
			zap.Int64("subscription_id", sub.ID),
			zap.Time("end_date", sub.EndDate),
		)
	} else {
		if err := l.store.MarkCanceled(ctx, sub.ID, reason, now); err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		if _, err := l.generator.SkipFuture(ctx, sub.ID, now); err != nil {
			return err
		}
		l.logger.Info("subscription canceled",
			zap.Int64("subscription_id", sub.ID),
			zap.String("reason", reason),
		)
	}

	l.notifier.Notify(sub.CustomerID,
		"Your flag subscription was canceled",
		fmt.Sprintf("Subscription %s has been canceled.", sub.SubscriptionReference),
		notification.ChannelEmail,
	)

	return nil
}

// Renew creates a new pending subscription for the next annual period,
// copying the items and holiday snapshot of the current one. It does not
// activate the new subscription; activation happens once payment is
// confirmed.
func (l *Lifecycle) Renew(ctx context.Context, subscriptionID int64) (*domainsub.Subscription, error) {
	sub, err := l.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.Type != domainsub.TypeAnnual {
		return nil, fmt.Errorf("only annual subscriptions renew: %w", xerrors.ErrInvalidInput)
	}
	if sub.Status != domainsub.StatusActive {
		return nil, fmt.Errorf("subscription is not active: %w", xerrors.ErrInvalidInput)
	}

	items, err := l.store.ListItems(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	start := sub.EndDate.AddDate(0, 0, 1)
	next := &domainsub.Subscription{
		SubscriptionReference: reference.New("SUB"),
		CustomerID:            sub.CustomerID,
		Type:                  domainsub.TypeAnnual,
		StartDate:             start,
		EndDate:               periodEnd(start, domainsub.TypeAnnual),
		SelectedHolidays:      sub.SelectedHolidays,
		TotalAmount:           sub.TotalAmount,
		Status:                domainsub.StatusPending,
	}

	nextItems := make([]domainsub.SubscriptionItem, 0, len(items))
	for _, it := range items {
		nextItems = append(nextItems, domainsub.SubscriptionItem{
			FlagProductID: it.FlagProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
		})
	}

	if err := l.store.Create(ctx, next, nextItems); err != nil {
		return nil, fmt.Errorf("failed to create renewal subscription: %w", err)
	}

	l.logger.Info("subscription renewal created",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("renewal_subscription_id", next.ID),
	)

	return next, nil
}

// ExtendPeriod moves end_date forward (renewal invoice paid) and regenerates
// placements for the newly covered period. Pending subscriptions become
// active; terminal ones are never resurrected.
func (l *Lifecycle) ExtendPeriod(ctx context.Context, subscriptionID int64, newEnd time.Time) error {
	sub, err := l.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if sub.Status.Terminal() {
		l.logger.Warn("ignoring period extension of terminal subscription",
			zap.Int64("subscription_id", sub.ID),
			zap.String("status", string(sub.Status)),
		)
		return nil
	}

	if _, err := l.store.MarkActive(ctx, sub.ID); err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	if newEnd.After(sub.EndDate) {
		if err := l.store.ExtendEndDate(ctx, sub.ID, newEnd); err != nil {
			return fmt.Errorf("failed to extend subscription: %w", err)
		}
		l.logger.Info("subscription period extended",
			zap.Int64("subscription_id", sub.ID),
			zap.Time("end_date", newEnd),
		)
	}

	return l.generateFor(ctx, sub.ID)
}

// ExpireDue is the expiry sweep: active subscriptions whose end_date has
// passed become expired, or canceled when cancellation was scheduled at
// period end.
func (l *Lifecycle) ExpireDue(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := l.store.ListDueForExpiry(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	var swept int
	for i := range due {
		sub := &due[i]

		if sub.CancelAtPeriodEnd {
			err = l.store.MarkCanceled(ctx, sub.ID, sub.CancellationReason.String, now)
		} else {
			err = l.store.MarkExpired(ctx, sub.ID)
		}
		if err != nil {
			l.logger.Error("failed to expire subscription",
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}

		if _, err := l.generator.SkipFuture(ctx, sub.ID, now); err != nil {
			l.logger.Error("failed to skip placements of expired subscription",
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err),
			)
		}
		swept++
	}

	if swept > 0 {
		l.logger.Info("expiry sweep complete", zap.Int("swept", swept))
	}
	return swept, nil
}

// Get returns a subscription with its immutable item snapshot.
func (l *Lifecycle) Get(ctx context.Context, subscriptionID int64) (*domainsub.Subscription, []domainsub.SubscriptionItem, error) {
	sub, err := l.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}

	items, err := l.store.ListItems(ctx, sub.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load items: %w", err)
	}

	return sub, items, nil
}

// List returns a page of subscriptions matching the filters.
func (l *Lifecycle) List(ctx context.Context, filters *domainsub.SubscriptionListFilters) (*domainsub.SubscriptionListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	subs, total, err := l.store.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return &domainsub.SubscriptionListResponse{
		Subscriptions: subs,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
	}, nil
}

// GeneratePlacements re-runs placement generation for a subscription using
// the snapshot holiday set intersected with the currently active holidays.
func (l *Lifecycle) GeneratePlacements(ctx context.Context, subscriptionID int64) error {
	return l.generateFor(ctx, subscriptionID)
}

func (l *Lifecycle) generateFor(ctx context.Context, subscriptionID int64) error {
	sub, err := l.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	items, err := l.store.ListItems(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	activeHolidays, err := l.holidays.ListActiveByIDs(ctx, sub.SelectedHolidays)
	if err != nil {
		return fmt.Errorf("failed to load holidays: %w", err)
	}

	result, err := l.generator.Generate(ctx, sub, items, activeHolidays)
	if err != nil {
		return err
	}

	for _, f := range result.Failures {
		l.notifier.Notify(0,
			"Holiday configuration problem",
			fmt.Sprintf("Holiday %d was skipped during placement generation: %s", f.HolidayID, f.Reason),
			notification.ChannelOps,
		)
	}

	return nil
}

func (l *Lifecycle) buildItems(ctx context.Context, req *domainsub.CheckoutRequest) ([]domainsub.SubscriptionItem, []CheckoutLine, float64, error) {
	var (
		items []domainsub.SubscriptionItem
		lines []CheckoutLine
		total float64
	)

	for _, line := range req.Items {
		product, err := l.products.FindByID(ctx, line.FlagProductID)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("flag product %d not found: %w", line.FlagProductID, err)
		}
		if !product.Active {
			return nil, nil, 0, fmt.Errorf("flag product %d is not available: %w", product.ID, xerrors.ErrInvalidInput)
		}

		unit := product.OneTimePrice
		priceID := product.BillingOneTimePriceID
		if req.Type == domainsub.TypeAnnual {
			unit = product.AnnualPrice
			priceID = product.BillingAnnualPriceID
		}

		items = append(items, domainsub.SubscriptionItem{
			FlagProductID: product.ID,
			Quantity:      line.Quantity,
			UnitPrice:     unit,
			TotalPrice:    unit * float64(line.Quantity),
		})
		lines = append(lines, CheckoutLine{
			BillingPriceID: priceID.String,
			Quantity:       line.Quantity,
		})
		total += unit * float64(line.Quantity)
	}

	return items, lines, total, nil
}

// today truncates to a date in local time; placements are date-only.
func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func periodEnd(start time.Time, t domainsub.SubscriptionType) time.Time {
	if t == domainsub.TypeAnnual {
		return start.AddDate(1, 0, -1)
	}
	// One-time purchases cover the remainder of the calendar year.
	return time.Date(start.Year(), 12, 31, 0, 0, 0, 0, start.Location())
}
