package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flagpost-service/internal/domain/holiday"
	domainplacement "flagpost-service/internal/domain/placement"
	"flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/pkg/metrics"
	"flagpost-service/internal/service/schedule"

	"go.uber.org/zap"
)

// PlacementStore is the persistence surface the generator needs. The postgres
// implementation backs InsertIfAbsent with a conditional insert against the
// partial unique index on (subscription_id, holiday_id, flag_product_id, year)
// WHERE status <> 'skipped', which is what keeps generation idempotent under
// duplicate webhook deliveries.
type PlacementStore interface {
	InsertIfAbsent(ctx context.Context, p *domainplacement.FlagPlacement) (bool, error)
	SkipFutureScheduled(ctx context.Context, subscriptionID int64, after time.Time) (int64, error)
}

type Generator struct {
	store  PlacementStore
	calc   *schedule.Calculator
	logger *zap.Logger
}

func NewGenerator(store PlacementStore, calc *schedule.Calculator, logger *zap.Logger) *Generator {
	return &Generator{
		store:  store,
		calc:   calc,
		logger: logger,
	}
}

// Generate creates the scheduled placements a subscription needs for its
// items and its active holiday set. The holiday set is passed in explicitly
// (snapshot intersected with currently-active holidays by the caller); the
// generator never reaches into a live global query.
//
// Safe to call repeatedly: existing non-skipped placements are left alone.
// A ConfigurationError on one holiday is collected and does not abort the
// rest of the batch; a storage error does.
func (g *Generator) Generate(
	ctx context.Context,
	sub *subscription.Subscription,
	items []subscription.SubscriptionItem,
	holidays []holiday.Holiday,
) (*domainplacement.GenerationResult, error) {
	result := &domainplacement.GenerationResult{}
	failed := make(map[int64]bool)

	for _, year := range g.coverageYears(sub) {
		for i := range holidays {
			h := &holidays[i]

			window, err := g.calc.ComputeWindow(h, year)
			if err != nil {
				if errors.Is(err, xerrors.ErrConfiguration) {
					if !failed[h.ID] {
						failed[h.ID] = true
						result.Failures = append(result.Failures, domainplacement.GenerationFailure{
							HolidayID: h.ID,
							Reason:    err.Error(),
						})
						g.logger.Warn("skipping holiday with bad timing data",
							zap.Int64("holiday_id", h.ID),
							zap.String("holiday", h.Name),
							zap.Error(err),
						)
					}
					continue
				}
				return result, fmt.Errorf("failed to compute window for holiday %d: %w", h.ID, err)
			}
			if window == nil {
				continue
			}
			if window.Occurrence.Before(sub.StartDate) || window.Occurrence.After(sub.EndDate) {
				continue
			}

			for _, item := range items {
				p := &domainplacement.FlagPlacement{
					SubscriptionID: sub.ID,
					HolidayID:      h.ID,
					FlagProductID:  item.FlagProductID,
					Year:           year,
					PlacementDate:  window.PlacementDate,
					RemovalDate:    window.RemovalDate,
					Status:         domainplacement.StatusScheduled,
				}

				inserted, err := g.store.InsertIfAbsent(ctx, p)
				if err != nil {
					return result, fmt.Errorf("failed to insert placement: %w", err)
				}
				if inserted {
					metrics.PlacementsGenerated.Inc()
					result.Created = append(result.Created, *p)
				}
			}
		}
	}

	g.logger.Info("placement generation complete",
		zap.Int64("subscription_id", sub.ID),
		zap.Int("created", len(result.Created)),
		zap.Int("failures", len(result.Failures)),
	)

	return result, nil
}

// SkipFuture marks this subscription's still-scheduled future placements as
// skipped. Already-placed flags are left untouched; they will be physically
// removed on their existing removal date.
func (g *Generator) SkipFuture(ctx context.Context, subscriptionID int64, now time.Time) (int64, error) {
	skipped, err := g.store.SkipFutureScheduled(ctx, subscriptionID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to skip future placements: %w", err)
	}

	if skipped > 0 {
		g.logger.Info("skipped future placements",
			zap.Int64("subscription_id", subscriptionID),
			zap.Int64("skipped", skipped),
		)
	}

	return skipped, nil
}

// coverageYears lists the calendar years the subscription can generate
// placements in. Annual subscriptions spanning a year boundary cover holidays
// of the following year(s) up to end_date.
func (g *Generator) coverageYears(sub *subscription.Subscription) []int {
	years := []int{sub.StartDate.Year()}
	if sub.Type == subscription.TypeAnnual {
		for y := sub.StartDate.Year() + 1; y <= sub.EndDate.Year(); y++ {
			years = append(years, y)
		}
	}
	return years
}
