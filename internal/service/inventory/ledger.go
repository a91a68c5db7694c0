package inventory

import (
	"context"
	"fmt"

	domaininventory "flagpost-service/internal/domain/inventory"
	xerrors "flagpost-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// AdjustmentStore applies a delta to a product's stock and records the ledger
// entry in the same transaction. Implementations must lock the product row so
// PreviousQuantity reflects the committed value.
type AdjustmentStore interface {
	ApplyAdjustment(ctx context.Context, productID int64, delta int, reason, reference string) (*domaininventory.Adjustment, error)
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]domaininventory.Adjustment, int64, error)
}

// Ledger is the stock-tracking service. Stock never gates checkout or
// placement generation; it exists for operational visibility only.
type Ledger struct {
	store  AdjustmentStore
	logger *zap.Logger
}

func NewLedger(store AdjustmentStore, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Adjust records a manual stock change. A zero delta is rejected since it
// would produce a ledger entry that changes nothing.
func (l *Ledger) Adjust(ctx context.Context, productID int64, req *domaininventory.AdjustRequest) (*domaininventory.Adjustment, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: delta must be non-zero", xerrors.ErrInvalidInput)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", xerrors.ErrInvalidInput)
	}

	adj, err := l.store.ApplyAdjustment(ctx, productID, req.Delta, req.Reason, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to apply stock adjustment: %w", err)
	}

	l.logger.Info("stock adjusted",
		zap.Int64("flag_product_id", productID),
		zap.Int("delta", req.Delta),
		zap.Int("new_quantity", adj.NewQuantity),
		zap.String("reason", req.Reason),
	)
	if adj.NewQuantity < 0 {
		l.logger.Warn("stock went negative",
			zap.Int64("flag_product_id", productID),
			zap.Int("new_quantity", adj.NewQuantity),
		)
	}
	return adj, nil
}

// History returns a product's ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, productID int64, limit, offset int) ([]domaininventory.Adjustment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := l.store.ListByProduct(ctx, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock adjustments: %w", err)
	}
	return entries, total, nil
}
