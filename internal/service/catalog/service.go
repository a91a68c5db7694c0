package catalog

import (
	"context"
	"fmt"

	domaincatalog "flagpost-service/internal/domain/catalog"
	xerrors "flagpost-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, p *domaincatalog.FlagProduct) error
	Update(ctx context.Context, p *domaincatalog.FlagProduct) error
	FindByID(ctx context.Context, id int64) (*domaincatalog.FlagProduct, error)
	List(ctx context.Context, includeInactive bool) ([]domaincatalog.FlagProduct, error)
	SetBillingIDs(ctx context.Context, id int64, productID, oneTimePriceID, annualPriceID string) error
}

// Service manages the flag product catalog. Prices here are display prices;
// the billing provider's price objects are the charging source of truth and
// are linked via the billing id columns.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) Create(ctx context.Context, req *domaincatalog.CreateProductRequest) (*domaincatalog.FlagProduct, error) {
	if req.OneTimePrice <= 0 || req.AnnualPrice <= 0 {
		return nil, fmt.Errorf("%w: prices must be positive", xerrors.ErrInvalidInput)
	}

	p := &domaincatalog.FlagProduct{
		FlagType:      req.FlagType,
		FlagSize:      req.FlagSize,
		OneTimePrice:  req.OneTimePrice,
		AnnualPrice:   req.AnnualPrice,
		StockQuantity: req.StockQuantity,
		Active:        req.Active,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("product created",
		zap.Int64("id", p.ID),
		zap.String("flag_type", p.FlagType),
		zap.String("flag_size", p.FlagSize),
	)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, req *domaincatalog.UpdateProductRequest) (*domaincatalog.FlagProduct, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}

	if req.OneTimePrice != nil {
		if *req.OneTimePrice <= 0 {
			return nil, fmt.Errorf("%w: one_time_price must be positive", xerrors.ErrInvalidInput)
		}
		p.OneTimePrice = *req.OneTimePrice
	}
	if req.AnnualPrice != nil {
		if *req.AnnualPrice <= 0 {
			return nil, fmt.Errorf("%w: annual_price must be positive", xerrors.ErrInvalidInput)
		}
		p.AnnualPrice = *req.AnnualPrice
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domaincatalog.FlagProduct, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]domaincatalog.FlagProduct, error) {
	products, err := s.store.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// LinkBilling stores the provider-side product and price ids after the
// product has been mirrored with the billing provider.
func (s *Service) LinkBilling(ctx context.Context, id int64, productID, oneTimePriceID, annualPriceID string) error {
	if productID == "" || oneTimePriceID == "" || annualPriceID == "" {
		return fmt.Errorf("%w: all billing ids are required", xerrors.ErrInvalidInput)
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return fmt.Errorf("product not found: %w", err)
	}
	if err := s.store.SetBillingIDs(ctx, id, productID, oneTimePriceID, annualPriceID); err != nil {
		return fmt.Errorf("failed to link billing ids: %w", err)
	}
	return nil
}
