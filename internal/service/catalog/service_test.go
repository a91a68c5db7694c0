package catalog

import (
	"context"
	"database/sql"
	"testing"

	domaincatalog "flagpost-service/internal/domain/catalog"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memProductStore struct {
	rows   map[int64]*domaincatalog.FlagProduct
	nextID int64
}

func newMemProductStore() *memProductStore {
	return &memProductStore{rows: make(map[int64]*domaincatalog.FlagProduct)}
}

func (s *memProductStore) Create(_ context.Context, p *domaincatalog.FlagProduct) error {
	for _, existing := range s.rows {
		if existing.FlagType == p.FlagType && existing.FlagSize == p.FlagSize {
			return xerrors.ErrDuplicateEntry
		}
	}
	s.nextID++
	p.ID = s.nextID
	clone := *p
	s.rows[p.ID] = &clone
	return nil
}

func (s *memProductStore) Update(_ context.Context, p *domaincatalog.FlagProduct) error {
	if _, ok := s.rows[p.ID]; !ok {
		return xerrors.ErrNotFound
	}
	clone := *p
	s.rows[p.ID] = &clone
	return nil
}

func (s *memProductStore) FindByID(_ context.Context, id int64) (*domaincatalog.FlagProduct, error) {
	p, ok := s.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *memProductStore) List(_ context.Context, includeInactive bool) ([]domaincatalog.FlagProduct, error) {
	var out []domaincatalog.FlagProduct
	for id := int64(1); id <= s.nextID; id++ {
		if p, ok := s.rows[id]; ok && (p.Active || includeInactive) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memProductStore) SetBillingIDs(_ context.Context, id int64, productID, oneTimePriceID, annualPriceID string) error {
	p, ok := s.rows[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	p.BillingProductID = sql.NullString{String: productID, Valid: true}
	p.BillingOneTimePriceID = sql.NullString{String: oneTimePriceID, Valid: true}
	p.BillingAnnualPriceID = sql.NullString{String: annualPriceID, Valid: true}
	return nil
}

func TestCreate_DuplicateTypeSizePair(t *testing.T) {
	svc := NewService(newMemProductStore(), zap.NewNop())

	_, err := svc.Create(context.Background(), &domaincatalog.CreateProductRequest{
		FlagType: "US", FlagSize: "3x5", OneTimePrice: 60, AnnualPrice: 120, Active: true,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &domaincatalog.CreateProductRequest{
		FlagType: "US", FlagSize: "3x5", OneTimePrice: 65, AnnualPrice: 125, Active: true,
	})
	assert.ErrorIs(t, err, xerrors.ErrDuplicateEntry)
}

func TestCreate_RejectsNonPositivePrices(t *testing.T) {
	svc := NewService(newMemProductStore(), zap.NewNop())

	_, err := svc.Create(context.Background(), &domaincatalog.CreateProductRequest{
		FlagType: "US", FlagSize: "3x5", OneTimePrice: 0, AnnualPrice: 120,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestUpdate_PartialPatch(t *testing.T) {
	store := newMemProductStore()
	svc := NewService(store, zap.NewNop())

	p, err := svc.Create(context.Background(), &domaincatalog.CreateProductRequest{
		FlagType: "US", FlagSize: "3x5", OneTimePrice: 60, AnnualPrice: 120, Active: true,
	})
	require.NoError(t, err)

	newPrice := 135.0
	updated, err := svc.Update(context.Background(), p.ID, &domaincatalog.UpdateProductRequest{
		AnnualPrice: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, 135.0, updated.AnnualPrice)
	assert.Equal(t, 60.0, updated.OneTimePrice)
}

func TestLinkBilling(t *testing.T) {
	store := newMemProductStore()
	svc := NewService(store, zap.NewNop())

	p, err := svc.Create(context.Background(), &domaincatalog.CreateProductRequest{
		FlagType: "US", FlagSize: "3x5", OneTimePrice: 60, AnnualPrice: 120, Active: true,
	})
	require.NoError(t, err)

	err = svc.LinkBilling(context.Background(), p.ID, "prod_1", "price_once", "price_year")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "price_year", got.BillingAnnualPriceID.String)

	err = svc.LinkBilling(context.Background(), p.ID, "prod_1", "", "price_year")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}
