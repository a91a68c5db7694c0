// internal/service/customer/service.go
package customer

import (
	"context"
	"database/sql"
	"fmt"

	domaincustomer "flagpost-service/internal/domain/customer"
	xerrors "flagpost-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, c *domaincustomer.Customer) error
	FindByID(ctx context.Context, id int64) (*domaincustomer.Customer, error)
	FindByEmail(ctx context.Context, email string) (*domaincustomer.Customer, error)
	Update(ctx context.Context, c *domaincustomer.Customer) error
	CreatePotential(ctx context.Context, p *domaincustomer.PotentialCustomer) error
}

type AreaChecker interface {
	IsAddressServed(ctx context.Context, lat, lng float64, zip string) (bool, error)
}

// Service handles customer registration. Addresses outside the service area
// are recorded as potential customers instead of being registered.
type Service struct {
	store  Store
	area   AreaChecker
	logger *zap.Logger
}

func NewService(store Store, area AreaChecker, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		area:   area,
		logger: logger,
	}
}

func (s *Service) Register(ctx context.Context, req *domaincustomer.CreateCustomerRequest) (*domaincustomer.Customer, error) {
	var lat, lng float64
	if req.Latitude != nil {
		lat = *req.Latitude
	}
	if req.Longitude != nil {
		lng = *req.Longitude
	}

	served, err := s.area.IsAddressServed(ctx, lat, lng, req.Zip)
	if err != nil {
		return nil, fmt.Errorf("service area check failed: %w", err)
	}

	if !served {
		potential := &domaincustomer.PotentialCustomer{
			FullName:    req.FullName,
			Email:       req.Email,
			Phone:       req.Phone,
			AddressLine: req.AddressLine,
			Zip:         req.Zip,
		}
		if err := s.store.CreatePotential(ctx, potential); err != nil {
			s.logger.Error("failed to record potential customer",
				zap.String("zip", req.Zip),
				zap.Error(err),
			)
		} else {
			s.logger.Info("address outside service area recorded as potential customer",
				zap.String("zip", req.Zip),
			)
		}
		return nil, fmt.Errorf("%w: address %s is outside the service area", xerrors.ErrOutsideServiceArea, req.Zip)
	}

	c := &domaincustomer.Customer{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		AddressLine: req.AddressLine,
		City:        req.City,
		State:       req.State,
		Zip:         req.Zip,
	}
	if req.Latitude != nil {
		c.Latitude = sql.NullFloat64{Float64: *req.Latitude, Valid: true}
	}
	if req.Longitude != nil {
		c.Longitude = sql.NullFloat64{Float64: *req.Longitude, Valid: true}
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("customer registered",
		zap.Int64("customer_id", c.ID),
		zap.String("zip", c.Zip),
	)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domaincustomer.Customer, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req *domaincustomer.UpdateCustomerRequest) (*domaincustomer.Customer, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		c.FullName = *req.FullName
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.AddressLine != nil {
		c.AddressLine = *req.AddressLine
	}
	if req.City != nil {
		c.City = *req.City
	}
	if req.State != nil {
		c.State = *req.State
	}
	if req.Zip != nil {
		c.Zip = *req.Zip
	}
	if req.Latitude != nil {
		c.Latitude = sql.NullFloat64{Float64: *req.Latitude, Valid: true}
	}
	if req.Longitude != nil {
		c.Longitude = sql.NullFloat64{Float64: *req.Longitude, Valid: true}
	}

	// A changed address must still fall inside the service area.
	if req.Zip != nil || req.Latitude != nil || req.Longitude != nil {
		served, err := s.area.IsAddressServed(ctx, c.Latitude.Float64, c.Longitude.Float64, c.Zip)
		if err != nil {
			return nil, fmt.Errorf("service area check failed: %w", err)
		}
		if !served {
			return nil, fmt.Errorf("%w: address %s is outside the service area", xerrors.ErrOutsideServiceArea, c.Zip)
		}
	}

	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}
