package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainstaff "flagpost-service/internal/domain/staff"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/pkg/jwt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type StaffStore interface {
	FindByEmail(ctx context.Context, email string) (*domainstaff.Staff, error)
	FindByID(ctx context.Context, id int64) (*domainstaff.Staff, error)
}

// Service authenticates staff. Customers never log in; their touchpoints are
// checkout links and email.
type Service struct {
	store     StaffStore
	generator *jwt.Generator
	logger    *zap.Logger
}

func NewService(store StaffStore, generator *jwt.Generator, logger *zap.Logger) *Service {
	return &Service{store: store, generator: generator, logger: logger}
}

// Login checks credentials and issues an access token. Bad email and bad
// password produce the same error so the endpoint does not leak which staff
// accounts exist.
func (s *Service) Login(ctx context.Context, req *domainstaff.LoginRequest) (*domainstaff.LoginResponse, error) {
	member, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", xerrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}
	if !member.Active {
		return nil, fmt.Errorf("%w: account disabled", xerrors.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("failed login attempt", zap.String("email", req.Email))
		return nil, fmt.Errorf("%w: invalid credentials", xerrors.ErrUnauthorized)
	}

	token, _, err := s.generator.Generate(member.ID, member.Email, string(member.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("staff logged in", zap.Int64("staff_id", member.ID), zap.String("role", string(member.Role)))
	return &domainstaff.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.generator.Ttl),
		Staff:     *member,
	}, nil
}

// HashPassword is used by seeding and the staff admin tooling.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
