package auth

import (
	"context"
	"testing"
	"time"

	domainstaff "flagpost-service/internal/domain/staff"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStaffStore struct {
	byEmail map[string]*domainstaff.Staff
}

func (s *memStaffStore) FindByEmail(_ context.Context, email string) (*domainstaff.Staff, error) {
	m, ok := s.byEmail[email]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (s *memStaffStore) FindByID(_ context.Context, id int64) (*domainstaff.Staff, error) {
	for _, m := range s.byEmail {
		if m.ID == id {
			clone := *m
			return &clone, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func fixtureStore(t *testing.T, active bool) *memStaffStore {
	t.Helper()
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	return &memStaffStore{byEmail: map[string]*domainstaff.Staff{
		"ops@flagpost.test": {
			ID: 1, FullName: "Pat Doyle", Email: "ops@flagpost.test",
			PasswordHash: hash, Role: domainstaff.RoleAdmin, Active: active,
		},
	}}
}

func newAuth(store StaffStore) (*Service, *jwt.Verifier) {
	gen := jwt.NewGenerator("test-secret-please-rotate", "flagpost", time.Hour)
	return NewService(store, gen, zap.NewNop()), jwt.NewVerifier("test-secret-please-rotate", "flagpost")
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	svc, verifier := newAuth(fixtureStore(t, true))

	resp, err := svc.Login(context.Background(), &domainstaff.LoginRequest{
		Email: "ops@flagpost.test", Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := verifier.VerifyAccessToken(resp.Token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, claims.StaffID)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.IsAdmin())
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc, _ := newAuth(fixtureStore(t, true))

	_, err1 := svc.Login(context.Background(), &domainstaff.LoginRequest{
		Email: "ops@flagpost.test", Password: "wrong",
	})
	_, err2 := svc.Login(context.Background(), &domainstaff.LoginRequest{
		Email: "ghost@flagpost.test", Password: "wrong",
	})
	assert.ErrorIs(t, err1, xerrors.ErrUnauthorized)
	assert.ErrorIs(t, err2, xerrors.ErrUnauthorized)
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, _ := newAuth(fixtureStore(t, false))

	_, err := svc.Login(context.Background(), &domainstaff.LoginRequest{
		Email: "ops@flagpost.test", Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestVerify_RejectsTamperedToken(t *testing.T) {
	svc, _ := newAuth(fixtureStore(t, true))
	otherVerifier := jwt.NewVerifier("different-secret", "flagpost")

	resp, err := svc.Login(context.Background(), &domainstaff.LoginRequest{
		Email: "ops@flagpost.test", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = otherVerifier.VerifyAccessToken(resp.Token)
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
}
