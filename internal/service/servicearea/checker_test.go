package servicearea

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsAddressServed_ZipAllowlist(t *testing.T) {
	c := NewChecker("78701, 78702,78703", 0, 0, 0, zap.NewNop())

	served, err := c.IsAddressServed(context.Background(), 0, 0, "78702")
	assert.NoError(t, err)
	assert.True(t, served)

	served, err = c.IsAddressServed(context.Background(), 0, 0, "78799")
	assert.NoError(t, err)
	assert.False(t, served)
}

func TestIsAddressServed_ZipPlusFour(t *testing.T) {
	c := NewChecker("78701", 0, 0, 0, zap.NewNop())

	served, err := c.IsAddressServed(context.Background(), 0, 0, "78701-4321")
	assert.NoError(t, err)
	assert.True(t, served)
}

func TestIsAddressServed_RadiusOverridesZipMatch(t *testing.T) {
	// Centered on downtown Austin with a 10km radius.
	c := NewChecker("78701", 30.2672, -97.7431, 10, zap.NewNop())

	served, err := c.IsAddressServed(context.Background(), 30.27, -97.74, "78701")
	assert.NoError(t, err)
	assert.True(t, served)

	// Same ZIP claimed, but the coordinates are ~120km away.
	served, err = c.IsAddressServed(context.Background(), 29.42, -98.49, "78701")
	assert.NoError(t, err)
	assert.False(t, served)
}

func TestIsAddressServed_UngeocodedSkipsRadiusCheck(t *testing.T) {
	c := NewChecker("78701", 30.2672, -97.7431, 10, zap.NewNop())

	served, err := c.IsAddressServed(context.Background(), 0, 0, "78701")
	assert.NoError(t, err)
	assert.True(t, served)
}
