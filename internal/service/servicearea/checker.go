package servicearea

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"
)

// Checker answers whether an address can be serviced. The primary signal is a
// ZIP allowlist; when the address is geocoded and a service radius is
// configured, the distance check can override a ZIP match so the edge of a
// large ZIP does not sneak in.
type Checker struct {
	zips      map[string]struct{}
	centerLat float64
	centerLng float64
	radiusKm  float64
	logger    *zap.Logger
}

// NewChecker builds a checker from a comma-separated ZIP list. radiusKm <= 0
// disables the distance check.
func NewChecker(zipList string, centerLat, centerLng, radiusKm float64, logger *zap.Logger) *Checker {
	zips := make(map[string]struct{})
	for _, z := range strings.Split(zipList, ",") {
		z = strings.TrimSpace(z)
		if z != "" {
			zips[z] = struct{}{}
		}
	}
	return &Checker{
		zips:      zips,
		centerLat: centerLat,
		centerLng: centerLng,
		radiusKm:  radiusKm,
		logger:    logger,
	}
}

func (c *Checker) IsAddressServed(_ context.Context, lat, lng float64, zip string) (bool, error) {
	if _, ok := c.zips[normalizeZip(zip)]; !ok {
		return false, nil
	}
	if c.radiusKm > 0 && (lat != 0 || lng != 0) {
		dist := haversineKm(c.centerLat, c.centerLng, lat, lng)
		if dist > c.radiusKm {
			c.logger.Info("address zip served but outside service radius",
				zap.String("zip", zip),
				zap.Float64("distance_km", dist),
			)
			return false, nil
		}
	}
	return true, nil
}

// normalizeZip reduces ZIP+4 to the five-digit prefix.
func normalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if i := strings.IndexByte(zip, '-'); i > 0 {
		zip = zip[:i]
	}
	return zip
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
