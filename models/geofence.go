package models

import (
	"context"
	"math"
	"sort"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
)

const earthRadiusM = 6371000.0

// HaversineDistanceM returns the great-circle distance between two points in
// meters.
func HaversineDistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// WithinRadius reports whether a point lies within radiusM meters of a
// center. A point exactly on the boundary counts as inside.
func WithinRadius(lat, lng, centerLat, centerLng, radiusM float64) bool {
	return HaversineDistanceM(lat, lng, centerLat, centerLng) <= radiusM
}

// Lat/Lng carry no required tag: zero is a legitimate coordinate.
type GeofenceCheckInput struct {
	StationId string  `json:"station_id" binding:"required"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

type GeofenceCheckResult struct {
	StationId string  `json:"station_id"`
	Inside    bool    `json:"inside"`
	DistanceM float64 `json:"distance_m"`
	RadiusM   float64 `json:"radius_m"`
}

// CheckStationGeofence evaluates a position against one station's fence.
func CheckStationGeofence(ctx context.Context, input GeofenceCheckInput) (*GeofenceCheckResult, error) {
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return nil, utils.NewValidationError("coordinates out of range")
	}

	station, err := GetStation(ctx, input.StationId)
	if err != nil {
		return nil, err
	}

	distance := HaversineDistanceM(input.Lat, input.Lng, station.GpsLat, station.GpsLng)
	return &GeofenceCheckResult{
		StationId: station.ID,
		Inside:    distance <= station.GeofenceRadiusM,
		DistanceM: distance,
		RadiusM:   station.GeofenceRadiusM,
	}, nil
}

type NearestStationResult struct {
	Station   *Station `json:"station"`
	DistanceM float64  `json:"distance_m"`
	Inside    bool     `json:"inside"`
}

// NearestStation returns the organization's active stations ordered by
// distance from a point, closest first.
func NearestStation(ctx context.Context, lat, lng float64, limit int) ([]*NearestStationResult, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, utils.NewValidationError("coordinates out of range")
	}

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	var stations []*Station
	err := db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationId, true).
		Find(&stations).Error
	if err != nil {
		return nil, err
	}

	results := make([]*NearestStationResult, 0, len(stations))
	for _, station := range stations {
		distance := HaversineDistanceM(lat, lng, station.GpsLat, station.GpsLng)
		results = append(results, &NearestStationResult{
			Station:   station,
			DistanceM: distance,
			Inside:    distance <= station.GeofenceRadiusM,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceM < results[j].DistanceM
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}
