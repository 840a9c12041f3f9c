package memory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/model"
)

const (
	earthRadiusKm   = 6371.0
	averageSpeedKmh = 40.0
)

// Directions resolves straight line routes without any external service.
type Directions struct{}

// Route returns a two point route between origin and destination.
func (Directions) Route(ctx context.Context, origin, destination model.Coordinates) (*model.Route, error) {
	km := haversineKm(origin, destination)
	eta := time.Duration(km / averageSpeedKmh * float64(time.Hour)).Round(time.Minute)

	return &model.Route{
		Origin:      origin,
		Destination: destination,
		Points:      []model.Coordinates{origin, destination},
		Distance:    fmt.Sprintf("%.1f km", km),
		Duration:    fmt.Sprintf("%d mins", int(eta.Minutes())),
	}, nil
}

func haversineKm(a, b model.Coordinates) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(b.Latitude - a.Latitude)
	dLon := rad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Latitude))*math.Cos(rad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

var _ backend.Directions = Directions{}
