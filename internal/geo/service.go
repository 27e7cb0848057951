package geo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// walkMetersPerMinute is the fallback walking speed when the routing
// provider cannot supply a pedestrian route.
const walkMetersPerMinute = 80

// ServiceConfig holds configuration for the geo service.
type ServiceConfig struct {
	// Places is the geocoding and nearby-search provider.
	Places PlacesProvider

	// Routes is the travel-time provider.
	Routes RouteProvider

	// Hubs are the aggregation destinations (optional, defaults to the
	// Tokyo-area terminals).
	Hubs []Hub

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves nearest stations and aggregates hub travel times.
type Service struct {
	places PlacesProvider
	routes RouteProvider
	hubs   []Hub
	logger zerolog.Logger
}

// NewService creates a new geo service.
func NewService(cfg ServiceConfig) *Service {
	hubs := cfg.Hubs
	if len(hubs) == 0 {
		hubs = DefaultHubs
	}

	return &Service{
		places: cfg.Places,
		routes: cfg.Routes,
		hubs:   hubs,
		logger: cfg.Logger,
	}
}

// FindNearestStation geocodes the address, searches for transit stations
// within the fixed radius and returns the closest, with walking
// distance/time and a best-effort line list.
func (s *Service) FindNearestStation(ctx context.Context, address string) (*NearestStationInfo, error) {
	origin, err := s.places.Geocode(ctx, address)
	if err != nil {
		return nil, &Error{
			Provider: s.places.Name(),
			Code:     "GEOCODE_FAILED",
			Message:  fmt.Sprintf("geocoding %q", address),
			Err:      err,
		}
	}

	stations, err := s.places.NearbyStations(ctx, origin, StationSearchRadiusMeters)
	if err != nil {
		return nil, &Error{
			Provider: s.places.Name(),
			Code:     "STATION_SEARCH_FAILED",
			Message:  fmt.Sprintf("searching stations near %q", address),
			Err:      err,
		}
	}
	if len(stations) == 0 {
		return nil, &Error{
			Provider: s.places.Name(),
			Code:     "NO_STATION",
			Message:  fmt.Sprintf("no station within %dm of %q", StationSearchRadiusMeters, address),
			Err:      ErrNoStationNearby,
		}
	}

	// Provider returns closest-first; the first match wins.
	nearest := stations[0]

	distanceMeters, walkMinutes := s.walkEstimate(ctx, origin, nearest.Location)

	info := &NearestStationInfo{
		Name:           nearest.Name,
		Lines:          GuessLines(nearest.Name),
		Latitude:       nearest.Location.Lat,
		Longitude:      nearest.Location.Lon,
		DistanceMeters: distanceMeters,
		WalkMinutes:    walkMinutes,
	}

	s.logger.Debug().
		Str("address", address).
		Str("station", info.Name).
		Int("distance_m", info.DistanceMeters).
		Int("walk_min", info.WalkMinutes).
		Msg("resolved nearest station")

	return info, nil
}

// walkEstimate computes walking distance and time between the address
// point and the station. Falls back to great-circle distance at a fixed
// walking speed when the routing call fails.
func (s *Service) walkEstimate(ctx context.Context, origin, station Coordinate) (int, int) {
	route, err := s.routes.WalkingRoute(ctx, origin, station)
	if err == nil && route != nil {
		return route.DistanceMeters, route.DurationMinutes
	}

	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.routes.Name()).
			Msg("walking route failed, falling back to straight-line estimate")
	}

	meters := HaversineMeters(origin, station)
	minutes := int(math.Ceil(meters / walkMetersPerMinute))
	return int(math.Round(meters)), minutes
}

// hubOutcome is the per-task fan-out result. A failed task carries no
// route and is dropped at gather time.
type hubOutcome struct {
	result RouteResult
	ok     bool
}

// AggregateRoutes issues one transit query per hub concurrently and
// gathers the survivors sorted ascending by duration. Hub failures are
// dropped silently; the result may be empty but never an error.
func (s *Service) AggregateRoutes(ctx context.Context, origin Coordinate, hubs []Hub) []RouteResult {
	if len(hubs) == 0 {
		hubs = s.hubs
	}

	outcomes := make([]hubOutcome, len(hubs))

	var wg sync.WaitGroup
	for i, hub := range hubs {
		wg.Add(1)
		go func(i int, hub Hub) {
			defer wg.Done()

			route, err := s.routes.TransitRoute(ctx, origin, hub.Coord)
			if err != nil || route == nil {
				s.logger.Debug().Err(err).
					Str("hub", hub.Name).
					Str("provider", s.routes.Name()).
					Msg("hub route query failed, dropping")
				return
			}

			outcomes[i] = hubOutcome{
				result: RouteResult{
					Destination:     hub.Name,
					DurationMinutes: route.DurationMinutes,
					Transfers:       route.Transfers,
					ViaLines:        route.Lines,
				},
				ok: true,
			}
		}(i, hub)
	}
	wg.Wait()

	results := make([]RouteResult, 0, len(hubs))
	for _, o := range outcomes {
		if o.ok {
			results = append(results, o.result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DurationMinutes < results[j].DurationMinutes
	})

	s.logger.Debug().
		Int("hubs", len(hubs)).
		Int("routes", len(results)).
		Msg("aggregated hub routes")

	return results
}

// AggregateFromAddress composes nearest-station resolution with the hub
// fan-out. When no station is found the fan-out never runs and the
// result carries a descriptive error with an empty route list.
func (s *Service) AggregateFromAddress(ctx context.Context, address string, hubs []Hub) AggregationResult {
	station, err := s.FindNearestStation(ctx, address)
	if err != nil {
		s.logger.Warn().Err(err).Str("address", address).Msg("nearest station resolution failed")
		return AggregationResult{
			Routes: []RouteResult{},
			Err:    fmt.Sprintf("最寄り駅が見つかりませんでした: %s", address),
		}
	}

	origin := Coordinate{Lat: station.Latitude, Lon: station.Longitude}
	return AggregationResult{
		Station: station,
		Routes:  s.AggregateRoutes(ctx, origin, hubs),
	}
}
