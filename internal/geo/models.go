// Package geo resolves a property address to its nearest transit station
// and aggregates travel times to major terminal hubs.
package geo

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Sentinel errors for geo operations.
var (
	// ErrAddressNotFound indicates the address could not be geocoded.
	ErrAddressNotFound = errors.New("address not found")
	// ErrNoStationNearby indicates no transit station exists within the search radius.
	ErrNoStationNearby = errors.New("no station within search radius")
	// ErrNoRouteFound indicates the provider returned no route between the points.
	ErrNoRouteFound = errors.New("no route found")
)

// StationSearchRadiusMeters is the fixed nearby-station search radius.
const StationSearchRadiusMeters = 2000

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Hub is a named destination terminal for route aggregation.
type Hub struct {
	Name  string
	Coord Coordinate
}

// DefaultHubs are the Tokyo-area terminals used when the caller supplies
// no hub list.
var DefaultHubs = []Hub{
	{Name: "東京駅", Coord: Coordinate{Lat: 35.681236, Lon: 139.767125}},
	{Name: "新宿駅", Coord: Coordinate{Lat: 35.690921, Lon: 139.700258}},
	{Name: "渋谷駅", Coord: Coordinate{Lat: 35.658034, Lon: 139.701636}},
	{Name: "池袋駅", Coord: Coordinate{Lat: 35.728926, Lon: 139.71038}},
	{Name: "品川駅", Coord: Coordinate{Lat: 35.630152, Lon: 139.74044}},
	{Name: "横浜駅", Coord: Coordinate{Lat: 35.465786, Lon: 139.622313}},
}

// RouteResult is one successful hub travel query.
type RouteResult struct {
	Destination     string   `json:"destination"`
	DurationMinutes int      `json:"duration_minutes"`
	Transfers       int      `json:"transfers,omitempty"`
	ViaLines        []string `json:"via_lines,omitempty"`
}

// NearestStationInfo describes the transit station closest to an address.
// Derived once per address and read-only afterward.
type NearestStationInfo struct {
	Name           string   `json:"name"`
	Lines          []string `json:"lines"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	DistanceMeters int      `json:"distance_meters"`
	WalkMinutes    int      `json:"walk_minutes"`
}

// AggregationResult is the combined output of nearest-station resolution
// plus hub fan-out.
type AggregationResult struct {
	Station *NearestStationInfo `json:"station,omitempty"`
	Routes  []RouteResult       `json:"routes"`
	Err     string              `json:"error,omitempty"`
}

// Place is a geocoded point of interest returned by the places provider.
type Place struct {
	Name     string
	Location Coordinate
}

// PlacesProvider defines the geocoding and nearby-search contract.
type PlacesProvider interface {
	// Geocode resolves a free-form address to coordinates.
	Geocode(ctx context.Context, address string) (Coordinate, error)

	// NearbyStations returns transit stations within radiusMeters of the
	// origin, closest first.
	NearbyStations(ctx context.Context, origin Coordinate, radiusMeters int) ([]Place, error)

	// Name returns the provider identifier for logging.
	Name() string
}

// Route is a single provider route between two points.
type Route struct {
	DurationMinutes int
	DistanceMeters  int
	Transfers       int
	Lines           []string
}

// RouteProvider defines the travel-time query contract.
type RouteProvider interface {
	// TransitRoute computes a public-transport route between two points.
	TransitRoute(ctx context.Context, origin, dest Coordinate) (*Route, error)

	// WalkingRoute computes a pedestrian route between two points.
	WalkingRoute(ctx context.Context, origin, dest Coordinate) (*Route, error)

	// Name returns the provider identifier for logging.
	Name() string
}

// Error provides detailed error information from a geo provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// linePatterns map station-name substrings to the lines the station is
// known to serve. Matching is best-effort over the display name only.
var linePatterns = []struct {
	Substr string
	Lines  []string
}{
	{"東京", []string{"JR山手線", "JR中央線", "東京メトロ丸ノ内線"}},
	{"新宿", []string{"JR山手線", "JR中央線", "小田急線", "京王線"}},
	{"渋谷", []string{"JR山手線", "東急東横線", "東京メトロ半蔵門線"}},
	{"池袋", []string{"JR山手線", "西武池袋線", "東武東上線"}},
	{"品川", []string{"JR山手線", "JR東海道線", "京急本線"}},
	{"横浜", []string{"JR東海道線", "東急東横線", "京急本線"}},
	{"上野", []string{"JR山手線", "東京メトロ銀座線", "東京メトロ日比谷線"}},
	{"メトロ", []string{"東京メトロ"}},
	{"都営", []string{"都営地下鉄"}},
	{"京王", []string{"京王線"}},
	{"小田急", []string{"小田急線"}},
	{"東急", []string{"東急線"}},
	{"京急", []string{"京急本線"}},
	{"西武", []string{"西武線"}},
	{"東武", []string{"東武線"}},
	{"つくばエクスプレス", []string{"つくばエクスプレス"}},
}

// genericLineLabel is the fallback when no pattern matches; the line list
// is never empty.
const genericLineLabel = "鉄道路線"

// GuessLines derives served lines from a station's display name. Absence
// of any match yields a single generic label.
func GuessLines(stationName string) []string {
	for _, p := range linePatterns {
		if strings.Contains(stationName, p.Substr) {
			return p.Lines
		}
	}
	return []string{genericLineLabel}
}

// earthRadiusMeters is the mean Earth radius used for haversine distance.
const earthRadiusMeters = 6371000

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
