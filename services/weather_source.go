package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	earthRadiusKm         = 6371.0
	DefaultMinQueryLength = 2
)

// Cities is the catalog of known cities.
var Cities = []types.CityLocation{
	{ID: "new-york", Name: "New York", Country: "United States", Region: "New York",
		Coordinates: types.Coordinates{Latitude: 40.7128, Longitude: -74.006}, Timezone: "America/New_York"},
	{ID: "london", Name: "London", Country: "United Kingdom", Region: "England",
		Coordinates: types.Coordinates{Latitude: 51.5074, Longitude: -0.1278}, Timezone: "Europe/London"},
	{ID: "tokyo", Name: "Tokyo", Country: "Japan", Region: "Tokyo",
		Coordinates: types.Coordinates{Latitude: 35.6762, Longitude: 139.6503}, Timezone: "Asia/Tokyo"},
	{ID: "paris", Name: "Paris", Country: "France", Region: "Ile-de-France",
		Coordinates: types.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, Timezone: "Europe/Paris"},
	{ID: "sydney", Name: "Sydney", Country: "Australia", Region: "New South Wales",
		Coordinates: types.Coordinates{Latitude: -33.8688, Longitude: 151.2093}, Timezone: "Australia/Sydney"},
	{ID: "dubai", Name: "Dubai", Country: "United Arab Emirates", Region: "Dubai",
		Coordinates: types.Coordinates{Latitude: 25.2048, Longitude: 55.2708}, Timezone: "Asia/Dubai"},
	{ID: "singapore", Name: "Singapore", Country: "Singapore",
		Coordinates: types.Coordinates{Latitude: 1.3521, Longitude: 103.8198}, Timezone: "Asia/Singapore"},
	{ID: "los-angeles", Name: "Los Angeles", Country: "United States", Region: "California",
		Coordinates: types.Coordinates{Latitude: 34.0522, Longitude: -118.2437}, Timezone: "America/Los_Angeles"},
}

// SnapshotCache is the part of the repository the weather source needs.
type SnapshotCache interface {
	GetCachedWeather(ctx context.Context, cityID string) (*types.WeatherSnapshot, bool)
	CacheWeather(ctx context.Context, snapshot types.WeatherSnapshot)
}

// WeatherSource resolves cities and produces snapshots, consulting the cache
// for known cities.
type WeatherSource struct {
	cache          SnapshotCache
	generator      Generator
	cities         []types.CityLocation
	minQueryLength int
	clock          func() time.Time
	log            *zap.SugaredLogger
}

type WeatherSourceOption func(*WeatherSource)

// WithCities replaces the built-in catalog.
func WithCities(cities []types.CityLocation) WeatherSourceOption {
	return func(s *WeatherSource) {
		s.cities = append([]types.CityLocation(nil), cities...)
	}
}

func WithMinQueryLength(n int) WeatherSourceOption {
	return func(s *WeatherSource) {
		if n > 0 {
			s.minQueryLength = n
		}
	}
}

func WithSourceClock(clock func() time.Time) WeatherSourceOption {
	return func(s *WeatherSource) {
		s.clock = clock
	}
}

func NewWeatherSource(cache SnapshotCache, generator Generator, opts ...WeatherSourceOption) *WeatherSource {
	s := &WeatherSource{
		cache:          cache,
		generator:      generator,
		cities:         append([]types.CityLocation(nil), Cities...),
		minQueryLength: DefaultMinQueryLength,
		clock:          time.Now,
		log:            logger.GetLogger().Named("weather_source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWeatherForCity returns the cached snapshot when fresh, otherwise a new
// one which is cached before returning.
func (s *WeatherSource) GetWeatherForCity(ctx context.Context, cityID string) (types.WeatherSnapshot, error) {
	if cached, ok := s.cache.GetCachedWeather(ctx, cityID); ok {
		return *cached, nil
	}

	city, ok := s.GetCityByID(cityID)
	if !ok {
		return types.WeatherSnapshot{}, errors.NotFound("City", cityID)
	}

	snapshot, err := s.generator.Generate(ctx, city, city.ID)
	if err != nil {
		return types.WeatherSnapshot{}, errors.GenerationFailed("weather", err)
	}

	s.cache.CacheWeather(ctx, snapshot)
	s.log.Debugw("Generated weather", "cityID", cityID)
	return snapshot, nil
}

// GetWeatherForLocation generates an uncached snapshot for coords, borrowing
// name, country, region and timezone from the nearest known city.
func (s *WeatherSource) GetWeatherForLocation(ctx context.Context, coords types.Coordinates) (types.WeatherSnapshot, error) {
	if err := coords.Validate(); err != nil {
		return types.WeatherSnapshot{}, errors.ValidationFailed("invalid coordinates", err.Error())
	}

	nearest, distance, ok := s.NearestCity(coords)
	if !ok {
		return types.WeatherSnapshot{}, errors.NotFound("City", "nearest")
	}

	location := types.CityLocation{
		ID:          s.syntheticID(),
		Name:        nearest.Name,
		Country:     nearest.Country,
		Region:      nearest.Region,
		Coordinates: coords,
		Timezone:    nearest.Timezone,
	}

	snapshot, err := s.generator.Generate(ctx, location, nearest.ID)
	if err != nil {
		return types.WeatherSnapshot{}, errors.GenerationFailed("weather", err)
	}

	s.log.Infow("Generated weather for coordinates",
		"nearestCity", nearest.ID,
		"distanceKm", math.Round(distance),
		"locationID", location.ID)
	return snapshot, nil
}

// NearestCity returns the catalog city closest to coords by great-circle
// distance, along with that distance in kilometres.
func (s *WeatherSource) NearestCity(coords types.Coordinates) (types.CityLocation, float64, bool) {
	var (
		nearest types.CityLocation
		best    = math.Inf(1)
		found   bool
	)
	for _, city := range s.cities {
		d := Haversine(coords, city.Coordinates)
		if d < best {
			best = d
			nearest = city
			found = true
		}
	}
	return nearest, best, found
}

// SearchCities matches the trimmed query case-insensitively against name,
// country and region. Queries shorter than the minimum length match nothing.
func (s *WeatherSource) SearchCities(query string) []types.CityLocation {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []types.CityLocation{}
	if len([]rune(q)) < s.minQueryLength {
		return results
	}
	for _, city := range s.cities {
		if strings.Contains(strings.ToLower(city.Name), q) ||
			strings.Contains(strings.ToLower(city.Country), q) ||
			(city.Region != "" && strings.Contains(strings.ToLower(city.Region), q)) {
			results = append(results, city)
		}
	}
	return results
}

func (s *WeatherSource) GetCityByID(id string) (types.CityLocation, bool) {
	for _, city := range s.cities {
		if city.ID == id {
			return city, true
		}
	}
	return types.CityLocation{}, false
}

// GetAllCities returns a copy of the catalog.
func (s *WeatherSource) GetAllCities() []types.CityLocation {
	return append([]types.CityLocation(nil), s.cities...)
}

func (s *WeatherSource) syntheticID() string {
	return fmt.Sprintf("custom-%s", ulid.MustNew(ulid.Timestamp(s.clock()), ulid.DefaultEntropy()))
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b types.Coordinates) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
