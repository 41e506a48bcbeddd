package services

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/NomadCrew/climapro-backend/types"
)

// Generator produces a weather snapshot for a city. baseCityID selects the
// base temperature, which lets a synthetic location borrow a known city's
// climate.
type Generator interface {
	Generate(ctx context.Context, city types.CityLocation, baseCityID string) (types.WeatherSnapshot, error)
}

const (
	defaultBaseTemperature = 20.0
	sunriseLabel           = "06:30"
	sunsetLabel            = "19:45"
	sunriseHour            = 6.5
	sunsetHour             = 19.75
	heatAdvisoryChance     = 0.2
)

var baseTemperatures = map[string]float64{
	"new-york":    18,
	"london":      14,
	"tokyo":       22,
	"paris":       16,
	"sydney":      24,
	"dubai":       35,
	"singapore":   30,
	"los-angeles": 26,
}

var (
	currentConditions = []types.WeatherCondition{
		types.ConditionClear, types.ConditionSunny, types.ConditionPartlyCloudy, types.ConditionCloudy,
	}
	dailyConditions = []types.WeatherCondition{
		types.ConditionClear, types.ConditionSunny, types.ConditionPartlyCloudy, types.ConditionCloudy, types.ConditionRain,
	}
	windDirections = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	dayNames       = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// BaseTemperature returns the base temperature in °C for a city id.
func BaseTemperature(cityID string) float64 {
	if t, ok := baseTemperatures[cityID]; ok {
		return t
	}
	return defaultBaseTemperature
}

// MockGenerator produces plausible randomized weather. It holds no state
// besides its random source and is safe for concurrent use.
type MockGenerator struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	clock func() time.Time
}

var _ Generator = (*MockGenerator)(nil)

func NewMockGenerator() *MockGenerator {
	return NewSeededMockGenerator(rand.Uint64(), time.Now)
}

// NewSeededMockGenerator returns a generator with a deterministic random
// source and clock.
func NewSeededMockGenerator(seed uint64, clock func() time.Time) *MockGenerator {
	return &MockGenerator{
		rnd:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		clock: clock,
	}
}

func (g *MockGenerator) Generate(ctx context.Context, city types.CityLocation, baseCityID string) (types.WeatherSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.WeatherSnapshot{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	local := now.In(cityZone(city.Timezone))
	base := BaseTemperature(baseCityID)
	condition := pick(g, currentConditions)

	snapshot := types.WeatherSnapshot{
		Location: city,
		Current: types.CurrentWeather{
			Temperature:   base,
			FeelsLike:     base - 1,
			High:          base + 4,
			Low:           base - 5,
			Condition:     condition,
			Description:   describe(condition),
			Humidity:      g.intn(45, 30),
			UVIndex:       g.intn(1, 10),
			Visibility:    g.intn(8, 7),
			Pressure:      g.intn(1010, 20),
			WindSpeed:     g.intn(8, 20),
			WindDirection: pick(g, windDirections),
			DewPoint:      base - 8,
			CloudCover:    g.intn(0, 50),
		},
		Hourly: g.hourly(local, base),
		Daily:  g.daily(local, base),
		Sun: types.SunData{
			Sunrise:         sunriseLabel,
			Sunset:          sunsetLabel,
			CurrentPosition: SunPosition(local),
		},
		LastUpdated: now.UTC(),
	}

	if g.rnd.Float64() < heatAdvisoryChance {
		snapshot.Alerts = []types.WeatherAlert{{
			ID:          "1",
			Type:        types.AlertTypeAdvisory,
			Title:       "Heat Advisory",
			Description: "High temperatures expected throughout the day. Stay hydrated and avoid prolonged sun exposure.",
			Severity:    types.SeverityModerate,
			StartTime:   now.UTC(),
			EndTime:     now.Add(24 * time.Hour).UTC(),
		}}
	}
	return snapshot, nil
}

func (g *MockGenerator) hourly(local time.Time, base float64) []types.HourlyForecast {
	hours := make([]types.HourlyForecast, 0, 24)
	for i := 0; i < 24; i++ {
		at := local.Add(time.Duration(i) * time.Hour)
		hours = append(hours, types.HourlyForecast{
			Time:                     at.UTC(),
			Temperature:              roundHalfUp(base + HourlyVariation(at.Hour()) + (g.rnd.Float64()*2 - 1)),
			Condition:                pick(g, currentConditions),
			PrecipitationProbability: g.intn(0, 30),
			WindSpeed:                g.intn(10, 15),
			Humidity:                 g.intn(40, 30),
		})
	}
	return hours
}

func (g *MockGenerator) daily(local time.Time, base float64) []types.DailyForecast {
	days := make([]types.DailyForecast, 0, 7)
	for i := 0; i < 7; i++ {
		date := local.AddDate(0, 0, i)
		name := dayNames[date.Weekday()]
		if i == 0 {
			name = "Today"
		}
		days = append(days, types.DailyForecast{
			Date:                     date.UTC(),
			DayName:                  name,
			High:                     roundHalfUp(base + 3 + g.rnd.Float64()*4),
			Low:                      roundHalfUp(base - 5 - g.rnd.Float64()*3),
			Condition:                pick(g, dailyConditions),
			PrecipitationProbability: g.intn(0, 60),
			Sunrise:                  sunriseLabel,
			Sunset:                   sunsetLabel,
			UVIndex:                  g.intn(1, 10),
			Humidity:                 g.intn(40, 40),
		})
	}
	return days
}

// intn returns floor(min + rand*span).
func (g *MockGenerator) intn(min, span int) int {
	return min + int(math.Floor(g.rnd.Float64()*float64(span)))
}

func pick[T any](g *MockGenerator, from []T) T {
	return from[g.rnd.IntN(len(from))]
}

// HourlyVariation is the temperature offset for an hour of the day: warming
// through the morning, cooling through the evening, -3 overnight.
func HourlyVariation(hour int) float64 {
	switch {
	case hour >= 6 && hour <= 14:
		return float64(hour-6) * 0.8
	case hour > 14 && hour <= 20:
		return float64(20-hour) * 0.6
	default:
		return -3
	}
}

// SunPosition is the fraction of the 06:30-19:45 arc elapsed at t, clamped
// to [0, 1].
func SunPosition(t time.Time) float64 {
	hours := float64(t.Hour()) + float64(t.Minute())/60
	if hours < sunriseHour {
		return 0
	}
	if hours > sunsetHour {
		return 1
	}
	return (hours - sunriseHour) / (sunsetHour - sunriseHour)
}

func describe(c types.WeatherCondition) string {
	switch c {
	case types.ConditionClear:
		return "Clear skies"
	case types.ConditionSunny:
		return "Sunny"
	case types.ConditionPartlyCloudy:
		return "Partly cloudy"
	default:
		return "Cloudy"
	}
}

func cityZone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
