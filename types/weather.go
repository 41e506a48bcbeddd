package types

import (
	"time"
)

type WeatherCondition string

const (
	ConditionClear        WeatherCondition = "clear"
	ConditionSunny        WeatherCondition = "sunny"
	ConditionPartlyCloudy WeatherCondition = "partly-cloudy"
	ConditionCloudy       WeatherCondition = "cloudy"
	ConditionOvercast     WeatherCondition = "overcast"
	ConditionRain         WeatherCondition = "rain"
	ConditionHeavyRain    WeatherCondition = "heavy-rain"
	ConditionThunderstorm WeatherCondition = "thunderstorm"
	ConditionSnow         WeatherCondition = "snow"
	ConditionFog          WeatherCondition = "fog"
	ConditionMist         WeatherCondition = "mist"
	ConditionWindy        WeatherCondition = "windy"
	ConditionHail         WeatherCondition = "hail"
)

// AllConditions lists every condition in declaration order.
var AllConditions = []WeatherCondition{
	ConditionClear, ConditionSunny, ConditionPartlyCloudy, ConditionCloudy,
	ConditionOvercast, ConditionRain, ConditionHeavyRain, ConditionThunderstorm,
	ConditionSnow, ConditionFog, ConditionMist, ConditionWindy, ConditionHail,
}

func (c WeatherCondition) IsValid() bool {
	for _, known := range AllConditions {
		if c == known {
			return true
		}
	}
	return false
}

// IsWet reports whether the condition means rain is falling.
func (c WeatherCondition) IsWet() bool {
	return c == ConditionRain || c == ConditionHeavyRain || c == ConditionThunderstorm
}

type AlertType string

const (
	AlertTypeWarning  AlertType = "warning"
	AlertTypeWatch    AlertType = "watch"
	AlertTypeAdvisory AlertType = "advisory"
)

type AlertSeverity string

const (
	SeverityMinor    AlertSeverity = "minor"
	SeverityModerate AlertSeverity = "moderate"
	SeveritySevere   AlertSeverity = "severe"
	SeverityExtreme  AlertSeverity = "extreme"
)

type CurrentWeather struct {
	Temperature   float64          `json:"temperature"`
	FeelsLike     float64          `json:"feelsLike"`
	High          float64          `json:"high"`
	Low           float64          `json:"low"`
	Condition     WeatherCondition `json:"condition"`
	Description   string           `json:"description"`
	Humidity      int              `json:"humidity"`
	UVIndex       int              `json:"uvIndex"`
	Visibility    int              `json:"visibility"`
	Pressure      int              `json:"pressure"`
	WindSpeed     int              `json:"windSpeed"`
	WindDirection string           `json:"windDirection"`
	DewPoint      float64          `json:"dewPoint"`
	CloudCover    int              `json:"cloudCover"`
}

type HourlyForecast struct {
	Time                     time.Time        `json:"time"`
	Temperature              float64          `json:"temperature"`
	Condition                WeatherCondition `json:"condition"`
	PrecipitationProbability int              `json:"precipitationProbability"`
	WindSpeed                int              `json:"windSpeed"`
	Humidity                 int              `json:"humidity"`
}

type DailyForecast struct {
	Date                     time.Time        `json:"date"`
	DayName                  string           `json:"dayName"`
	High                     float64          `json:"high"`
	Low                      float64          `json:"low"`
	Condition                WeatherCondition `json:"condition"`
	PrecipitationProbability int              `json:"precipitationProbability"`
	Sunrise                  string           `json:"sunrise"`
	Sunset                   string           `json:"sunset"`
	UVIndex                  int              `json:"uvIndex"`
	Humidity                 int              `json:"humidity"`
}

// SunData describes the sun's arc; CurrentPosition is 0 before sunrise,
// 1 after sunset and the fractional progress in between.
type SunData struct {
	Sunrise         string  `json:"sunrise"`
	Sunset          string  `json:"sunset"`
	CurrentPosition float64 `json:"currentPosition"`
}

type WeatherAlert struct {
	ID          string        `json:"id"`
	Type        AlertType     `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Severity    AlertSeverity `json:"severity"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
}

// WeatherSnapshot is a complete weather bundle for one location at one point in time.
type WeatherSnapshot struct {
	Location    CityLocation     `json:"location"`
	Current     CurrentWeather   `json:"current"`
	Hourly      []HourlyForecast `json:"hourly"`
	Daily       []DailyForecast  `json:"daily"`
	Sun         SunData          `json:"sun"`
	LastUpdated time.Time        `json:"lastUpdated"`
	Alerts      []WeatherAlert   `json:"alerts,omitempty"`
}
