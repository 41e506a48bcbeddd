package services

import (
	"fmt"

	"github.com/NomadCrew/climapro-backend/types"
)

const kmhToMph = 0.621371

// ConvertTemperature converts a °C value into unit.
func ConvertTemperature(celsius float64, unit types.TemperatureUnit) float64 {
	if unit == types.Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}

// FormatTemperature renders a °C value in unit, rounded half-up.
func FormatTemperature(celsius float64, unit types.TemperatureUnit) string {
	if unit == types.Fahrenheit {
		return fmt.Sprintf("%d°F", int(roundHalfUp(ConvertTemperature(celsius, unit))))
	}
	return fmt.Sprintf("%d°C", int(roundHalfUp(celsius)))
}

// FormatSpeed renders a km/h value in unit, rounded half-up.
func FormatSpeed(kmh float64, unit types.SpeedUnit) string {
	if unit == types.MilesPerHour {
		return fmt.Sprintf("%d mph", int(roundHalfUp(kmh*kmhToMph)))
	}
	return fmt.Sprintf("%d km/h", int(roundHalfUp(kmh)))
}

func temperatureSymbol(unit types.TemperatureUnit) string {
	if unit == types.Fahrenheit {
		return "F"
	}
	return "C"
}
