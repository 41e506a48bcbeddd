package types

import "fmt"

type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

type SpeedUnit string

const (
	KilometersPerHour SpeedUnit = "kmh"
	MilesPerHour      SpeedUnit = "mph"
)

type ThemeMode string

const (
	ThemeModeLight  ThemeMode = "light"
	ThemeModeDark   ThemeMode = "dark"
	ThemeModeSystem ThemeMode = "system"
)

// Setting keys accepted by single-field updates.
const (
	SettingTemperatureUnit      = "temperatureUnit"
	SettingSpeedUnit            = "speedUnit"
	SettingThemeMode            = "themeMode"
	SettingNotificationsEnabled = "notificationsEnabled"
	SettingSevereWeatherAlerts  = "severeWeatherAlerts"
)

type UserSettings struct {
	TemperatureUnit      TemperatureUnit `json:"temperatureUnit"`
	SpeedUnit            SpeedUnit       `json:"speedUnit"`
	ThemeMode            ThemeMode       `json:"themeMode"`
	NotificationsEnabled bool            `json:"notificationsEnabled"`
	SevereWeatherAlerts  bool            `json:"severeWeatherAlerts"`
}

// DefaultSettings returns the settings used when nothing has been saved.
func DefaultSettings() UserSettings {
	return UserSettings{
		TemperatureUnit:      Celsius,
		SpeedUnit:            KilometersPerHour,
		ThemeMode:            ThemeModeSystem,
		NotificationsEnabled: true,
		SevereWeatherAlerts:  true,
	}
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	TemperatureUnit      *TemperatureUnit `json:"temperatureUnit,omitempty"`
	SpeedUnit            *SpeedUnit       `json:"speedUnit,omitempty"`
	ThemeMode            *ThemeMode       `json:"themeMode,omitempty"`
	NotificationsEnabled *bool            `json:"notificationsEnabled,omitempty"`
	SevereWeatherAlerts  *bool            `json:"severeWeatherAlerts,omitempty"`
}

// Apply returns s with every non-nil patch field written over it.
func (p SettingsPatch) Apply(s UserSettings) UserSettings {
	if p.TemperatureUnit != nil {
		s.TemperatureUnit = *p.TemperatureUnit
	}
	if p.SpeedUnit != nil {
		s.SpeedUnit = *p.SpeedUnit
	}
	if p.ThemeMode != nil {
		s.ThemeMode = *p.ThemeMode
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.SevereWeatherAlerts != nil {
		s.SevereWeatherAlerts = *p.SevereWeatherAlerts
	}
	return s
}

func (s UserSettings) Validate() error {
	switch s.TemperatureUnit {
	case Celsius, Fahrenheit:
	default:
		return fmt.Errorf("unknown temperature unit %q", s.TemperatureUnit)
	}
	switch s.SpeedUnit {
	case KilometersPerHour, MilesPerHour:
	default:
		return fmt.Errorf("unknown speed unit %q", s.SpeedUnit)
	}
	switch s.ThemeMode {
	case ThemeModeLight, ThemeModeDark, ThemeModeSystem:
	default:
		return fmt.Errorf("unknown theme mode %q", s.ThemeMode)
	}
	return nil
}

// PatchForKey builds a single-field patch from a setting key and a loosely
// typed value (as decoded from JSON).
func PatchForKey(key string, value interface{}) (SettingsPatch, error) {
	var patch SettingsPatch
	switch key {
	case SettingTemperatureUnit:
		str, ok := value.(string)
		if !ok {
			return patch, fmt.Errorf("%s expects a string", key)
		}
		unit := TemperatureUnit(str)
		patch.TemperatureUnit = &unit
	case SettingSpeedUnit:
		str, ok := value.(string)
		if !ok {
			return patch, fmt.Errorf("%s expects a string", key)
		}
		unit := SpeedUnit(str)
		patch.SpeedUnit = &unit
	case SettingThemeMode:
		str, ok := value.(string)
		if !ok {
			return patch, fmt.Errorf("%s expects a string", key)
		}
		mode := ThemeMode(str)
		patch.ThemeMode = &mode
	case SettingNotificationsEnabled:
		b, ok := value.(bool)
		if !ok {
			return patch, fmt.Errorf("%s expects a boolean", key)
		}
		patch.NotificationsEnabled = &b
	case SettingSevereWeatherAlerts:
		b, ok := value.(bool)
		if !ok {
			return patch, fmt.Errorf("%s expects a boolean", key)
		}
		patch.SevereWeatherAlerts = &b
	default:
		return patch, fmt.Errorf("unknown setting %q", key)
	}
	return patch, nil
}
