package types

// WeatherTheme is the palette a client renders with.
type WeatherTheme struct {
	GradientColors  []string `json:"gradientColors" yaml:"gradient_colors"`
	CardBackground  string   `json:"cardBackground" yaml:"card_background"`
	TextPrimary     string   `json:"textPrimary" yaml:"text_primary"`
	TextSecondary   string   `json:"textSecondary" yaml:"text_secondary"`
	Accent          string   `json:"accent" yaml:"accent"`
	GlassBackground string   `json:"glassBackground" yaml:"glass_background"`
	GlassBorder     string   `json:"glassBorder" yaml:"glass_border"`
}

type ThemeColors struct {
	Light WeatherTheme `json:"light" yaml:"light"`
	Dark  WeatherTheme `json:"dark" yaml:"dark"`
}

// ResolvedTheme is the palette picked for the current condition and mode.
type ResolvedTheme struct {
	Theme     WeatherTheme     `json:"theme"`
	ThemeMode ThemeMode        `json:"themeMode"`
	IsDark    bool             `json:"isDark"`
	Condition WeatherCondition `json:"weatherCondition"`
}
