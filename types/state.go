package types

import "time"

type FetchStatus string

const (
	StatusIdle    FetchStatus = "idle"
	StatusLoading FetchStatus = "loading"
	StatusLoaded  FetchStatus = "loaded"
	StatusError   FetchStatus = "error"
)

// WeatherState is the coordinator's published view. A failed fetch sets
// Error but keeps the previous Snapshot.
type WeatherState struct {
	Status         FetchStatus      `json:"status"`
	SelectedCity   *CityLocation    `json:"selectedCity,omitempty"`
	Snapshot       *WeatherSnapshot `json:"snapshot,omitempty"`
	Error          string           `json:"error,omitempty"`
	Favorites      []FavoriteCity   `json:"favorites"`
	RecentSearches []CityLocation   `json:"recentSearches"`
	Settings       UserSettings     `json:"settings"`
	Version        uint64           `json:"version"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// IsLoading mirrors the client's loading flag.
func (s WeatherState) IsLoading() bool {
	return s.Status == StatusLoading
}

// Clone returns a copy whose slices and pointers do not alias s.
func (s WeatherState) Clone() WeatherState {
	out := s
	if s.SelectedCity != nil {
		city := *s.SelectedCity
		out.SelectedCity = &city
	}
	if s.Snapshot != nil {
		snap := *s.Snapshot
		out.Snapshot = &snap
	}
	out.Favorites = append([]FavoriteCity(nil), s.Favorites...)
	out.RecentSearches = append([]CityLocation(nil), s.RecentSearches...)
	if out.Favorites == nil {
		out.Favorites = []FavoriteCity{}
	}
	if out.RecentSearches == nil {
		out.RecentSearches = []CityLocation{}
	}
	return out
}
