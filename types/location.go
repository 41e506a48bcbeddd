package types

import (
	"fmt"
	"time"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinates are on the globe.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// CityLocation identifies a place. It is used as a value type.
type CityLocation struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	Region      string      `json:"region,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Timezone    string      `json:"timezone"`
}

// FavoriteCity is a saved city. Order values across all favorites are
// always the contiguous sequence 0..N-1.
type FavoriteCity struct {
	CityLocation
	Order   int       `json:"order"`
	AddedAt time.Time `json:"addedAt"`
}
