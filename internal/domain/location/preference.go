// Package location provides domain entities for visitor location state.
package location

import "time"

// Source identifies how a location value was obtained.
type Source string

const (
	SourceGPS              Source = "gps"
	SourceIPGeolocation    Source = "ip_geoloc"
	SourceManual           Source = "manual"
	SourcePreferenceLoaded Source = "preference_loaded"
)

// Preference is the in-memory location state for a visitor. The
// persisted copy is a one-way projection sent to the backend; it is
// read back only once at boot.
type Preference struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPreference creates a location preference stamped with the current time.
func NewPreference(lat, lng float64, accuracy *float64, source Source) *Preference {
	return &Preference{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracy,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// InRange reports whether the coordinates are valid WGS84 values.
func (p *Preference) InRange() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
