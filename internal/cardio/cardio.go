package cardio

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("cardio entry not found")

// Entry is one cardio session: a run, a ride, anything measured in
// distance and time.
type Entry struct {
	ID              int       `json:"id"`
	RecordDate      time.Time `json:"recordDate"`
	DistanceKm      float64   `json:"distanceKm"`
	DurationMinutes int       `json:"durationMinutes"`
	AvgHeartRate    *int      `json:"avgHeartRate,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}
