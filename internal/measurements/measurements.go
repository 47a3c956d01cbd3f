package measurements

import (
	"errors"
	"time"

	"github.com/2beens/fitlog/pkg"
)

var ErrNotFound = errors.New("measurement not found")

// Measurement is one day's worth of body measurements. All value
// fields are optional, a day can hold just a weight or just a note.
type Measurement struct {
	RecordDate time.Time `json:"recordDate"`
	Weight     *float64  `json:"weight,omitempty"`
	BodyFat    *float64  `json:"bodyFat,omitempty"`
	Waist      *float64  `json:"waist,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

// ParseDate accepts both the dashed and the compact date form.
func ParseDate(s string) (time.Time, error) {
	return pkg.ParseDate(s)
}
