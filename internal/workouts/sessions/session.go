package sessions

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// TimestampLayout is the sortable session key, e.g. 20250310183000.
// It stays a plain string throughout, clients treat it as opaque.
const TimestampLayout = "20060102150405"

// Session is the header row of one workout. TemplateName is a free
// text snapshot taken at save time, deleting or renaming the template
// later does not touch past sessions.
type Session struct {
	ID               int       `json:"id"`
	SessionTimestamp string    `json:"sessionTimestamp"`
	RecordDate       time.Time `json:"recordDate"`
	TemplateName     string    `json:"templateName"`
	DurationMinutes  int       `json:"durationMinutes"`
	SessionNote      *string   `json:"sessionNote,omitempty"`
	SessionRating    *int      `json:"sessionRating,omitempty"`
}

// SetEntry is one completed set.
type SetEntry struct {
	ExerciseID int     `json:"exerciseId"`
	SetNumber  int     `json:"setNumber"`
	Reps       int     `json:"reps"`
	Weight     float64 `json:"weight"`
}

// SessionDetail is a session with all its child rows, as served to
// the diary view.
type SessionDetail struct {
	Session  Session        `json:"session"`
	Sets     []SetEntry     `json:"sets"`
	Comments map[int]string `json:"comments,omitempty"`
}
