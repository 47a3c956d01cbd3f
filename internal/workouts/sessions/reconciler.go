package sessions

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

// WarningNothingSaved is reported when a submission held no valid
// sets. It is a warning, not an error: malformed numbers degrade to
// dropped sets and only total emptiness is surfaced to the user.
const WarningNothingSaved = "nothing saved, no valid sets submitted"

// bodyweight tokens, checked case-insensitively against the weight
// field ("io" is Italian for "me")
var bodyweightTokens = map[string]bool{
	"io": true,
	"me": true,
}

// RawSet is one (exercise, set number) pair as submitted, before any
// numeric parsing.
type RawSet struct {
	ExerciseID int
	SetNumber  int
	Reps       string
	Weight     string
}

// SaveRequest is a parsed submission, either from the structured JSON
// payload or from the flat form fields.
type SaveRequest struct {
	RecordDate       time.Time
	SessionTimestamp string // empty means create new
	TemplateName     string
	DurationMinutes  int
	SessionNote      *string
	SessionRating    *int
	Sets             []RawSet
	Comments         map[int]string
}

type SaveResult struct {
	Saved            bool   `json:"saved"`
	SessionTimestamp string `json:"sessionTimestamp,omitempty"`
	AcceptedSets     int    `json:"acceptedSets"`
	Warning          string `json:"warning,omitempty"`
}

type sessionStore interface {
	Save(ctx context.Context, userID int, session Session, sets []SetEntry, comments map[int]string) (bool, error)
}

type weightSource interface {
	LatestWeight(ctx context.Context, userID int) (float64, bool, error)
}

// Service reconciles raw submissions into persisted sessions.
type Service struct {
	store   sessionStore
	weights weightSource
	metrics *metrics.Manager
	now     func() time.Time
}

func NewService(store sessionStore, weights weightSource, metricsManager *metrics.Manager) *Service {
	return &Service{
		store:   store,
		weights: weights,
		metrics: metricsManager,
		now:     time.Now,
	}
}

func (s *Service) Save(ctx context.Context, userID int, req SaveRequest) (result SaveResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessions.save")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	sessionTimestamp := req.SessionTimestamp
	if sessionTimestamp == "" {
		sessionTimestamp = s.now().Format(TimestampLayout)
	}

	sets, err := s.reconcileSets(ctx, userID, req.Sets)
	if err != nil {
		return SaveResult{}, err
	}

	comments := make(map[int]string)
	for exerciseID, comment := range req.Comments {
		if trimmed := strings.TrimSpace(comment); trimmed != "" {
			comments[exerciseID] = trimmed
		}
	}

	saved, err := s.store.Save(ctx, userID, Session{
		SessionTimestamp: sessionTimestamp,
		RecordDate:       req.RecordDate,
		TemplateName:     req.TemplateName,
		DurationMinutes:  req.DurationMinutes,
		SessionNote:      req.SessionNote,
		SessionRating:    req.SessionRating,
	}, sets, comments)
	if err != nil {
		return SaveResult{}, err
	}

	if !saved {
		s.metrics.CounterSessionsDiscarded.Inc()
		log.Tracef("session save [%d / %s]: no valid sets, nothing saved", userID, sessionTimestamp)
		return SaveResult{
			Warning: WarningNothingSaved,
		}, nil
	}

	s.metrics.CounterSessionsSaved.Inc()
	s.metrics.CounterSetsLogged.Add(float64(len(sets)))

	return SaveResult{
		Saved:            true,
		SessionTimestamp: sessionTimestamp,
		AcceptedSets:     len(sets),
	}, nil
}

// reconcileSets turns raw fields into accepted sets. A set survives
// only with reps > 0 and weight >= 0; everything else is dropped
// silently. The bodyweight is looked up at most once per submission.
func (s *Service) reconcileSets(
	ctx context.Context,
	userID int,
	raw []RawSet,
) ([]SetEntry, error) {
	var bodyweight float64
	bodyweightResolved := false

	var accepted []SetEntry
	for _, rawSet := range raw {
		reps, err := strconv.Atoi(strings.TrimSpace(rawSet.Reps))
		if err != nil {
			reps = 0
		}

		weightField := strings.ToLower(strings.TrimSpace(rawSet.Weight))
		var weight float64
		if bodyweightTokens[weightField] {
			if !bodyweightResolved {
				var found bool
				var err error
				bodyweight, found, err = s.weights.LatestWeight(ctx, userID)
				if err != nil {
					return nil, err
				}
				if !found {
					bodyweight = 0
				}
				bodyweightResolved = true
			}
			weight = bodyweight
		} else if parsed, err := strconv.ParseFloat(weightField, 64); err == nil {
			weight = parsed
		}

		if reps > 0 && weight >= 0 {
			accepted = append(accepted, SetEntry{
				ExerciseID: rawSet.ExerciseID,
				SetNumber:  rawSet.SetNumber,
				Reps:       reps,
				Weight:     weight,
			})
		}
	}
	return accepted, nil
}

// ParseSessionForm extracts a save request from flat form fields:
// reps_{exerciseID}_{setNumber}, weight_{exerciseID}_{setNumber} and
// comment_{exerciseID}, plus the session metadata fields.
func ParseSessionForm(form url.Values) (SaveRequest, error) {
	recordDate, err := pkg.ParseDate(form.Get("record_date"))
	if err != nil {
		return SaveRequest{}, err
	}

	req := SaveRequest{
		RecordDate:       recordDate,
		SessionTimestamp: form.Get("session_timestamp"),
		TemplateName:     form.Get("template_name"),
		Comments:         make(map[int]string),
	}

	if duration, err := strconv.Atoi(form.Get("duration_minutes")); err == nil {
		req.DurationMinutes = duration
	}
	if note := strings.TrimSpace(form.Get("session_note")); note != "" {
		req.SessionNote = &note
	}
	if rating, err := strconv.Atoi(form.Get("session_rating")); err == nil && rating >= 1 && rating <= 10 {
		req.SessionRating = &rating
	}

	for field := range form {
		switch {
		case strings.HasPrefix(field, "reps_"):
			exerciseID, setNumber, ok := parseSetField(field, "reps_")
			if !ok {
				continue
			}
			weightField := "weight_" + strconv.Itoa(exerciseID) + "_" + strconv.Itoa(setNumber)
			req.Sets = append(req.Sets, RawSet{
				ExerciseID: exerciseID,
				SetNumber:  setNumber,
				Reps:       form.Get(field),
				Weight:     form.Get(weightField),
			})
		case strings.HasPrefix(field, "comment_"):
			exerciseID, err := strconv.Atoi(strings.TrimPrefix(field, "comment_"))
			if err != nil {
				continue
			}
			req.Comments[exerciseID] = form.Get(field)
		}
	}

	return req, nil
}

func parseSetField(field, prefix string) (exerciseID, setNumber int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(field, prefix), "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	exerciseID, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	setNumber, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return exerciseID, setNumber, true
}
