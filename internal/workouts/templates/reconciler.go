package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/catalog"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

const (
	itemTypeExisting = "existing"
	itemTypeNew      = "new"
)

// flexSets accepts both a JSON string and a number for the sets count.
type flexSets string

func (v *flexSets) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*v = flexSets(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*v = flexSets(asNumber.String())
		return nil
	}
	return fmt.Errorf("invalid sets value: %s", data)
}

// SaveItem is one entry of the bulk-save payload, either a kept row
// (existing) or a fresh one (new). Payload order becomes the new
// sort order.
type SaveItem struct {
	Type               string   `json:"type"`
	TemplateExerciseID int      `json:"templateExerciseId,omitempty"`
	ExerciseID         int      `json:"exerciseId,omitempty"`
	Sets               flexSets `json:"sets"`
}

// SavePayload is the full client-authored diff of a template's
// exercise list. Both lists must be present, an absent list means the
// client and server disagree about the payload shape.
type SavePayload struct {
	Items   *[]SaveItem `json:"items"`
	Deleted *[]int      `json:"deleted"`
}

type templateStore interface {
	Get(ctx context.Context, userID, templateID int) (*Template, error)
	Exercises(ctx context.Context, templateID int) ([]TemplateExercise, error)
	ApplyDiff(ctx context.Context, templateID int, deleted []int, items []SaveItem) error
}

type exerciseChecker interface {
	GetByID(ctx context.Context, userID, id int) (*catalog.Item, error)
}

// Reconciler validates a template diff against the persisted state
// and applies it atomically. Every currently stored row must be
// accounted for by the payload, either kept or deleted; a row the
// client never saw makes the whole save fail instead of silently
// disappearing.
type Reconciler struct {
	store     templateStore
	exercises exerciseChecker
	metrics   *metrics.Manager
}

func NewReconciler(store templateStore, exercises exerciseChecker, metricsManager *metrics.Manager) *Reconciler {
	return &Reconciler{
		store:     store,
		exercises: exercises,
		metrics:   metricsManager,
	}
}

func (r *Reconciler) Save(ctx context.Context, userID, templateID int, payload SavePayload) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templates.save")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	defer func() {
		if errors.Is(err, ErrStateConflict) {
			r.metrics.CounterTemplateConflicts.Inc()
		}
	}()

	if payload.Items == nil || payload.Deleted == nil {
		return validationErrorf("items and deleted lists are required")
	}
	items := *payload.Items
	deleted := *payload.Deleted

	if _, err := r.store.Get(ctx, userID, templateID); err != nil {
		return err
	}

	current, err := r.store.Exercises(ctx, templateID)
	if err != nil {
		return err
	}
	validExisting := make(map[int]bool, len(current))
	for _, te := range current {
		validExisting[te.ID] = true
	}

	deletedSet := make(map[int]bool, len(deleted))
	for _, id := range deleted {
		if !validExisting[id] {
			log.Warnf("template %d save: deleted id %d not in template", templateID, id)
			return fmt.Errorf("%w: unknown deleted row %d", ErrStateConflict, id)
		}
		deletedSet[id] = true
	}

	referenced := make(map[int]bool, len(items))
	for _, item := range items {
		switch item.Type {
		case itemTypeExisting:
			if !validExisting[item.TemplateExerciseID] {
				log.Warnf("template %d save: existing id %d not in template", templateID, item.TemplateExerciseID)
				return fmt.Errorf("%w: unknown row %d", ErrStateConflict, item.TemplateExerciseID)
			}
			if deletedSet[item.TemplateExerciseID] {
				return validationErrorf("row %d is both kept and deleted", item.TemplateExerciseID)
			}
			if referenced[item.TemplateExerciseID] {
				return validationErrorf("row %d appears twice", item.TemplateExerciseID)
			}
			referenced[item.TemplateExerciseID] = true
		case itemTypeNew:
			if _, err := r.exercises.GetByID(ctx, userID, item.ExerciseID); err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return validationErrorf("exercise %d not found", item.ExerciseID)
				}
				return err
			}
		default:
			return validationErrorf("unknown item type: %q", item.Type)
		}

		if sets, err := strconv.Atoi(string(item.Sets)); err != nil || sets < 0 {
			return validationErrorf("invalid sets value: %q", item.Sets)
		}
	}

	// completeness: every persisted row must be kept or deleted
	for id := range validExisting {
		if !referenced[id] && !deletedSet[id] {
			log.Warnf("template %d save: row %d not accounted for", templateID, id)
			return fmt.Errorf("%w: row %d not accounted for", ErrStateConflict, id)
		}
	}

	if err := r.store.ApplyDiff(ctx, templateID, deleted, items); err != nil {
		return err
	}

	r.metrics.CounterTemplateSaves.Inc()
	return nil
}
