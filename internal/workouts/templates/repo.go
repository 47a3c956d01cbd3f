package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Get returns the template only when it belongs to the user; a foreign
// template is indistinguishable from a missing one.
func (r *Repo) Get(ctx context.Context, userID, templateID int) (template *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var t Template
	if err = r.db.QueryRow(ctx, `
		SELECT id, name FROM workout_templates
		WHERE id = $1 AND user_id = $2`,
		templateID, userID,
	).Scan(&t.ID, &t.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	if t.Exercises, err = r.Exercises(ctx, templateID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) List(ctx context.Context, userID int) (list []Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT id, name FROM workout_templates
		WHERE user_id = $1
		ORDER BY LOWER(name)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return list, nil
}

func (r *Repo) Create(ctx context.Context, userID int, name string) (template *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var id int
	if err = r.db.QueryRow(ctx, `
		INSERT INTO workout_templates (user_id, name)
		VALUES ($1, $2)
		RETURNING id`,
		userID, name,
	).Scan(&id); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("create template: %w", err)
	}
	return &Template{ID: id, Name: name}, nil
}

func (r *Repo) Rename(ctx context.Context, userID, templateID int, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.rename")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		UPDATE workout_templates SET name = $3
		WHERE id = $1 AND user_id = $2`,
		templateID, userID, name,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("rename template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, templateID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM workout_templates
		WHERE id = $1 AND user_id = $2`,
		templateID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exercises returns the template's rows in a guaranteed dense 1..N
// order. Any gaps or duplicates found in sort_order are repaired first
// so the reorder operations always see a clean total order.
func (r *Repo) Exercises(ctx context.Context, templateID int) (exercises []TemplateExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.exercises")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	exercises, err = r.fetchExercises(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if !denselyOrdered(exercises) {
		log.Debugf("template %d: repairing sort order of %d rows", templateID, len(exercises))
		if err := r.repairOrder(ctx, exercises); err != nil {
			return nil, err
		}
		for i := range exercises {
			exercises[i].SortOrder = i + 1
		}
	}
	return exercises, nil
}

func (r *Repo) fetchExercises(ctx context.Context, templateID int) ([]TemplateExercise, error) {
	rows, err := r.db.Query(ctx, `
		SELECT te.id, te.template_id, te.exercise_id, e.name, te.sets, te.sort_order
		FROM template_exercises te
		JOIN exercises e ON e.id = te.exercise_id
		WHERE te.template_id = $1
		ORDER BY te.sort_order ASC, te.id ASC`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("get template exercises: %w", err)
	}
	defer rows.Close()

	var exercises []TemplateExercise
	for rows.Next() {
		var te TemplateExercise
		if err := rows.Scan(
			&te.ID, &te.TemplateID, &te.ExerciseID,
			&te.ExerciseName, &te.Sets, &te.SortOrder,
		); err != nil {
			return nil, fmt.Errorf("scan template exercise: %w", err)
		}
		exercises = append(exercises, te)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

func denselyOrdered(exercises []TemplateExercise) bool {
	for i, te := range exercises {
		if te.SortOrder != i+1 {
			return false
		}
	}
	return true
}

func (r *Repo) repairOrder(ctx context.Context, exercises []TemplateExercise) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for i, te := range exercises {
		if _, err := tx.Exec(ctx,
			`UPDATE template_exercises SET sort_order = $2 WHERE id = $1`,
			te.ID, i+1,
		); err != nil {
			return fmt.Errorf("repair sort order: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Move swaps the row with its neighbor, one step up or down. Moving
// the first row up or the last row down is a no-op.
func (r *Repo) Move(ctx context.Context, userID, templateID, templateExerciseID int, up bool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.move")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if _, err = r.Get(ctx, userID, templateID); err != nil {
		return err
	}
	exercises, err := r.Exercises(ctx, templateID)
	if err != nil {
		return err
	}

	position := -1
	for i, te := range exercises {
		if te.ID == templateExerciseID {
			position = i
			break
		}
	}
	if position == -1 {
		return ErrNotFound
	}

	neighbor := position + 1
	if up {
		neighbor = position - 1
	}
	if neighbor < 0 || neighbor >= len(exercises) {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx,
		`UPDATE template_exercises SET sort_order = $2 WHERE id = $1`,
		exercises[position].ID, exercises[neighbor].SortOrder,
	); err != nil {
		return fmt.Errorf("swap sort order: %w", err)
	}
	if _, err = tx.Exec(ctx,
		`UPDATE template_exercises SET sort_order = $2 WHERE id = $1`,
		exercises[neighbor].ID, exercises[position].SortOrder,
	); err != nil {
		return fmt.Errorf("swap sort order: %w", err)
	}
	return tx.Commit(ctx)
}

// ApplyDiff performs the validated bulk save in one transaction:
// deletes first, then walks the kept and new items in payload order
// assigning a fresh dense sort_order starting at 1.
func (r *Repo) ApplyDiff(ctx context.Context, templateID int, deleted []int, items []SaveItem) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "templatesRepo.applyDiff")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, templateExerciseID := range deleted {
		if _, err = tx.Exec(ctx,
			`DELETE FROM template_exercises WHERE id = $1 AND template_id = $2`,
			templateExerciseID, templateID,
		); err != nil {
			return fmt.Errorf("delete template exercise: %w", err)
		}
	}

	for i, item := range items {
		sortOrder := i + 1
		if item.Type == itemTypeExisting {
			if _, err = tx.Exec(ctx, `
				UPDATE template_exercises SET sets = $3, sort_order = $4
				WHERE id = $1 AND template_id = $2`,
				item.TemplateExerciseID, templateID, string(item.Sets), sortOrder,
			); err != nil {
				return fmt.Errorf("update template exercise: %w", err)
			}
		} else {
			if _, err = tx.Exec(ctx, `
				INSERT INTO template_exercises (template_id, exercise_id, sets, sort_order)
				VALUES ($1, $2, $3, $4)`,
				templateID, item.ExerciseID, string(item.Sets), sortOrder,
			); err != nil {
				return fmt.Errorf("insert template exercise: %w", err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
