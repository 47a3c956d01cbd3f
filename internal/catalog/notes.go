package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

// NotesRepo keeps per-user notes attached to exercises, e.g. seat
// settings or form reminders. One note per user and exercise.
type NotesRepo struct {
	db *pgxpool.Pool
}

func NewNotesRepo(db *pgxpool.Pool) *NotesRepo {
	return &NotesRepo{db: db}
}

func (r *NotesRepo) Upsert(ctx context.Context, userID, exerciseID int, notes string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesRepo.upsert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if _, err = r.db.Exec(ctx, `
		INSERT INTO user_exercise_notes (user_id, exercise_id, notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, exercise_id)
		DO UPDATE SET notes = EXCLUDED.notes`,
		userID, exerciseID, notes,
	); err != nil {
		return fmt.Errorf("upsert exercise notes: %w", err)
	}
	return nil
}

func (r *NotesRepo) Get(ctx context.Context, userID, exerciseID int) (string, error) {
	var notes string
	if err := r.db.QueryRow(ctx, `
		SELECT notes FROM user_exercise_notes
		WHERE user_id = $1 AND exercise_id = $2`,
		userID, exerciseID,
	).Scan(&notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get exercise notes: %w", err)
	}
	return notes, nil
}

func (r *NotesRepo) AllForUser(ctx context.Context, userID int) (map[int]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT exercise_id, notes FROM user_exercise_notes
		WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get user exercise notes: %w", err)
	}
	defer rows.Close()

	notesPerExercise := make(map[int]string)
	for rows.Next() {
		var exerciseID int
		var notes string
		if err := rows.Scan(&exerciseID, &notes); err != nil {
			return nil, fmt.Errorf("scan exercise notes: %w", err)
		}
		notesPerExercise[exerciseID] = notes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return notesPerExercise, nil
}

func (r *NotesRepo) Delete(ctx context.Context, userID, exerciseID int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM user_exercise_notes
		WHERE user_id = $1 AND exercise_id = $2`,
		userID, exerciseID,
	)
	return err
}
