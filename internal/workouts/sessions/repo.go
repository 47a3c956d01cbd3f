package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Save writes the session header plus all accepted sets and comments
// in one transaction. Editing an existing session replaces its child
// rows wholesale. When no sets were accepted the header is deleted
// before committing, so a session can never exist without sets even
// when the edit targets a previously saved one.
func (r *Repo) Save(
	ctx context.Context,
	userID int,
	session Session,
	sets []SetEntry,
	comments map[int]string,
) (saved bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessionsRepo.save")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				log.Errorf("save session: rollback: %s", rollbackErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO workout_sessions
			(user_id, session_timestamp, record_date, template_name, duration_minutes, session_note, session_rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, session_timestamp) DO UPDATE SET
			record_date = EXCLUDED.record_date,
			template_name = EXCLUDED.template_name,
			duration_minutes = EXCLUDED.duration_minutes,
			session_note = EXCLUDED.session_note,
			session_rating = EXCLUDED.session_rating`,
		userID, session.SessionTimestamp, session.RecordDate,
		session.TemplateName, session.DurationMinutes,
		session.SessionNote, session.SessionRating,
	); err != nil {
		return false, fmt.Errorf("upsert session header: %w", err)
	}

	// full replace of child rows, both for edits and no-op on create
	if _, err = tx.Exec(ctx, `
		DELETE FROM workout_log
		WHERE user_id = $1 AND session_timestamp = $2`,
		userID, session.SessionTimestamp,
	); err != nil {
		return false, fmt.Errorf("clear log entries: %w", err)
	}
	if _, err = tx.Exec(ctx, `
		DELETE FROM workout_session_comments
		WHERE user_id = $1 AND session_timestamp = $2`,
		userID, session.SessionTimestamp,
	); err != nil {
		return false, fmt.Errorf("clear comments: %w", err)
	}

	if len(sets) == 0 {
		// nothing survived validation, so remove the header too, even
		// when it belonged to a previously saved session
		if _, err = tx.Exec(ctx, `
			DELETE FROM workout_sessions
			WHERE user_id = $1 AND session_timestamp = $2`,
			userID, session.SessionTimestamp,
		); err != nil {
			return false, fmt.Errorf("delete empty session: %w", err)
		}
		if err = tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
		return false, nil
	}

	for _, set := range sets {
		if _, err = tx.Exec(ctx, `
			INSERT INTO workout_log
				(user_id, exercise_id, record_date, session_timestamp, set_number, reps, weight)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			userID, set.ExerciseID, session.RecordDate,
			session.SessionTimestamp, set.SetNumber, set.Reps, set.Weight,
		); err != nil {
			return false, fmt.Errorf("insert log entry: %w", err)
		}
	}

	for exerciseID, comment := range comments {
		if comment == "" {
			continue
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO workout_session_comments (user_id, session_timestamp, exercise_id, comment)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, session_timestamp, exercise_id)
			DO UPDATE SET comment = EXCLUDED.comment`,
			userID, session.SessionTimestamp, exerciseID, comment,
		); err != nil {
			return false, fmt.Errorf("upsert comment: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (r *Repo) Get(ctx context.Context, userID int, sessionTimestamp string) (detail *SessionDetail, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessionsRepo.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var session Session
	if err = r.db.QueryRow(ctx, `
		SELECT id, session_timestamp, record_date, template_name, duration_minutes, session_note, session_rating
		FROM workout_sessions
		WHERE user_id = $1 AND session_timestamp = $2`,
		userID, sessionTimestamp,
	).Scan(
		&session.ID, &session.SessionTimestamp, &session.RecordDate,
		&session.TemplateName, &session.DurationMinutes,
		&session.SessionNote, &session.SessionRating,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT exercise_id, set_number, reps, weight
		FROM workout_log
		WHERE user_id = $1 AND session_timestamp = $2
		ORDER BY exercise_id, set_number`,
		userID, sessionTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("get log entries: %w", err)
	}
	defer rows.Close()

	var sets []SetEntry
	for rows.Next() {
		var set SetEntry
		if err := rows.Scan(&set.ExerciseID, &set.SetNumber, &set.Reps, &set.Weight); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	commentRows, err := r.db.Query(ctx, `
		SELECT exercise_id, comment
		FROM workout_session_comments
		WHERE user_id = $1 AND session_timestamp = $2`,
		userID, sessionTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	defer commentRows.Close()

	comments := make(map[int]string)
	for commentRows.Next() {
		var exerciseID int
		var comment string
		if err := commentRows.Scan(&exerciseID, &comment); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments[exerciseID] = comment
	}
	if err := commentRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &SessionDetail{
		Session:  session,
		Sets:     sets,
		Comments: comments,
	}, nil
}

// List returns session headers in a date range, newest first.
func (r *Repo) List(ctx context.Context, userID int, from, to time.Time) (list []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessionsRepo.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT id, session_timestamp, record_date, template_name, duration_minutes, session_note, session_rating
		FROM workout_sessions
		WHERE user_id = $1 AND record_date BETWEEN $2 AND $3
		ORDER BY record_date DESC, session_timestamp DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID, &session.SessionTimestamp, &session.RecordDate,
			&session.TemplateName, &session.DurationMinutes,
			&session.SessionNote, &session.SessionRating,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		list = append(list, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return list, nil
}

// Delete removes the session header; log entries and comments go with
// it through the cascading foreign keys.
func (r *Repo) Delete(ctx context.Context, userID int, sessionTimestamp string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessionsRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM workout_sessions
		WHERE user_id = $1 AND session_timestamp = $2`,
		userID, sessionTimestamp,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
