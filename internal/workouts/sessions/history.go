package sessions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

const historySessionsPerExercise = 2

// HistorySession is one past session of an exercise, with its sets
// rendered as "80kg x 8" strings in set order.
type HistorySession struct {
	RecordDate       time.Time `json:"recordDate"`
	SessionTimestamp string    `json:"sessionTimestamp"`
	Sets             []string  `json:"sets"`
}

// ExerciseHistory is what the session entry screen shows next to an
// exercise: its two most recent sessions before the cutoff and the
// last comment left on it.
type ExerciseHistory struct {
	ExerciseID  int              `json:"exerciseId"`
	Sessions    []HistorySession `json:"sessions"`
	LastComment string           `json:"lastComment,omitempty"`
}

// HistoryAggregator serves the read-side history view. It reflects
// committed data only and carries no consistency obligations.
type HistoryAggregator struct {
	db *pgxpool.Pool
}

func NewHistoryAggregator(db *pgxpool.Pool) *HistoryAggregator {
	return &HistoryAggregator{db: db}
}

// History returns, per requested exercise, the most recent sessions
// strictly before the cutoff date. Sessions are ranked per exercise by
// (record_date desc, session_timestamp desc).
func (a *HistoryAggregator) History(
	ctx context.Context,
	userID int,
	exerciseIDs []int,
	cutoff time.Time,
) (history map[int]*ExerciseHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "historyAggregator.history")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	history = make(map[int]*ExerciseHistory)
	if len(exerciseIDs) == 0 {
		return history, nil
	}
	for _, exerciseID := range exerciseIDs {
		history[exerciseID] = &ExerciseHistory{ExerciseID: exerciseID}
	}

	rows, err := a.db.Query(ctx, `
		WITH ranked_sessions AS (
			SELECT
				exercise_id, record_date, session_timestamp,
				ROW_NUMBER() OVER (
					PARTITION BY exercise_id
					ORDER BY record_date DESC, session_timestamp DESC
				) AS session_rank
			FROM workout_log
			WHERE user_id = $1 AND exercise_id = ANY($2) AND record_date < $3
			GROUP BY exercise_id, record_date, session_timestamp
		)
		SELECT wl.exercise_id, wl.record_date, wl.session_timestamp, wl.reps, wl.weight
		FROM workout_log wl
		JOIN ranked_sessions rs
			ON rs.exercise_id = wl.exercise_id
			AND rs.record_date = wl.record_date
			AND rs.session_timestamp = wl.session_timestamp
		WHERE wl.user_id = $1 AND rs.session_rank <= $4
		ORDER BY wl.exercise_id, rs.session_rank, wl.set_number`,
		userID, exerciseIDs, cutoff, historySessionsPerExercise,
	)
	if err != nil {
		return nil, fmt.Errorf("get exercise history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var exerciseID, reps int
		var recordDate time.Time
		var sessionTimestamp string
		var weight float64
		if err := rows.Scan(&exerciseID, &recordDate, &sessionTimestamp, &reps, &weight); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		exerciseHistory := history[exerciseID]
		var current *HistorySession
		if n := len(exerciseHistory.Sessions); n > 0 &&
			exerciseHistory.Sessions[n-1].SessionTimestamp == sessionTimestamp {
			current = &exerciseHistory.Sessions[n-1]
		} else {
			exerciseHistory.Sessions = append(exerciseHistory.Sessions, HistorySession{
				RecordDate:       recordDate,
				SessionTimestamp: sessionTimestamp,
			})
			current = &exerciseHistory.Sessions[len(exerciseHistory.Sessions)-1]
		}
		current.Sets = append(current.Sets, FormatSet(weight, reps))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := a.attachLastComments(ctx, userID, exerciseIDs, cutoff, history); err != nil {
		return nil, err
	}
	return history, nil
}

func (a *HistoryAggregator) attachLastComments(
	ctx context.Context,
	userID int,
	exerciseIDs []int,
	cutoff time.Time,
	history map[int]*ExerciseHistory,
) error {
	rows, err := a.db.Query(ctx, `
		SELECT DISTINCT ON (c.exercise_id) c.exercise_id, c.comment
		FROM workout_session_comments c
		JOIN workout_sessions s
			ON s.user_id = c.user_id
			AND s.session_timestamp = c.session_timestamp
		WHERE c.user_id = $1 AND c.exercise_id = ANY($2) AND s.record_date < $3
		ORDER BY c.exercise_id, s.record_date DESC, s.session_timestamp DESC`,
		userID, exerciseIDs, cutoff,
	)
	if err != nil {
		return fmt.Errorf("get last comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var exerciseID int
		var comment string
		if err := rows.Scan(&exerciseID, &comment); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		if exerciseHistory, ok := history[exerciseID]; ok {
			exerciseHistory.LastComment = comment
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

// FormatSet renders one set the way the history view shows it, with
// the weight printed without trailing zeros.
func FormatSet(weight float64, reps int) string {
	return strconv.FormatFloat(weight, 'f', -1, 64) + "kg x " + strconv.Itoa(reps)
}
