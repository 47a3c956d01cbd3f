package cardio

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, userID int, entry Entry) (id int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cardioRepo.add")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if err = r.db.QueryRow(ctx, `
		INSERT INTO cardio_log (user_id, record_date, distance_km, duration_minutes, avg_heart_rate, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		userID, entry.RecordDate,
		entry.DistanceKm, entry.DurationMinutes, entry.AvgHeartRate, entry.Notes,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("add cardio entry: %w", err)
	}
	return id, nil
}

func (r *Repo) Update(ctx context.Context, userID int, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cardioRepo.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		UPDATE cardio_log
		SET record_date = $3, distance_km = $4, duration_minutes = $5, avg_heart_rate = $6, notes = $7
		WHERE id = $1 AND user_id = $2`,
		entry.ID, userID, entry.RecordDate,
		entry.DistanceKm, entry.DurationMinutes, entry.AvgHeartRate, entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("update cardio entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Range(ctx context.Context, userID int, from, to time.Time) (entries []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cardioRepo.range")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT id, record_date, distance_km, duration_minutes, avg_heart_rate, notes
		FROM cardio_log
		WHERE user_id = $1 AND record_date BETWEEN $2 AND $3
		ORDER BY record_date DESC, id DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("get cardio entries: %w", err)
	}
	defer rows.Close()

	entries = []Entry{}
	for rows.Next() {
		var e Entry
		if err = rows.Scan(
			&e.ID, &e.RecordDate, &e.DistanceKm, &e.DurationMinutes, &e.AvgHeartRate, &e.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan cardio entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read cardio entries: %w", err)
	}
	return entries, nil
}

func (r *Repo) Delete(ctx context.Context, userID, entryID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cardioRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM cardio_log
		WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete cardio entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
