package measurements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Upsert writes the day's measurement. Fields left nil keep whatever
// value the row already has, so a weight-only update does not wipe the
// waist measurement taken earlier that day.
func (r *Repo) Upsert(ctx context.Context, userID int, measurement Measurement) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "measurementsRepo.upsert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if _, err = r.db.Exec(ctx, `
		INSERT INTO daily_measurements (user_id, record_date, weight, body_fat, waist, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, record_date) DO UPDATE SET
			weight = COALESCE(EXCLUDED.weight, daily_measurements.weight),
			body_fat = COALESCE(EXCLUDED.body_fat, daily_measurements.body_fat),
			waist = COALESCE(EXCLUDED.waist, daily_measurements.waist),
			notes = COALESCE(EXCLUDED.notes, daily_measurements.notes)`,
		userID, measurement.RecordDate,
		measurement.Weight, measurement.BodyFat, measurement.Waist, measurement.Notes,
	); err != nil {
		return fmt.Errorf("upsert measurement: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID int, recordDate time.Time) (measurement *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "measurementsRepo.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var m Measurement
	if err = r.db.QueryRow(ctx, `
		SELECT record_date, weight, body_fat, waist, notes
		FROM daily_measurements
		WHERE user_id = $1 AND record_date = $2`,
		userID, recordDate,
	).Scan(&m.RecordDate, &m.Weight, &m.BodyFat, &m.Waist, &m.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get measurement: %w", err)
	}
	return &m, nil
}

func (r *Repo) Range(ctx context.Context, userID int, from, to time.Time) (measurements []Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "measurementsRepo.range")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT record_date, weight, body_fat, waist, notes
		FROM daily_measurements
		WHERE user_id = $1 AND record_date BETWEEN $2 AND $3
		ORDER BY record_date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("get measurements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.RecordDate, &m.Weight, &m.BodyFat, &m.Waist, &m.Notes); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return measurements, nil
}

// LatestWeight returns the most recent positive weight across all of
// the user's measurements. The bool reports whether one was found.
func (r *Repo) LatestWeight(ctx context.Context, userID int) (weight float64, found bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "measurementsRepo.latestWeight")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if err = r.db.QueryRow(ctx, `
		SELECT weight FROM daily_measurements
		WHERE user_id = $1 AND weight > 0
		ORDER BY record_date DESC
		LIMIT 1`,
		userID,
	).Scan(&weight); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get latest weight: %w", err)
	}
	return weight, true, nil
}

func (r *Repo) Delete(ctx context.Context, userID int, recordDate time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "measurementsRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM daily_measurements
		WHERE user_id = $1 AND record_date = $2`,
		userID, recordDate,
	)
	if err != nil {
		return fmt.Errorf("delete measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
