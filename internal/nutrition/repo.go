package nutrition

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
	ctx, span := tracing.GlobalTracer.Start(ctx, "nutritionRepo.add")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if err = r.db.QueryRow(ctx, `
		INSERT INTO diet_log (user_id, food_id, log_date, weight, protein, carbs, fat, calories)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		userID, entry.FoodID, entry.LogDate, entry.Weight,
		entry.Protein, entry.Carbs, entry.Fat, entry.Calories,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert diet log entry: %w", err)
	}
	return id, nil
}

// Day returns the entries of one day with totals, joined with the
// current food names for display.
func (r *Repo) Day(ctx context.Context, userID int, logDate time.Time) (dayLog *DayLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "nutritionRepo.day")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT dl.id, dl.food_id, f.name, dl.log_date, dl.weight,
			dl.protein, dl.carbs, dl.fat, dl.calories
		FROM diet_log dl
		JOIN foods f ON f.id = dl.food_id
		WHERE dl.user_id = $1 AND dl.log_date = $2
		ORDER BY dl.id`,
		userID, logDate,
	)
	if err != nil {
		return nil, fmt.Errorf("get diet log: %w", err)
	}
	defer rows.Close()

	dayLog = &DayLog{Entries: []Entry{}}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID, &entry.FoodID, &entry.FoodName, &entry.LogDate, &entry.Weight,
			&entry.Protein, &entry.Carbs, &entry.Fat, &entry.Calories,
		); err != nil {
			return nil, fmt.Errorf("scan diet log entry: %w", err)
		}
		dayLog.Entries = append(dayLog.Entries, entry)
		dayLog.Protein += entry.Protein
		dayLog.Carbs += entry.Carbs
		dayLog.Fat += entry.Fat
		dayLog.Calories += entry.Calories
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return dayLog, nil
}

func (r *Repo) Delete(ctx context.Context, userID, entryID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "nutritionRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM diet_log
		WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete diet log entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
