package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

const DefaultSuggestLimit = 5

// Repo reads and writes one of the two catalogs. Visibility is always
// scoped to the requesting user: global rows plus the user's own rows.
type Repo struct {
	db   *pgxpool.Pool
	kind Kind
}

func NewRepo(db *pgxpool.Pool, kind Kind) *Repo {
	return &Repo{db: db, kind: kind}
}

func (r *Repo) Kind() Kind {
	return r.kind
}

func (r *Repo) selectColumns() string {
	if r.kind == KindFood {
		return `SELECT id, name, user_id, created_at, ref_weight, protein, carbs, fat FROM foods`
	}
	return `SELECT id, name, user_id, created_at FROM exercises`
}

func (r *Repo) scanItem(row pgx.Row) (*Item, error) {
	item := Item{Kind: r.kind}
	var err error
	if r.kind == KindFood {
		err = row.Scan(
			&item.ID, &item.Name, &item.OwnerID, &item.CreatedAt,
			&item.RefWeight, &item.Protein, &item.Carbs, &item.Fat,
		)
	} else {
		err = row.Scan(&item.ID, &item.Name, &item.OwnerID, &item.CreatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", r.kind, err)
	}
	return &item, nil
}

func (r *Repo) collect(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()
	var items []Item
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// Visible returns every row the user can see, globals first.
func (r *Repo) Visible(ctx context.Context, userID int) (items []Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.visible")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx,
		r.selectColumns()+`
		WHERE user_id IS NULL OR user_id = $1
		ORDER BY (user_id IS NOT NULL), name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get %s list: %w", r.kind, err)
	}
	return r.collect(rows)
}

// GetByID returns the row only if the user can see it.
func (r *Repo) GetByID(ctx context.Context, userID, id int) (item *Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.getByID")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return r.scanItem(r.db.QueryRow(ctx,
		r.selectColumns()+`
		WHERE id = $2 AND (user_id IS NULL OR user_id = $1)`,
		userID, id,
	))
}

// ExactMatch finds a visible row whose name matches case-insensitively.
// When a global and an owned row share a name, the global one wins.
func (r *Repo) ExactMatch(ctx context.Context, userID int, name string) (item *Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.exactMatch")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return r.scanItem(r.db.QueryRow(ctx,
		r.selectColumns()+`
		WHERE (user_id IS NULL OR user_id = $1)
			AND LOWER(name) = LOWER($2)
		ORDER BY (user_id IS NOT NULL)
		LIMIT 1`,
		userID, name,
	))
}

// Suggest returns visible rows containing the query substring, globals
// first, then by name.
func (r *Repo) Suggest(ctx context.Context, userID int, query string, limit int) (items []Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.suggest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	rows, err := r.db.Query(ctx,
		r.selectColumns()+`
		WHERE (user_id IS NULL OR user_id = $1)
			AND name ILIKE '%' || $2 || '%'
		ORDER BY (user_id IS NOT NULL), name ASC
		LIMIT $3`,
		userID, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("suggest %s: %w", r.kind, err)
	}
	return r.collect(rows)
}

type InsertParams struct {
	Name    string
	OwnerID *int

	RefWeight *float64
	Protein   *float64
	Carbs     *float64
	Fat       *float64
}

func (r *Repo) Insert(ctx context.Context, params InsertParams) (item *Item, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.insert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var id int
	if r.kind == KindFood {
		refWeight := params.RefWeight
		if refWeight == nil {
			defaultRef := 100.0
			refWeight = &defaultRef
		}
		err = r.db.QueryRow(ctx, `
			INSERT INTO foods (name, user_id, ref_weight, protein, carbs, fat)
			VALUES ($1, $2, $3, COALESCE($4, 0), COALESCE($5, 0), COALESCE($6, 0))
			RETURNING id`,
			params.Name, params.OwnerID, refWeight, params.Protein, params.Carbs, params.Fat,
		).Scan(&id)
	} else {
		err = r.db.QueryRow(ctx, `
			INSERT INTO exercises (name, user_id)
			VALUES ($1, $2)
			RETURNING id`,
			params.Name, params.OwnerID,
		).Scan(&id)
	}
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("insert %s: %w", r.kind, err)
	}

	ownerScope := 0
	if params.OwnerID != nil {
		ownerScope = *params.OwnerID
	}
	return r.GetByID(ctx, ownerScope, id)
}

type UpdateParams struct {
	Name string

	RefWeight *float64
	Protein   *float64
	Carbs     *float64
	Fat       *float64
}

func (r *Repo) Update(ctx context.Context, id int, params UpdateParams) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.update")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var tag pgconn.CommandTag
	if r.kind == KindFood {
		tag, err = r.db.Exec(ctx, `
			UPDATE foods SET
				name = $2,
				ref_weight = COALESCE($3, ref_weight),
				protein = COALESCE($4, protein),
				carbs = COALESCE($5, carbs),
				fat = COALESCE($6, fat)
			WHERE id = $1`,
			id, params.Name, params.RefWeight, params.Protein, params.Carbs, params.Fat,
		)
	} else {
		tag, err = r.db.Exec(ctx,
			`UPDATE exercises SET name = $2 WHERE id = $1`,
			id, params.Name,
		)
	}
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("update %s: %w", r.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalogRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.kind.table()), id,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return fmt.Errorf("%s %d is still referenced by log entries", r.kind, id)
		}
		return fmt.Errorf("delete %s: %w", r.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
