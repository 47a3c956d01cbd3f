package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Add(ctx context.Context, username, passwordHash string) (user *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.add")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var id int
	if err = r.db.QueryRow(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id`,
		username, passwordHash,
	).Scan(&id); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int) (user *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.getByID")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return r.scanOne(r.db.QueryRow(ctx,
		userColumns+` FROM users WHERE id = $1`, id,
	))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (user *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.getByUsername")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return r.scanOne(r.db.QueryRow(ctx,
		userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username,
	))
}

// GetAccount implements the login handler's account lookup.
func (r *Repo) GetAccount(ctx context.Context, username string) (*auth.Account, error) {
	user, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return &auth.Account{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		IsSuperuser:  user.IsSuperuser,
	}, nil
}

func (r *Repo) All(ctx context.Context) (allUsers []User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.all")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := r.db.Query(ctx, userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
			&user.LastLoginAt, &user.LastActiveAt, &user.IsAdmin, &user.IsSuperuser,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		allUsers = append(allUsers, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return allUsers, nil
}

func (r *Repo) UpdatePassword(ctx context.Context, userID int, passwordHash string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.updatePassword")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) TouchLastActive(ctx context.Context, userID int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET last_active_at = now() WHERE id = $1`, userID,
	)
	return err
}

// Delete removes the user row. All the user's data rows go with it
// through the foreign key cascades.
func (r *Repo) Delete(ctx context.Context, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.delete")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const userColumns = `
	SELECT
		id, username, password_hash, created_at,
		last_login_at, last_active_at, is_admin, is_superuser`

func (r *Repo) scanOne(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
		&user.LastLoginAt, &user.LastActiveAt, &user.IsAdmin, &user.IsSuperuser,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
