package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

type throttleDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FailureOutcome describes the account state after a failed login attempt.
type FailureOutcome struct {
	Locked       bool
	LockedUntil  time.Time
	AttemptsLeft int
}

// Throttle tracks failed login attempts per account and locks the
// account once the limit is reached. The lock_until column is the only
// authority on whether an account is locked; expired locks are simply
// ignored rather than eagerly cleared.
type Throttle struct {
	db          throttleDB
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

func NewThrottle(db throttleDB, maxAttempts int, lockout time.Duration) *Throttle {
	return &Throttle{
		db:          db,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         time.Now,
	}
}

// Status reports whether the account is currently locked and until when.
func (t *Throttle) Status(ctx context.Context, userID int) (locked bool, until time.Time, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "throttle.status")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var lockUntil *time.Time
	if err = t.db.QueryRow(ctx,
		`SELECT lock_until FROM users WHERE id = $1`, userID,
	).Scan(&lockUntil); err != nil {
		return false, time.Time{}, fmt.Errorf("get lock state: %w", err)
	}

	if lockUntil == nil || !lockUntil.After(t.now()) {
		return false, time.Time{}, nil
	}
	return true, *lockUntil, nil
}

// RegisterFailure bumps the failure counter in a single atomic update.
// Reaching the attempt limit places a lock and resets the counter, so a
// lapsed lock starts the next cycle from zero.
func (t *Throttle) RegisterFailure(ctx context.Context, userID int) (outcome FailureOutcome, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "throttle.registerFailure")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	lockUntil := t.now().Add(t.lockout)

	var attempts int
	var storedLock *time.Time
	if err = t.db.QueryRow(ctx, `
		UPDATE users SET
			failed_login_attempts = CASE
				WHEN failed_login_attempts + 1 >= $2 THEN 0
				ELSE failed_login_attempts + 1
			END,
			lock_until = CASE
				WHEN failed_login_attempts + 1 >= $2 THEN $3
				ELSE lock_until
			END
		WHERE id = $1
		RETURNING failed_login_attempts, lock_until`,
		userID, t.maxAttempts, lockUntil,
	).Scan(&attempts, &storedLock); err != nil {
		return FailureOutcome{}, fmt.Errorf("register failed attempt: %w", err)
	}

	if storedLock != nil && storedLock.After(t.now()) {
		return FailureOutcome{
			Locked:      true,
			LockedUntil: *storedLock,
		}, nil
	}

	return FailureOutcome{
		AttemptsLeft: t.maxAttempts - attempts,
	}, nil
}

// Reset clears the failure state after a successful login and stamps
// the login time.
func (t *Throttle) Reset(ctx context.Context, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "throttle.reset")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if _, err = t.db.Exec(ctx, `
		UPDATE users SET
			failed_login_attempts = 0,
			lock_until = NULL,
			last_login_at = now(),
			last_active_at = now()
		WHERE id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}
