package auth

import (
	"context"
)

type sessionGetter interface {
	GetSession(ctx context.Context, token string) (*Session, error)
}

// LoginChecker answers "is this token a live session" for the
// authentication middleware.
type LoginChecker struct {
	sessions sessionGetter
}

func NewLoginChecker(sessions sessionGetter) *LoginChecker {
	return &LoginChecker{sessions: sessions}
}

func (c *LoginChecker) IsLogged(ctx context.Context, token string) (bool, error) {
	session, err := c.sessions.GetSession(ctx, token)
	if err != nil {
		if err == ErrSessionNotFound {
			return false, nil
		}
		return false, err
	}
	return session != nil, nil
}

func (c *LoginChecker) GetSession(ctx context.Context, token string) (*Session, error) {
	return c.sessions.GetSession(ctx, token)
}
