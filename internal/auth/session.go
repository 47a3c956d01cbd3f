package auth

import "time"

const (
	DefaultTTL       = 24 * 30 * time.Hour
	sessionKeyPrefix = "fitlog-session||"
	tokensSetKey     = "fitlog-sessions"
)

// Session is the redis-persisted login session for one user.
type Session struct {
	Token       string    `json:"token"`
	UserID      int       `json:"userId"`
	Username    string    `json:"username"`
	IsAdmin     bool      `json:"isAdmin"`
	IsSuperuser bool      `json:"isSuperuser"`
	CreatedAt   time.Time `json:"createdAt"`
}
