package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/pkg"
)

var ErrSessionNotFound = errors.New("session not found")

// Service keeps login sessions in redis, keyed by a random token.
// A user can hold multiple live sessions (one per device / browser).
type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewService(redisClient *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

// Login creates a new session for the given user and returns its token.
func (s *Service) Login(ctx context.Context, userID int, username string, isAdmin, isSuperuser bool) (string, error) {
	token, err := pkg.GenerateRandomString(35)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	session := Session{
		Token:       token,
		UserID:      userID,
		Username:    username,
		IsAdmin:     isAdmin,
		IsSuperuser: isSuperuser,
		CreatedAt:   time.Now(),
	}
	sessionJson, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := s.redisClient.Set(ctx, sessionKeyPrefix+token, sessionJson, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := s.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		log.Errorf("add session token to set: %s", err)
	}

	return token, nil
}

// Logout removes the session for the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	removed, err := s.redisClient.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		log.Errorf("remove session token from set: %s", err)
	}
	return nil
}

// GetSession returns the session stored for the given token, or
// ErrSessionNotFound when the token is unknown or expired.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	sessionJson, err := s.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(sessionJson), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// ScanAndClean drops tokens from the tracking set whose session keys
// have already expired. Run periodically from the server loop.
func (s *Service) ScanAndClean(ctx context.Context) {
	tokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("session scan: get tokens: %s", err)
		return
	}

	var cleaned int
	for _, token := range tokens {
		exists, err := s.redisClient.Exists(ctx, sessionKeyPrefix+token).Result()
		if err != nil {
			log.Errorf("session scan: check token: %s", err)
			continue
		}
		if exists == 0 {
			if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
				log.Errorf("session scan: remove stale token: %s", err)
				continue
			}
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Debugf("session scan: removed %d stale tokens", cleaned)
	}
}
