package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// RedisStore keeps the session under two keys, <namespace>:token and
// <namespace>:user. Both keys expire with the token when it carries exp.
type RedisStore struct {
	client   redis.UniversalClient
	tokenKey string
	userKey  string
	now      func() time.Time
}

// NewRedisStore builds a store on an existing client.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{
		client:   client,
		tokenKey: namespace + ":token",
		userKey:  namespace + ":user",
		now:      time.Now,
	}
}

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	vals, err := r.client.MGet(ctx, r.tokenKey, r.userKey).Result()
	if err != nil {
		return Session{}, fmt.Errorf("redis load session: %w", err)
	}

	token, _ := vals[0].(string)
	if token == "" {
		return Session{}, nil
	}

	out := Session{Token: token}
	if raw, ok := vals[1].(string); ok && raw != "" {
		var user domain.User
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			out.User = &user
		}
	}
	return out, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if err := validate(s); err != nil {
		return err
	}

	var userJSON []byte
	if s.User != nil {
		data, err := json.Marshal(s.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		userJSON = data
	}

	ttl := r.ttlFor(s.Token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey, s.Token, ttl)
		if userJSON != nil {
			pipe.Set(ctx, r.userKey, userJSON, ttl)
		} else {
			pipe.Del(ctx, r.userKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.tokenKey, r.userKey).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

// ttlFor returns 0 (no expiry) when the token has no usable exp.
func (r *RedisStore) ttlFor(token string) time.Duration {
	claims, err := DecodeClaims(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return 0
	}
	ttl := claims.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return 0
	}
	return ttl
}
