package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis with a TTL. A per-user set tracks the
// user's session ids so they can all be dropped at once.
type RedisStore struct {
	rdb    *redis.Client
	maxAge time.Duration
}

func NewRedisStore(rdb *redis.Client, maxAge time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, maxAge: maxAge}
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func sessionKey(id string) string         { return "session:" + id }
func userSessionsKey(userID int64) string { return "user_sessions:" + strconv.FormatInt(userID, 10) }

func (s *RedisStore) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	id := uuid.New().String()
	expires := time.Now().Add(s.maxAge).UTC()

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(id), userID, s.maxAge)
		p.SAdd(ctx, userSessionsKey(userID), id)
		p.Expire(ctx, userSessionsKey(userID), s.maxAge)
		return nil
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return id, expires, nil
}

// Lookup reads the session's user; the expiry comes from the key's TTL.
func (s *RedisStore) Lookup(ctx context.Context, id string) (int64, time.Time, bool, error) {
	if id == "" {
		return 0, time.Time{}, false, nil
	}
	var get *redis.StringCmd
	var ttl *redis.DurationCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, sessionKey(id))
		ttl = p.PTTL(ctx, sessionKey(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false, fmt.Errorf("lookup session: %w", err)
	}
	uid, err := get.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("lookup session: %w", err)
	}
	return uid, time.Now().Add(ttl.Val()).UTC(), true, nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	uid, _, ok, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(id))
		if ok {
			p.SRem(ctx, userSessionsKey(uid), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *RedisStore) DestroyUser(ctx context.Context, userID int64) error {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("destroy sessions of user %d: %w", userID, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("destroy sessions of user %d: %w", userID, err)
	}
	return nil
}
