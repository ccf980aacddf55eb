package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis failure other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionIDCollision is returned by Save when the id is already in use.
var ErrSessionIDCollision = errors.New("session id collision")

// Store is a Redis-backed session store that handles persistence,
// expiration and sliding window renewal.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; sliding controls whether Get
// extends the TTL.
func NewStore(redis redis.UniversalClient, prefix string, sliding bool) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{
		redis:   redis,
		prefix:  prefix,
		sliding: sliding,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save persists a [Session] with the given TTL. An existing record under the
// same id is never overwritten.
//
//	Performance: 1 Redis SET NX.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(sess.SessionID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrSessionIDCollision
	}

	return nil
}

// Get retrieves a session and, when sliding expiration is enabled, resets
// its TTL to ttl. A missing record is reported as redis.Nil.
//
//	Performance: 1 Redis GET + 1 EXPIRE.
func (s *Store) Get(ctx context.Context, sessionID string, ttl time.Duration) (*Session, error) {
	sess, err := s.GetReadOnly(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.sliding {
		ok, err := s.redis.Expire(ctx, s.key(sessionID), ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if !ok {
			// expired between GET and EXPIRE
			return nil, redis.Nil
		}
	}

	return sess, nil
}

// GetReadOnly fetches a session without mutating TTL or any Redis state.
func (s *Store) GetReadOnly(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	return sess, nil
}

// Delete removes a session. It reports whether a record existed; deleting
// an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Ping measures a Redis round-trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
