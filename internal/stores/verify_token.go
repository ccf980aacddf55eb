package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrVerifyTokenNotFound    = errors.New("verify token not found")
	ErrVerifyTokenCorrupt     = errors.New("verify token record corrupt")
	ErrVerifyRedisUnavailable = errors.New("verify token redis unavailable")
)

// consumeVerifyTokenLua atomically performs GET→DEL on a verify token record.
// KEYS[1] = record key
//
// Returns the record bytes when the key existed and was deleted by this
// call, nil otherwise. Concurrent callers can therefore never both receive
// the record.
var consumeVerifyTokenLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return false
end
redis.call('DEL', KEYS[1])
return data
`)

// VerifyTokenRecord is the JSON value stored under "<prefix>:<token>".
type VerifyTokenRecord struct {
	UserID string `json:"userId"`
}

type VerifyTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewVerifyTokenStore(redisClient redis.UniversalClient, prefix string) *VerifyTokenStore {
	if prefix == "" {
		prefix = "verifyToken"
	}
	return &VerifyTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *VerifyTokenStore) key(token string) string {
	return s.prefix + ":" + token
}

func (s *VerifyTokenStore) Save(ctx context.Context, token string, record VerifyTokenRecord, ttl time.Duration) error {
	if record.UserID == "" {
		return errors.New("verify token record requires a user id")
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(token), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyRedisUnavailable, err)
	}

	return nil
}

// Consume returns the record and deletes it in one step. A second call for
// the same token returns ErrVerifyTokenNotFound.
func (s *VerifyTokenStore) Consume(ctx context.Context, token string) (*VerifyTokenRecord, error) {
	result, err := consumeVerifyTokenLua.Run(ctx, s.redis, []string{s.key(token)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrVerifyTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrVerifyRedisUnavailable, err)
	}

	return decodeVerifyTokenRecord([]byte(result))
}

// Peek returns the record without consuming it or touching its TTL.
func (s *VerifyTokenStore) Peek(ctx context.Context, token string) (*VerifyTokenRecord, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrVerifyTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrVerifyRedisUnavailable, err)
	}

	return decodeVerifyTokenRecord(data)
}

func decodeVerifyTokenRecord(data []byte) (*VerifyTokenRecord, error) {
	var record VerifyTokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyTokenCorrupt, err)
	}
	if record.UserID == "" {
		return nil, ErrVerifyTokenCorrupt
	}
	return &record, nil
}
