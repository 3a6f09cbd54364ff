package repository

import (
	"context"
	"time"

	"github.com/nimasrn/dues-ledger/pkg/redis"
)

const phraseKeyPrefix = "reset:phrase:"

// PhraseStore keeps issued factory-reset phrases in redis. A phrase lives
// until its TTL runs out or it is consumed, whichever comes first.
type PhraseStore struct {
	redis redis.RedisAdapter
}

func NewPhraseStore(r redis.RedisAdapter) *PhraseStore {
	return &PhraseStore{redis: r}
}

// Issue stores phrase unless it is already outstanding.
func (s *PhraseStore) Issue(ctx context.Context, phrase string, ttl time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, phraseKeyPrefix+phrase, []byte("1"), ttl)
}

// Consume deletes phrase and reports whether it was outstanding. Only one of
// several concurrent callers sees true.
func (s *PhraseStore) Consume(ctx context.Context, phrase string) (bool, error) {
	n, err := s.redis.Del(ctx, phraseKeyPrefix+phrase)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
