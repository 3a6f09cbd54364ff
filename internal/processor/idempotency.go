package processor

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("message already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL            time.Duration
	ProcessedTTL       time.Duration
	MaxRetries         int
	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "retry:",
		LockKeyPrefix:      "lock:",
		ProcessedKeyPrefix: "processed:",
	}
}

// IdempotencyService makes delivery effectively once per notification id on
// top of an at-least-once queue.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(adapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{redis: adapter, config: config}
}

type ProcessingContext struct {
	ID           string
	RetryCount   int
	lockAcquired bool
}

func (pc *ProcessingContext) IsRetry() bool { return pc.RetryCount > 0 }

// Acquire checks the processed marker and retry budget, then takes a short
// lock so only one consumer works on id at a time.
func (s *IdempotencyService) Acquire(ctx context.Context, id string) (*ProcessingContext, error) {
	exists, err := s.redis.Exist(ctx, s.config.ProcessedKeyPrefix+id)
	if err != nil {
		logger.Warn("failed to check processed marker", "id", id, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyProcessed
	}

	retries, err := s.RetryCount(ctx, id)
	if err != nil {
		logger.Warn("failed to read retry counter", "id", id, "error", err)
	}
	if retries >= s.config.MaxRetries {
		return nil, errors.Wrapf(ErrMaxRetriesExceeded, "id=%s retries=%d", id, retries)
	}

	value := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := s.redis.SetNX(ctx, s.config.LockKeyPrefix+id, value, s.config.LockTTL)
	if err != nil {
		return nil, errors.Wrap(ErrLockAcquireFailed, err.Error())
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}
	return &ProcessingContext{ID: id, RetryCount: retries, lockAcquired: true}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	if err := s.redis.Set(ctx, s.config.ProcessedKeyPrefix+pc.ID, []byte("1"), s.config.ProcessedTTL); err != nil {
		return errors.Wrap(err, "set processed marker")
	}
	if _, err := s.redis.Del(ctx, s.config.LockKeyPrefix+pc.ID, s.config.RetryKeyPrefix+pc.ID); err != nil {
		logger.Warn("failed to clean up idempotency keys", "id", pc.ID, "error", err)
	}
	pc.lockAcquired = false
	return nil
}

// MarkFailure bumps the retry counter and frees the lock for the next
// attempt.
func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	next := pc.RetryCount + 1
	err := s.redis.Set(ctx, s.config.RetryKeyPrefix+pc.ID, []byte(strconv.Itoa(next)), s.config.ProcessedTTL)
	if err != nil {
		logger.Error("failed to bump retry counter", "id", pc.ID, "error", err)
	}
	if relErr := s.Release(ctx, pc); relErr != nil && err == nil {
		err = relErr
	}
	logger.Warn("delivery failed, will retry", "id", pc.ID, "retry_count", next, "max_retries", s.config.MaxRetries, "reason", reason)
	return err
}

func (s *IdempotencyService) Release(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}
	if _, err := s.redis.Del(ctx, s.config.LockKeyPrefix+pc.ID); err != nil {
		return errors.Wrap(err, "release lock")
	}
	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) RetryCount(ctx context.Context, id string) (int, error) {
	raw, err := s.redis.Get(ctx, s.config.RetryKeyPrefix+id)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, errors.Wrap(err, "parse retry counter")
	}
	return n, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exist(ctx, s.config.ProcessedKeyPrefix+id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
