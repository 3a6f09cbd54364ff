package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/redis"
)

var ErrStopped = errors.New("queue stopped")

type Message struct {
	ID          string
	Data        []byte
	Metadata    map[string]string
	PublishedAt time.Time
	// Attempts counts deliveries, including the current one.
	Attempts int64
}

// Handler processes one message. A nil return acks it; an error leaves it
// pending so it is claimed again once the visibility timeout passes.
type Handler func(ctx context.Context, msg *Message) error

type Config struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Queue is an at-least-once work queue on a redis stream consumed through a
// consumer group.
type Queue struct {
	adapter redis.RedisAdapter
	config  Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool

	processed atomic.Int64
	failed    atomic.Int64
	dead      atomic.Int64
}

type Stats struct {
	TotalMessages   int64 `json:"total_messages"`
	PendingMessages int64 `json:"pending_messages"`
	ConsumerCount   int64 `json:"consumer_count"`
	ProcessedCount  int64 `json:"processed_count"`
	FailedCount     int64 `json:"failed_count"`
	DeadCount       int64 `json:"dead_count"`
}

func NewQueue(ctx context.Context, adapter redis.RedisAdapter, config Config) (*Queue, error) {
	if config.Name == "" {
		return nil, errors.New("queue name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "default-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = "consumer-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}

	err := adapter.XGroupCreateMkStream(ctx, config.Name, config.ConsumerGroup, "0")
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, errors.Wrapf(err, "create consumer group %s", config.ConsumerGroup)
	}

	return &Queue{adapter: adapter, config: config}, nil
}

func (q *Queue) Name() string { return q.config.Name }

func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"data":         string(data),
		"published_at": time.Now().UTC().UnixNano(),
	}
	for k, v := range metadata {
		values["meta_"+k] = v
	}

	id, err := q.adapter.XAdd(ctx, q.config.Name, values)
	if err != nil {
		return "", errors.Wrap(err, "publish message")
	}
	if q.config.MaxLen > 0 {
		if err := q.adapter.XTrimApprox(ctx, q.config.Name, q.config.MaxLen); err != nil {
			logger.Warn("failed to trim queue", "queue", q.config.Name, "error", err)
		}
	}
	return id, nil
}

func (q *Queue) PublishJSON(ctx context.Context, v interface{}, metadata map[string]string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "marshal message")
	}
	return q.Publish(ctx, data, metadata)
}

// Consume polls the stream in the background until Stop is called or ctx
// is cancelled.
func (q *Queue) Consume(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("message handler is required")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}
	if q.cancel != nil {
		return errors.New("queue is already consuming")
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.Poll(ctx, handler)
			}
		}
	}()
	return nil
}

// Poll reads new messages and reclaims stuck ones once, handing each to
// handler. It returns how many messages were handled successfully.
func (q *Queue) Poll(ctx context.Context, handler Handler) int {
	handled := 0
	messages, err := q.adapter.XReadGroup(ctx, q.config.ConsumerGroup, q.config.ConsumerName, q.config.Name, ">", q.config.BatchSize)
	if err != nil && !errors.Is(err, redis.NilError) {
		logger.Error("failed to read queue", "queue", q.config.Name, "error", err)
	}
	for _, sm := range messages {
		msg := decode(sm)
		msg.Attempts = 1
		if q.handle(ctx, handler, msg) {
			handled++
		}
	}
	return handled + q.reclaim(ctx, handler)
}

func (q *Queue) reclaim(ctx context.Context, handler Handler) int {
	pending, err := q.adapter.XPendingExt(ctx, q.config.Name, q.config.ConsumerGroup, "-", "+", q.config.BatchSize)
	if err != nil || len(pending) == 0 {
		return 0
	}

	deliveries := make(map[string]int64, len(pending))
	var ids []string
	for _, p := range pending {
		if p.Idle >= q.config.VisibilityTimeout {
			ids = append(ids, p.ID)
			deliveries[p.ID] = p.RetryCount
		}
	}
	if len(ids) == 0 {
		return 0
	}

	claimed, err := q.adapter.XClaim(ctx, q.config.Name, q.config.ConsumerGroup, q.config.ConsumerName, q.config.VisibilityTimeout, ids...)
	if err != nil {
		logger.Error("failed to claim stuck messages", "queue", q.config.Name, "error", err)
		return 0
	}

	handled := 0
	for _, sm := range claimed {
		msg := decode(sm)
		// XCLAIM itself counts as a delivery.
		msg.Attempts = deliveries[sm.ID] + 1
		if int(msg.Attempts) > q.config.MaxRetries {
			q.bury(ctx, msg)
			continue
		}
		if q.handle(ctx, handler, msg) {
			handled++
		}
	}
	return handled
}

func (q *Queue) handle(ctx context.Context, handler Handler, msg *Message) bool {
	hctx, cancel := context.WithTimeout(ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := handler(hctx, msg); err != nil {
		q.failed.Add(1)
		logger.Warn("message handling failed", "queue", q.config.Name, "message_id", msg.ID, "attempts", msg.Attempts, "error", err)
		return false
	}
	if err := q.adapter.XAck(ctx, q.config.Name, q.config.ConsumerGroup, msg.ID); err != nil {
		logger.Error("failed to ack message", "queue", q.config.Name, "message_id", msg.ID, "error", err)
		return false
	}
	q.processed.Add(1)
	return true
}

// bury moves a message that ran out of retries to the dead-letter stream, if
// enabled, and acks it.
func (q *Queue) bury(ctx context.Context, msg *Message) {
	if q.config.EnableDLQ {
		values := map[string]interface{}{
			"data":           string(msg.Data),
			"original_id":    msg.ID,
			"original_queue": q.config.Name,
			"attempts":       msg.Attempts,
			"failed_at":      time.Now().UTC().Unix(),
		}
		for k, v := range msg.Metadata {
			values["meta_"+k] = v
		}
		if _, err := q.adapter.XAdd(ctx, q.DeadLetterName(), values); err != nil {
			logger.Error("failed to dead-letter message", "queue", q.config.Name, "message_id", msg.ID, "error", err)
			return
		}
	}
	if err := q.adapter.XAck(ctx, q.config.Name, q.config.ConsumerGroup, msg.ID); err != nil {
		logger.Error("failed to ack dead message", "queue", q.config.Name, "message_id", msg.ID, "error", err)
		return
	}
	q.dead.Add(1)
	logger.Warn("message gave up after retries", "queue", q.config.Name, "message_id", msg.ID, "attempts", msg.Attempts)
}

func (q *Queue) DeadLetterName() string {
	return q.config.Name + ":dlq"
}

func decode(sm redis.StreamMessage) *Message {
	msg := &Message{ID: sm.ID, Metadata: make(map[string]string)}
	for k, v := range sm.Values {
		s, _ := v.(string)
		switch {
		case k == "data":
			msg.Data = []byte(s)
		case k == "published_at":
			if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
				msg.PublishedAt = time.Unix(0, ns).UTC()
			}
		case strings.HasPrefix(k, "meta_"):
			msg.Metadata[strings.TrimPrefix(k, "meta_")] = s
		}
	}
	return msg
}

// Stop cancels consumption and waits up to timeout for the poll loop to
// finish its current batch.
func (q *Queue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	q.stopped = true
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("timeout waiting for queue to stop")
	}
}

func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	total, err := q.adapter.XLen(ctx, q.config.Name)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		TotalMessages:  total,
		ProcessedCount: q.processed.Load(),
		FailedCount:    q.failed.Load(),
		DeadCount:      q.dead.Load(),
	}
	if pending, err := q.adapter.XPending(ctx, q.config.Name, q.config.ConsumerGroup); err == nil && pending != nil {
		stats.PendingMessages = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}
	return stats, nil
}
