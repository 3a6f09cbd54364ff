package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/queue"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
	"github.com/nimasrn/dues-ledger/pkg/redis"
	"github.com/nimasrn/dues-ledger/pkg/worker"
)

const (
	ProcessingTimeout = 10 * time.Second
	HealthInterval    = 30 * time.Second
	MetricsInterval   = 30 * time.Second
	ShutdownTimeout   = time.Minute

	highLagThreshold = 10_000
)

// Processor handles one queue message. A nil return acks it.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	Type() string
}

// Purger removes reset data whose recovery window has passed.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	Queue         queue.Config
	Consumers     int
	Workers       int
	SweepInterval time.Duration
}

// ProcessorService runs the notification consumers on a worker pool and the
// reset purge sweeper.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	config    Config
	processor Processor
	purger    Purger
	queues    []*queue.Queue
	metrics   *ServiceMetrics
	worker    *worker.WorkerManager
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewProcessorService(adapter redis.RedisAdapter, config Config, processor Processor, purger Purger) *ProcessorService {
	if config.Consumers <= 0 {
		config.Consumers = 1
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter:   adapter,
		config:    config,
		processor: processor,
		purger:    purger,
		metrics:   NewServiceMetrics(),
		worker:    worker.NewWorkerManager(config.Workers*4, config.Workers),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *ProcessorService) Metrics() *ServiceMetrics { return s.metrics }

func (s *ProcessorService) Start() error {
	logger.Info("starting processor service", "processor", s.processor.Type())

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		qc := s.config.Queue
		qc.ConsumerName = fmt.Sprintf("%s-%d", qc.ConsumerName, i)

		q, err := queue.NewQueue(s.ctx, s.adapter, qc)
		if err != nil {
			return errors.Wrapf(err, "create consumer %d", i)
		}
		if err := q.Consume(s.ctx, s.messageHandler); err != nil {
			return errors.Wrapf(err, "start consumer %d", i)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.every(MetricsInterval, s.reportMetrics)
	go s.every(HealthInterval, s.performHealthCheck)
	if s.purger != nil && s.config.SweepInterval > 0 {
		s.wg.Add(1)
		go s.every(s.config.SweepInterval, s.sweep)
	}

	logger.Info("processor service started", "consumers", len(s.queues), "workers", s.config.Workers)
	return nil
}

func (s *ProcessorService) every(interval time.Duration, fn func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-s.ctx.Done():
			return
		}
	}
}

// sweep purges reset requests whose recovery window has expired.
func (s *ProcessorService) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, ProcessingTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx, time.Now().UTC())
	prom.IncPurgeSweep()
	if err != nil {
		logger.Error("reset sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.metrics.RecordPurged(n)
		logger.Info("reset sweep purged requests", "count", n)
	}
}

func (s *ProcessorService) reportMetrics() {
	snap := s.metrics.Snapshot()
	logger.Info("processor metrics",
		"delivered", snap.Delivered,
		"failed", snap.Failed,
		"purged", snap.Purged,
		"rate_per_second", snap.RatePerSecond,
		"avg_duration_ms", snap.AvgDuration.Milliseconds(),
		"uptime_seconds", snap.Uptime.Seconds())

	// every consumer reads the same stream, so one set of stats covers them
	if len(s.queues) > 0 {
		if st, err := s.queues[0].Stats(s.ctx); err == nil {
			prom.SetQueueDepth("total", st.TotalMessages)
			prom.SetQueueDepth("pending", st.PendingMessages)
			prom.SetQueueDepth("dead", st.DeadCount)
			logger.Info("queue stats", "total", st.TotalMessages, "pending", st.PendingMessages, "dead", st.DeadCount)
		}
	}
	buffered := s.worker.GetUnreadCount()
	prom.SetQueueDepth("buffered", buffered)
	logger.Debug("worker backlog", "buffered", buffered)
}

func (s *ProcessorService) performHealthCheck() {
	if err := s.adapter.Ping(s.ctx); err != nil {
		logger.Error("health check failed: redis unreachable", "error", err)
		return
	}
	for i, q := range s.queues {
		st, err := q.Stats(s.ctx)
		if err != nil {
			logger.Warn("health check: queue stats unavailable", "consumer", i, "error", err)
			continue
		}
		if st.PendingMessages > highLagThreshold {
			logger.Warn("health check: queue lagging", "consumer", i, "pending", st.PendingMessages)
		}
	}
	logger.Debug("health check ok")
}

// Stop stops the consumers, drains the pool and waits for the timers.
func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service")
	s.cancel()

	var wg sync.WaitGroup
	for i, q := range s.queues {
		wg.Add(1)
		go func(i int, q *queue.Queue) {
			defer wg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping consumer", "consumer", i, "error", err)
			}
		}(i, q)
	}
	wg.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()
	logger.Info("processor service stopped")
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// messageHandler hands a message to the pool and waits for its outcome so the
// queue can ack or leave it pending.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	ctx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	j := &job{ctx: ctx, msg: msg, result: make(chan error, 1)}
	if err := s.worker.Enqueue(ctx, j); err != nil {
		return errors.Wrap(err, "enqueue message")
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for worker")
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, raw interface{}) {
	j, ok := raw.(*job)
	if !ok {
		logger.Error("invalid job type", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		logger.Warn("job expired before processing", "worker", workerIndex, "message_id", j.msg.ID)
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Error("failed to process message", "worker", workerIndex, "message_id", j.msg.ID, "attempt", j.msg.Attempts, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}
	// result is buffered, so the send never blocks
	j.result <- err
}
