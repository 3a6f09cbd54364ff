package processor

import (
	"sync/atomic"
	"time"
)

// ServiceMetrics counts what the processor did since start (or the last
// Reset). It mirrors the prometheus counters for log-based reporting.
type ServiceMetrics struct {
	delivered  atomic.Int64
	failed     atomic.Int64
	purged     atomic.Int64
	durationNs atomic.Int64
	sinceNs    atomic.Int64
}

type MetricsSnapshot struct {
	Delivered     int64         `json:"delivered"`
	Failed        int64         `json:"failed"`
	Purged        int64         `json:"purged"`
	RatePerSecond float64       `json:"rate_per_second"`
	AvgDuration   time.Duration `json:"avg_duration"`
	Uptime        time.Duration `json:"uptime"`
}

func NewServiceMetrics() *ServiceMetrics {
	m := &ServiceMetrics{}
	m.sinceNs.Store(time.Now().UnixNano())
	return m
}

func (m *ServiceMetrics) RecordSuccess(d time.Duration) {
	m.delivered.Add(1)
	m.durationNs.Add(int64(d))
}

func (m *ServiceMetrics) RecordFailure() { m.failed.Add(1) }

func (m *ServiceMetrics) RecordPurged(n int) { m.purged.Add(int64(n)) }

func (m *ServiceMetrics) Snapshot() MetricsSnapshot {
	delivered := m.delivered.Load()
	uptime := time.Since(time.Unix(0, m.sinceNs.Load()))

	s := MetricsSnapshot{
		Delivered: delivered,
		Failed:    m.failed.Load(),
		Purged:    m.purged.Load(),
		Uptime:    uptime,
	}
	if secs := uptime.Seconds(); secs > 0 {
		s.RatePerSecond = float64(delivered) / secs
	}
	if delivered > 0 {
		s.AvgDuration = time.Duration(m.durationNs.Load() / delivered)
	}
	return s
}

func (m *ServiceMetrics) Reset() {
	m.delivered.Store(0)
	m.failed.Store(0)
	m.purged.Store(0)
	m.durationNs.Store(0)
	m.sinceNs.Store(time.Now().UnixNano())
}
