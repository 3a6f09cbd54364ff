package gateway

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

type EndpointMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64

	mu             sync.RWMutex
	latencyHistory []int64
	maxHistorySize int
}

func NewEndpointMetrics() *EndpointMetrics {
	return &EndpointMetrics{
		latencyHistory: make([]int64, 0, 100),
		maxHistorySize: 100,
	}
}

func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencyHistory) >= m.maxHistorySize {
		m.latencyHistory = m.latencyHistory[1:]
	}
	m.latencyHistory = append(m.latencyHistory, latencyMs)
	m.mu.Unlock()
}

func (m *EndpointMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

// AvgLatencyMs averages over successful requests only.
func (m *EndpointMetrics) AvgLatencyMs() int64 {
	ok := m.SuccessfulReqs.Load()
	if ok == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / ok
}

func (m *EndpointMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *EndpointMetrics) P95LatencyMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.latencyHistory) == 0 {
		return 0
	}

	sorted := make([]int64, len(m.latencyHistory))
	copy(sorted, m.latencyHistory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type EndpointState int32

const (
	StateHealthy EndpointState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

func (s EndpointState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Endpoint is one webhook receiver.
type Endpoint struct {
	name      string
	url       string
	healthURL string
	client    *fasthttp.Client
	metrics   *EndpointMetrics

	state            atomic.Int32
	weight           atomic.Int32
	lastHealthCheck  atomic.Int64
	circuitOpenUntil atomic.Int64 // unix nanos
}

func NewEndpoint(name, url, healthURL string, weight int, client *fasthttp.Client) *Endpoint {
	e := &Endpoint{
		name:      name,
		url:       url,
		healthURL: healthURL,
		client:    client,
		metrics:   NewEndpointMetrics(),
	}
	e.state.Store(int32(StateHealthy))
	e.weight.Store(int32(weight))
	return e
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) State() EndpointState {
	return EndpointState(e.state.Load())
}

func (e *Endpoint) SetState(s EndpointState) {
	e.state.Store(int32(s))
}

// IsAvailable half-opens an expired circuit by moving it to degraded.
func (e *Endpoint) IsAvailable() bool {
	switch e.State() {
	case StateCircuitOpen:
		if time.Now().UnixNano() > e.circuitOpenUntil.Load() {
			e.SetState(StateDegraded)
			return true
		}
		return false
	case StateUnhealthy:
		return false
	}
	return true
}

func (e *Endpoint) openCircuit(d time.Duration) {
	e.circuitOpenUntil.Store(time.Now().Add(d).UnixNano())
	e.SetState(StateCircuitOpen)
}

// Score ranks endpoints; higher is better and zero means unusable.
func (e *Endpoint) Score() float64 {
	if !e.IsAvailable() {
		return 0
	}

	successScore := e.metrics.SuccessRate() * 100

	latencyScore := 100.0
	if avg := e.metrics.AvgLatencyMs(); avg > 0 {
		latencyScore = 100.0 * (1.0 - float64(avg)/5000.0)
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	recent := 1.0 - float64(e.metrics.ConsecutiveFails.Load())*0.1
	if recent < 0.1 {
		recent = 0.1
	}

	state := 1.0
	if e.State() == StateDegraded {
		state = 0.5
	}

	return (successScore*0.4 + latencyScore*0.4 + float64(e.weight.Load())*0.2) * recent * state
}

type EndpointStats struct {
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	State            string  `json:"state"`
	Score            float64 `json:"score"`
	TotalRequests    int64   `json:"total_requests"`
	FailedReqs       int64   `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	P95LatencyMs     int64   `json:"p95_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

func (e *Endpoint) Stats() EndpointStats {
	return EndpointStats{
		Name:             e.name,
		URL:              e.url,
		State:            e.State().String(),
		Score:            e.Score(),
		TotalRequests:    e.metrics.TotalRequests.Load(),
		FailedReqs:       e.metrics.FailedReqs.Load(),
		SuccessRate:      e.metrics.SuccessRate(),
		AvgLatencyMs:     e.metrics.AvgLatencyMs(),
		P95LatencyMs:     e.metrics.P95LatencyMs(),
		ConsecutiveFails: e.metrics.ConsecutiveFails.Load(),
	}
}
