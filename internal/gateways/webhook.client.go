package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
)

var ErrNoAvailableEndpoints = errors.New("no available webhook endpoints")

type DeliveryStatus string

const (
	StatusAccepted DeliveryStatus = "ACCEPTED"
	StatusRejected DeliveryStatus = "REJECTED"
)

// DeliveryResponse is what a webhook receiver answers.
type DeliveryResponse struct {
	NotificationID string         `json:"notification_id"`
	Status         DeliveryStatus `json:"status"`
	ReceivedAt     time.Time      `json:"received_at"`
	Endpoint       string         `json:"-"`
}

type EndpointConfig struct {
	Name string
	URL  string
	// HealthURL is polled by the health checker; empty skips the endpoint.
	HealthURL string
	Weight    int
}

type Config struct {
	Endpoints               []EndpointConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	// Dial overrides the network dialer, e.g. for in-memory listeners.
	Dial fasthttp.DialFunc
}

// Client delivers admin notifications to the best available webhook endpoint
// and fails over to the next on error.
type Client struct {
	config    Config
	endpoints []*Endpoint
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Endpoints) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}
	cfg := *config
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CircuitBreakerThreshold <= 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.CircuitBreakerTimeout <= 0 {
		cfg.CircuitBreakerTimeout = 30 * time.Second
	}

	c := &Client{
		config: cfg,
		stopCh: make(chan struct{}),
	}
	for _, ec := range cfg.Endpoints {
		if ec.URL == "" {
			continue
		}
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     cfg.MaxConns,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
			Dial:                cfg.Dial,
		}
		c.endpoints = append(c.endpoints, NewEndpoint(ec.Name, ec.URL, ec.HealthURL, ec.Weight, httpClient))
		logger.Info("webhook endpoint registered", "name", ec.Name, "url", ec.URL, "weight", ec.Weight)
	}
	if len(c.endpoints) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}

	if cfg.HealthCheckInterval > 0 {
		c.wg.Add(1)
		go c.healthChecker()
	}
	return c, nil
}

// SelectEndpoint returns the available endpoint with the highest score.
// Exclude skips endpoints already tried in this delivery.
func (c *Client) SelectEndpoint(exclude map[*Endpoint]bool) (*Endpoint, error) {
	var best *Endpoint
	var bestScore float64
	for _, e := range c.endpoints {
		if exclude[e] || !e.IsAvailable() {
			continue
		}
		if score := e.Score(); best == nil || score > bestScore {
			best, bestScore = e, score
		}
	}
	if best == nil {
		return nil, ErrNoAvailableEndpoints
	}
	return best, nil
}

// Deliver POSTs n to the endpoints in score order until one accepts it.
func (c *Client) Deliver(ctx context.Context, n *model.AdminNotification) (*DeliveryResponse, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, "marshal notification")
	}

	tried := make(map[*Endpoint]bool)
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 && c.config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		endpoint, err := c.SelectEndpoint(tried)
		if errors.Is(err, ErrNoAvailableEndpoints) && len(tried) > 0 {
			// Every endpoint failed once; start another round.
			tried = make(map[*Endpoint]bool)
			endpoint, err = c.SelectEndpoint(tried)
		}
		if err != nil {
			lastErr = err
			continue
		}
		tried[endpoint] = true

		start := time.Now()
		raw, err := c.do(ctx, endpoint, fasthttp.MethodPost, endpoint.url, body)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			endpoint.metrics.RecordFailure()
			c.checkCircuitBreaker(endpoint)
			logger.Warn("webhook delivery failed", "endpoint", endpoint.name, "notification_id", n.ID, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		endpoint.metrics.RecordSuccess(latency)

		var resp DeliveryResponse
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &resp); err != nil {
				return nil, errors.Wrap(err, "decode webhook response")
			}
		}
		if resp.Status == "" {
			resp.Status = StatusAccepted
		}
		resp.Endpoint = endpoint.name
		logger.Debug("webhook delivered", "endpoint", endpoint.name, "notification_id", n.ID, "latency_ms", latency)
		return &resp, nil
	}
	return nil, errors.Wrapf(lastErr, "delivery failed after %d attempts", c.config.MaxRetries+1)
}

func (c *Client) do(ctx context.Context, e *Endpoint, method, url string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := e.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.Wrap(err, "request failed")
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		return nil, errors.Errorf("unexpected status code %d: %s", code, resp.Body())
	}
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}

func (c *Client) checkCircuitBreaker(e *Endpoint) {
	fails := e.metrics.ConsecutiveFails.Load()
	if fails >= int32(c.config.CircuitBreakerThreshold) {
		e.openCircuit(c.config.CircuitBreakerTimeout)
		logger.Warn("circuit breaker opened", "endpoint", e.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
	}
}

func (c *Client) healthChecker() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.CheckHealth(context.Background())
		case <-c.stopCh:
			return
		}
	}
}

// CheckHealth polls every endpoint with a health URL. Open circuits are left
// alone.
func (c *Client) CheckHealth(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	for _, e := range c.endpoints {
		if e.healthURL == "" || e.State() == StateCircuitOpen {
			continue
		}
		_, err := c.do(ctx, e, fasthttp.MethodGet, e.healthURL, nil)
		e.lastHealthCheck.Store(time.Now().Unix())

		old := e.State()
		next := StateHealthy
		if err != nil {
			next = StateUnhealthy
		}
		if next != old {
			e.SetState(next)
			logger.Info("webhook endpoint state changed", "endpoint", e.name, "old_state", old.String(), "new_state", next.String())
		}
	}
}

// Stats lists endpoints by descending score.
func (c *Client) Stats() []EndpointStats {
	stats := make([]EndpointStats, 0, len(c.endpoints))
	for _, e := range c.endpoints {
		stats = append(stats, e.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Score > stats[j].Score })
	return stats
}

func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return nil
}
