// Command load hammers POST /payments on a single invoice and then checks
// that the invoice's paid amount equals the sum of the accepted payments.
//
//	TARGET=http://localhost:8080/api/v1 REQUESTS_PER_SECOND=200 go run ./test/load
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"github.com/nimasrn/dues-ledger/internal/model"
)

type Config struct {
	Target            string
	RequestsPerSecond int
	DurationSeconds   int
	Workers           int
	Amount            decimal.Decimal
	Period            string
}

type Stats struct {
	success atomic.Int64
	failed  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (s *Stats) observe(d time.Duration) {
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func (s *Stats) percentile(p float64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type api struct {
	client *fasthttp.Client
	base   string
}

func (a *api) do(method, path string, body, dst any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(a.base + path)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	if err := a.client.DoTimeout(req, resp, 30*time.Second); err != nil {
		return 0, err
	}
	code := resp.StatusCode()
	if dst != nil && code < 300 {
		if err := json.Unmarshal(resp.Body(), dst); err != nil {
			return code, errors.Wrapf(err, "decode %s %s", method, path)
		}
	}
	return code, nil
}

// seed registers a member large enough to never be fully paid and returns
// the invoice generated for it.
func (a *api) seed(period string) (*model.InvoiceView, error) {
	var member model.Member
	if _, err := a.do(fasthttp.MethodPost, "/members", model.RegisterMemberRequest{
		Name:             "load-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		AmountPerCycle:   decimal.NewFromInt(1_000_000_000),
		PaymentFrequency: model.FrequencyMonthly,
		Status:           model.MemberActive,
	}, &member); err != nil {
		return nil, errors.Wrap(err, "register member")
	}
	if member.ID == 0 {
		return nil, errors.New("register member: no id returned")
	}
	if _, err := a.do(fasthttp.MethodPost, "/invoices/generate", model.GenerateInvoicesRequest{Period: period}, nil); err != nil {
		return nil, errors.Wrap(err, "generate invoices")
	}
	return a.invoiceOf(member.ID, period)
}

func (a *api) invoiceOf(memberID int64, period string) (*model.InvoiceView, error) {
	var items []model.InvoiceView
	if _, err := a.do(fasthttp.MethodGet, "/reports/invoices?period="+period, nil, &items); err != nil {
		return nil, errors.Wrap(err, "list invoices")
	}
	for i := range items {
		if items[i].MemberID == memberID {
			return &items[i], nil
		}
	}
	return nil, errors.Errorf("no %s invoice for member %d", period, memberID)
}

func main() {
	cfg := Config{
		Target:            getEnv("TARGET", "http://localhost:8080/api/v1"),
		RequestsPerSecond: getEnvInt("REQUESTS_PER_SECOND", 200),
		DurationSeconds:   getEnvInt("DURATION_SECONDS", 30),
		Workers:           getEnvInt("CONCURRENT_WORKERS", 50),
		Amount:            decimal.RequireFromString(getEnv("AMOUNT", "1.25")),
		Period:            getEnv("PERIOD", model.PeriodOf(time.Now())),
	}

	a := &api{
		client: &fasthttp.Client{MaxConnsPerHost: cfg.Workers, MaxIdleConnDuration: 90 * time.Second},
		base:   strings.TrimRight(cfg.Target, "/"),
	}
	inv, err := a.seed(cfg.Period)
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}

	fmt.Printf("target %s, invoice %d (%s), %d rps for %ds with %d workers\n",
		cfg.Target, inv.ID, cfg.Period, cfg.RequestsPerSecond, cfg.DurationSeconds, cfg.Workers)
	fmt.Println(strings.Repeat("-", 50))

	stats := &Stats{}
	payment := model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: cfg.Amount, Method: model.MethodCash}

	jobs := make(chan struct{}, cfg.RequestsPerSecond)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				code, err := a.do(fasthttp.MethodPost, "/payments", payment, nil)
				stats.observe(time.Since(start))
				if err != nil || code != fasthttp.StatusCreated {
					stats.failed.Add(1)
					continue
				}
				stats.success.Add(1)
			}
		}()
	}

	started := time.Now()
	for sec := 1; sec <= cfg.DurationSeconds; sec++ {
		tick := time.Now()
		for j := 0; j < cfg.RequestsPerSecond; j++ {
			jobs <- struct{}{}
		}
		fmt.Printf("[%ds] ok %d failed %d\n", sec, stats.success.Load(), stats.failed.Load())
		if d := time.Since(tick); d < time.Second {
			time.Sleep(time.Second - d)
		}
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(started)

	ok, failed := stats.success.Load(), stats.failed.Load()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("requests %d ok %d failed %d in %s (%.1f rps)\n", ok+failed, ok, failed, elapsed.Round(time.Millisecond), float64(ok+failed)/elapsed.Seconds())
	fmt.Printf("latency p50 %s p95 %s p99 %s\n", stats.percentile(0.50), stats.percentile(0.95), stats.percentile(0.99))

	after, err := a.invoiceOf(inv.MemberID, cfg.Period)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reload invoice:", err)
		os.Exit(1)
	}
	expected := cfg.Amount.Mul(decimal.NewFromInt(ok))
	fmt.Printf("paid_amount %s, expected %s\n", after.PaidAmount.StringFixed(2), expected.StringFixed(2))
	if !after.PaidAmount.Equal(expected) {
		fmt.Fprintln(os.Stderr, "paid amount does not match accepted payments")
		os.Exit(2)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
