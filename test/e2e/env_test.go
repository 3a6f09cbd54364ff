package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/nimasrn/dues-ledger/internal/app"
	"github.com/nimasrn/dues-ledger/internal/config"
	gateway "github.com/nimasrn/dues-ledger/internal/gateways"
	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/processor"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
	"github.com/nimasrn/dues-ledger/pkg/pg"
	"github.com/nimasrn/dues-ledger/pkg/redis"
	"github.com/nimasrn/dues-ledger/test/helpers"
)

type TestEnvironment struct {
	Config   *config.Config
	DB       *pg.DB
	Redis    *miniredis.Miniredis
	Adapter  redis.RedisAdapter
	Services *app.Services
	Router   *xhttp.Router
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	cfg := helpers.TestConfig()
	db := helpers.SetupTestDB(t)
	mr, adapter := helpers.SetupTestRedis(t)

	notifier, err := app.NewNotifier(context.Background(), cfg, adapter)
	require.NoError(t, err)

	svcs := app.NewServices(cfg, db, adapter, notifier)
	r := xhttp.CreateDefaultRouter()
	app.RegisterRoutes(r, svcs)

	return &TestEnvironment{
		Config:   cfg,
		DB:       db,
		Redis:    mr,
		Adapter:  adapter,
		Services: svcs,
		Router:   r,
	}
}

// call runs one request through the API router and returns the response.
func (env *TestEnvironment) call(t *testing.T, method, uri string, body any) *fasthttp.RequestCtx {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI("/api/v1" + uri)
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBody(raw)
	}
	env.Router.Handler(ctx)
	return ctx
}

// expect runs a request, checks the status and decodes the body into dst.
func (env *TestEnvironment) expect(t *testing.T, status int, method, uri string, body, dst any) {
	t.Helper()
	ctx := env.call(t, method, uri, body)
	require.Equal(t, status, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	if dst != nil {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), dst))
	}
}

func (env *TestEnvironment) invoices(t *testing.T, period string) []model.InvoiceView {
	t.Helper()
	var items []model.InvoiceView
	env.expect(t, http.StatusOK, http.MethodGet, "/reports/invoices?period="+period, nil, &items)
	return items
}

func (env *TestEnvironment) account(t *testing.T, id int64) model.BankAccount {
	t.Helper()
	var items []model.BankAccount
	env.expect(t, http.StatusOK, http.MethodGet, "/bank-accounts", nil, &items)
	for _, a := range items {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("bank account %d not listed", id)
	return model.BankAccount{}
}

func (env *TestEnvironment) ledger(t *testing.T, accountID int64) model.LedgerPage {
	t.Helper()
	var page model.LedgerPage
	env.expect(t, http.StatusOK, http.MethodGet, fmt.Sprintf("/reports/ledger?account_id=%d", accountID), nil, &page)
	return page
}

// webhook records admin notifications delivered to it.
type webhook struct {
	mu       sync.Mutex
	received []model.AdminNotification
	server   *httptest.Server
}

func newWebhook(t *testing.T) *webhook {
	w := &webhook{}
	w.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var n model.AdminNotification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.received = append(w.received, n)
		w.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(gateway.DeliveryResponse{
			NotificationID: n.ID,
			Status:         gateway.StatusAccepted,
			ReceivedAt:     time.Now().UTC(),
		})
	}))
	t.Cleanup(w.server.Close)
	return w
}

func (w *webhook) kinds() []model.NotificationKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(w.received))
	for _, n := range w.received {
		out = append(out, n.Kind)
	}
	return out
}

// startProcessor runs the notification processor against hook until the
// test ends.
func (env *TestEnvironment) startProcessor(t *testing.T, hook *webhook) *processor.ProcessorService {
	t.Helper()
	client, err := gateway.NewClient(&gateway.Config{
		Endpoints:  []gateway.EndpointConfig{{Name: "test", URL: hook.server.URL + "/notify", Weight: 100}},
		Timeout:    2 * time.Second,
		MaxRetries: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc := processor.NewProcessorService(env.Adapter, processor.Config{
		Queue:     app.QueueConfig(env.Config),
		Consumers: env.Config.QueueConsumers,
		Workers:   env.Config.QueueWorkers,
	}, processor.NewNotificationProcessor(client, processor.NewIdempotencyService(env.Adapter, processor.DefaultIdempotencyConfig())), nil)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)
	return svc
}
