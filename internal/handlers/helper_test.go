package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type mockInvoiceService struct{ mock.Mock }

func (m *mockInvoiceService) GenerateInvoices(ctx context.Context, period string) (*model.GenerationResult, error) {
	args := m.Called(ctx, period)
	res, _ := args.Get(0).(*model.GenerationResult)
	return res, args.Error(1)
}

type mockPaymentService struct{ mock.Mock }

func (m *mockPaymentService) ApplyPayment(ctx context.Context, req model.ApplyPaymentRequest) (*model.Payment, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*model.Payment)
	return p, args.Error(1)
}

func (m *mockPaymentService) ApplyBulkPayments(ctx context.Context, req model.BulkPaymentRequest) ([]model.BulkPaymentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).([]model.BulkPaymentResult)
	return res, args.Error(1)
}

type mockRecordingService struct{ mock.Mock }

func (m *mockRecordingService) RecordDonation(ctx context.Context, req model.RecordDonationRequest) (*model.Donation, error) {
	args := m.Called(ctx, req)
	d, _ := args.Get(0).(*model.Donation)
	return d, args.Error(1)
}

func (m *mockRecordingService) RecordExpense(ctx context.Context, req model.RecordExpenseRequest) (*model.Expense, error) {
	args := m.Called(ctx, req)
	x, _ := args.Get(0).(*model.Expense)
	return x, args.Error(1)
}

func (m *mockRecordingService) CreateIncome(ctx context.Context, req model.IncomeRequest) (*model.Income, error) {
	args := m.Called(ctx, req)
	in, _ := args.Get(0).(*model.Income)
	return in, args.Error(1)
}

func (m *mockRecordingService) UpdateIncome(ctx context.Context, id int64, req model.IncomeRequest) (*model.Income, error) {
	args := m.Called(ctx, id, req)
	in, _ := args.Get(0).(*model.Income)
	return in, args.Error(1)
}

func (m *mockRecordingService) DeleteIncome(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockResetService struct{ mock.Mock }

func (m *mockResetService) IssuePhrase(ctx context.Context) (*model.ResetPhrase, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*model.ResetPhrase)
	return p, args.Error(1)
}

func (m *mockResetService) FactoryReset(ctx context.Context, req model.FactoryResetRequest) (*model.ResetTicket, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*model.ResetTicket)
	return t, args.Error(1)
}

func (m *mockResetService) Act(ctx context.Context, id int64, action model.ResetAction) error {
	return m.Called(ctx, id, action).Error(0)
}

func (m *mockResetService) List(ctx context.Context) ([]*model.ResetRequest, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]*model.ResetRequest)
	return items, args.Error(1)
}

func (m *mockResetService) Get(ctx context.Context, id int64) (*model.ResetRequest, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.ResetRequest)
	return r, args.Error(1)
}

type mockReportService struct{ mock.Mock }

func (m *mockReportService) Arrears(ctx context.Context, asOf time.Time) ([]*model.ArrearsRow, error) {
	args := m.Called(ctx, asOf)
	rows, _ := args.Get(0).([]*model.ArrearsRow)
	return rows, args.Error(1)
}

func (m *mockReportService) LedgerByAccount(ctx context.Context, f model.LedgerFilter) (*model.LedgerPage, error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(*model.LedgerPage)
	return p, args.Error(1)
}

func (m *mockReportService) InvoicesByPeriod(ctx context.Context, period string) ([]*model.InvoiceView, error) {
	args := m.Called(ctx, period)
	items, _ := args.Get(0).([]*model.InvoiceView)
	return items, args.Error(1)
}

func (m *mockReportService) PaymentsByPeriod(ctx context.Context, period string) ([]*model.PaymentView, error) {
	args := m.Called(ctx, period)
	items, _ := args.Get(0).([]*model.PaymentView)
	return items, args.Error(1)
}

type mockRegistryService struct{ mock.Mock }

func (m *mockRegistryService) RegisterMember(ctx context.Context, req model.RegisterMemberRequest) (*model.Member, error) {
	args := m.Called(ctx, req)
	mem, _ := args.Get(0).(*model.Member)
	return mem, args.Error(1)
}

func (m *mockRegistryService) ListMembers(ctx context.Context, status model.MemberStatus) ([]*model.Member, error) {
	args := m.Called(ctx, status)
	items, _ := args.Get(0).([]*model.Member)
	return items, args.Error(1)
}

func (m *mockRegistryService) OpenBankAccount(ctx context.Context, req model.OpenBankAccountRequest) (*model.BankAccount, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*model.BankAccount)
	return a, args.Error(1)
}

func (m *mockRegistryService) ListBankAccounts(ctx context.Context) ([]*model.BankAccount, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]*model.BankAccount)
	return items, args.Error(1)
}

func (m *mockRegistryService) CreateCategory(ctx context.Context, req model.CreateCategoryRequest) (*model.Category, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*model.Category)
	return c, args.Error(1)
}

func (m *mockRegistryService) ListCategories(ctx context.Context, kind model.CategoryKind) ([]*model.Category, error) {
	args := m.Called(ctx, kind)
	items, _ := args.Get(0).([]*model.Category)
	return items, args.Error(1)
}

// serve routes a single request through a router carrying the given
// registrations under /api/v1.
func serve(method, uri, body string, register func(g *router.Group)) *xhttp.RequestCtx {
	r := xhttp.CreateDefaultRouter()
	register(r.Group("/api/v1"))

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	r.Handler(ctx)
	return ctx
}

func decodeBody(t *testing.T, ctx *xhttp.RequestCtx, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), dst), string(ctx.Response.Body()))
}

func decodeError(t *testing.T, ctx *xhttp.RequestCtx) errorResponse {
	t.Helper()
	var resp errorResponse
	decodeBody(t, ctx, &resp)
	return resp
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
