package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/fasthttp/router"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type ReportService interface {
	Arrears(ctx context.Context, asOf time.Time) ([]*model.ArrearsRow, error)
	LedgerByAccount(ctx context.Context, f model.LedgerFilter) (*model.LedgerPage, error)
	InvoicesByPeriod(ctx context.Context, period string) ([]*model.InvoiceView, error)
	PaymentsByPeriod(ctx context.Context, period string) ([]*model.PaymentView, error)
}

type ReportHandler struct {
	svc ReportService
	now func() time.Time
}

func RegisterReportRoutes(e *router.Group, h *ReportHandler) {
	e.GET("/reports/arrears", h.Arrears)
	e.GET("/reports/ledger", h.Ledger)
	e.GET("/reports/invoices", h.Invoices)
	e.GET("/reports/payments", h.Payments)
}

func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{svc: svc, now: func() time.Time { return time.Now().UTC() }}
}

// Arrears defaults as_of to today.
func (h *ReportHandler) Arrears(ctx *xhttp.RequestCtx) {
	asOf, err := queryTime(ctx, "as_of")
	if err != nil {
		writeError(ctx, err)
		return
	}
	at := h.now()
	if asOf != nil {
		at = *asOf
	}
	rows, err := h.svc.Arrears(ctx, at)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rows)
}

func (h *ReportHandler) Ledger(ctx *xhttp.RequestCtx) {
	f, err := ledgerFilter(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	page, err := h.svc.LedgerByAccount(ctx, f)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func ledgerFilter(ctx *xhttp.RequestCtx) (model.LedgerFilter, error) {
	var (
		f    model.LedgerFilter
		err  error
		errs model.ValidationErrors
	)
	if v := query(ctx, "account_id"); v != "" {
		if f.AccountID, err = strconv.ParseInt(v, 10, 64); err != nil {
			errs.Add("account_id", "must be an integer")
		}
	}
	if f.From, err = queryTime(ctx, "from"); err != nil {
		errs = append(errs, model.Fields(err)...)
	}
	if f.To, err = queryTime(ctx, "to"); err != nil {
		errs = append(errs, model.Fields(err)...)
	}
	if f.Limit, err = queryInt(ctx, "limit"); err != nil {
		errs = append(errs, model.Fields(err)...)
	}
	if f.Offset, err = queryInt(ctx, "offset"); err != nil {
		errs = append(errs, model.Fields(err)...)
	}
	return f, errs.Err()
}

func (h *ReportHandler) Invoices(ctx *xhttp.RequestCtx) {
	items, err := h.svc.InvoicesByPeriod(ctx, query(ctx, "period"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *ReportHandler) Payments(ctx *xhttp.RequestCtx) {
	items, err := h.svc.PaymentsByPeriod(ctx, query(ctx, "period"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}
