package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type InvoiceService interface {
	GenerateInvoices(ctx context.Context, period string) (*model.GenerationResult, error)
}

type PaymentService interface {
	ApplyPayment(ctx context.Context, req model.ApplyPaymentRequest) (*model.Payment, error)
	ApplyBulkPayments(ctx context.Context, req model.BulkPaymentRequest) ([]model.BulkPaymentResult, error)
}

// BillingHandler serves invoice generation and payment application.
type BillingHandler struct {
	invoices InvoiceService
	payments PaymentService
}

func RegisterBillingRoutes(e *router.Group, h *BillingHandler) {
	e.POST("/invoices/generate", h.GenerateInvoices)
	e.POST("/payments", h.ApplyPayment)
	e.POST("/payments/bulk", h.ApplyBulkPayments)
}

func NewBillingHandler(invoices InvoiceService, payments PaymentService) *BillingHandler {
	return &BillingHandler{invoices: invoices, payments: payments}
}

type bulkPaymentResponse struct {
	Count   int                       `json:"count"`
	Results []model.BulkPaymentResult `json:"results"`
}

func (h *BillingHandler) GenerateInvoices(ctx *xhttp.RequestCtx) {
	var req model.GenerateInvoicesRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	res, err := h.invoices.GenerateInvoices(ctx, req.Period)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *BillingHandler) ApplyPayment(ctx *xhttp.RequestCtx) {
	var req model.ApplyPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	p, err := h.payments.ApplyPayment(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, p)
}

func (h *BillingHandler) ApplyBulkPayments(ctx *xhttp.RequestCtx) {
	var req model.BulkPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	results, err := h.payments.ApplyBulkPayments(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, bulkPaymentResponse{Count: len(results), Results: results})
}
