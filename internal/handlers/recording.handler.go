package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type RecordingService interface {
	RecordDonation(ctx context.Context, req model.RecordDonationRequest) (*model.Donation, error)
	RecordExpense(ctx context.Context, req model.RecordExpenseRequest) (*model.Expense, error)
	CreateIncome(ctx context.Context, req model.IncomeRequest) (*model.Income, error)
	UpdateIncome(ctx context.Context, id int64, req model.IncomeRequest) (*model.Income, error)
	DeleteIncome(ctx context.Context, id int64) error
}

type RecordingHandler struct {
	svc RecordingService
}

func RegisterRecordingRoutes(e *router.Group, h *RecordingHandler) {
	e.POST("/donations", h.RecordDonation)
	e.POST("/expenses", h.RecordExpense)
	e.POST("/incomes", h.CreateIncome)
	e.PUT("/incomes/{id}", h.UpdateIncome)
	e.DELETE("/incomes/{id}", h.DeleteIncome)
}

func NewRecordingHandler(svc RecordingService) *RecordingHandler {
	return &RecordingHandler{svc: svc}
}

func (h *RecordingHandler) RecordDonation(ctx *xhttp.RequestCtx) {
	var req model.RecordDonationRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	d, err := h.svc.RecordDonation(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, d)
}

func (h *RecordingHandler) RecordExpense(ctx *xhttp.RequestCtx) {
	var req model.RecordExpenseRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	x, err := h.svc.RecordExpense(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, x)
}

func (h *RecordingHandler) CreateIncome(ctx *xhttp.RequestCtx) {
	var req model.IncomeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	in, err := h.svc.CreateIncome(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, in)
}

func (h *RecordingHandler) UpdateIncome(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var req model.IncomeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	in, err := h.svc.UpdateIncome(ctx, id, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, in)
}

func (h *RecordingHandler) DeleteIncome(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if err := h.svc.DeleteIncome(ctx, id); err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, successResponse{Success: true})
}
