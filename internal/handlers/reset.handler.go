package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type ResetService interface {
	IssuePhrase(ctx context.Context) (*model.ResetPhrase, error)
	FactoryReset(ctx context.Context, req model.FactoryResetRequest) (*model.ResetTicket, error)
	Act(ctx context.Context, id int64, action model.ResetAction) error
	List(ctx context.Context) ([]*model.ResetRequest, error)
	Get(ctx context.Context, id int64) (*model.ResetRequest, error)
}

type ResetHandler struct {
	svc ResetService
}

func RegisterResetRoutes(e *router.Group, h *ResetHandler) {
	e.POST("/resets/phrase", h.IssuePhrase)
	e.POST("/resets", h.FactoryReset)
	e.GET("/resets", h.ListResets)
	e.GET("/resets/{id}", h.GetReset)
	e.PUT("/resets/{id}", h.Act)
}

func NewResetHandler(svc ResetService) *ResetHandler {
	return &ResetHandler{svc: svc}
}

func (h *ResetHandler) IssuePhrase(ctx *xhttp.RequestCtx) {
	p, err := h.svc.IssuePhrase(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, p)
}

func (h *ResetHandler) FactoryReset(ctx *xhttp.RequestCtx) {
	var req model.FactoryResetRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	ticket, err := h.svc.FactoryReset(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, ticket)
}

func (h *ResetHandler) Act(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var req model.ResetActionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	if err := h.svc.Act(ctx, id, req.Action); err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, successResponse{Success: true})
}

func (h *ResetHandler) ListResets(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *ResetHandler) GetReset(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	req, err := h.svc.Get(ctx, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, req)
}
