package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/nimasrn/dues-ledger/internal/model"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
)

type RegistryService interface {
	RegisterMember(ctx context.Context, req model.RegisterMemberRequest) (*model.Member, error)
	ListMembers(ctx context.Context, status model.MemberStatus) ([]*model.Member, error)
	OpenBankAccount(ctx context.Context, req model.OpenBankAccountRequest) (*model.BankAccount, error)
	ListBankAccounts(ctx context.Context) ([]*model.BankAccount, error)
	CreateCategory(ctx context.Context, req model.CreateCategoryRequest) (*model.Category, error)
	ListCategories(ctx context.Context, kind model.CategoryKind) ([]*model.Category, error)
}

// RegistryHandler manages the reference data the ledger books against.
type RegistryHandler struct {
	svc RegistryService
}

func RegisterRegistryRoutes(e *router.Group, h *RegistryHandler) {
	e.POST("/members", h.RegisterMember)
	e.GET("/members", h.ListMembers)
	e.POST("/bank-accounts", h.OpenBankAccount)
	e.GET("/bank-accounts", h.ListBankAccounts)
	e.POST("/categories", h.CreateCategory)
	e.GET("/categories", h.ListCategories)
}

func NewRegistryHandler(svc RegistryService) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

func (h *RegistryHandler) RegisterMember(ctx *xhttp.RequestCtx) {
	var req model.RegisterMemberRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	m, err := h.svc.RegisterMember(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, m)
}

func (h *RegistryHandler) ListMembers(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListMembers(ctx, model.MemberStatus(query(ctx, "status")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *RegistryHandler) OpenBankAccount(ctx *xhttp.RequestCtx) {
	var req model.OpenBankAccountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	a, err := h.svc.OpenBankAccount(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, a)
}

func (h *RegistryHandler) ListBankAccounts(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListBankAccounts(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *RegistryHandler) CreateCategory(ctx *xhttp.RequestCtx) {
	var req model.CreateCategoryRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	c, err := h.svc.CreateCategory(ctx, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, c)
}

func (h *RegistryHandler) ListCategories(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListCategories(ctx, model.CategoryKind(query(ctx, "kind")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}
